package syncpump

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
)

const defaultMaxErrorBody = 1 << 20

// outageStatusCodes is the fixed set of server-error codes that arm the
// cooldown marker.
var outageStatusCodes = map[int]struct{}{
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// BulkClient sends chunks to the marketing-automation bulk-mutation API
// and classifies the response into an Outcome.
type BulkClient struct {
	endpoint string
	apiToken string
	client   *http.Client
	logger   Logger
}

var _ Transport = (*BulkClient)(nil)

// BulkClientOption configures a BulkClient.
type BulkClientOption func(*BulkClient)

// WithHTTPClient sets the underlying HTTP client. The client's Timeout
// bounds every Send call; no call blocks indefinitely.
func WithHTTPClient(client *http.Client) BulkClientOption {
	return func(c *BulkClient) {
		c.client = client
	}
}

// WithBulkLogger sets the client logger.
func WithBulkLogger(logger Logger) BulkClientOption {
	return func(c *BulkClient) {
		c.logger = logger
	}
}

// NewBulkClient constructs a bulk-mutation client for the given endpoint.
func NewBulkClient(endpoint, apiToken string, opts ...BulkClientOption) *BulkClient {
	c := &BulkClient{
		endpoint: endpoint,
		apiToken: apiToken,
		client:   &http.Client{Timeout: defaultSendTimeout},
		logger:   NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type bulkRequest struct {
	FirstKey string            `json:"first_key"`
	Payloads []json.RawMessage `json:"payloads"`
}

type bulkResponse struct {
	Results []bulkResult `json:"results"`
}

type bulkResult struct {
	StoreID  int64  `json:"store_id"`
	RemoteID string `json:"remote_id"`
}

// Send implements Transport. Timeouts map to OutcomeNetworkTimeout, outage
// status codes to OutcomeServerOutage, structured error envelopes to the
// classifier; a body that cannot be decoded at all returns an error
// wrapping ErrMalformedResponse.
func (c *BulkClient) Send(ctx context.Context, firstKey string, chunk []Payload) (Outcome, error) {
	bodies := make([]json.RawMessage, 0, len(chunk))
	for _, payload := range chunk {
		bodies = append(bodies, payload.Body)
	}

	body, err := json.Marshal(bulkRequest{FirstKey: firstKey, Payloads: bodies})
	if err != nil {
		return Outcome{}, fmt.Errorf("syncpump: encode bulk request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("syncpump: build bulk request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Token", c.apiToken)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Kind: OutcomeNetworkTimeout, Err: err}, nil
		}

		return Outcome{Kind: OutcomeUnknown, Err: err}, nil
	}
	defer resp.Body.Close()

	return c.classifyResponse(resp, firstKey, len(chunk))
}

func (c *BulkClient) classifyResponse(resp *http.Response, firstKey string, chunkLen int) (Outcome, error) {
	if _, outage := outageStatusCodes[resp.StatusCode]; outage {
		c.logger.Warn("bulk api outage", "status", resp.StatusCode, "first_key", firstKey)

		return Outcome{Kind: OutcomeServerOutage, StatusCode: resp.StatusCode}, nil
	}

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return Outcome{Kind: OutcomeOversized, StatusCode: resp.StatusCode}, nil
	}

	decoder := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, defaultMaxErrorBody))

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		var success bulkResponse
		if err := decoder.Decode(&success); err != nil {
			return Outcome{}, fmt.Errorf("%w: decode success envelope: %v", ErrMalformedResponse, err)
		}
		remoteIDs := make(map[int64]string, len(success.Results))
		for _, result := range success.Results {
			remoteIDs[result.StoreID] = result.RemoteID
		}
		c.logger.Debug("bulk api accepted chunk", "first_key", firstKey, "rows", chunkLen)

		return Outcome{Kind: OutcomeSuccess, RemoteIDs: remoteIDs}, nil
	}

	var envelope ErrorEnvelope
	if err := decoder.Decode(&envelope); err != nil {
		return Outcome{}, fmt.Errorf("%w: status %d: decode error envelope: %v", ErrMalformedResponse, resp.StatusCode, err)
	}

	outcome := ClassifyEnvelope(envelope)
	outcome.StatusCode = resp.StatusCode

	return outcome, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
