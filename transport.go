package syncpump

import "context"

// OutcomeKind classifies the result of one chunk transmission.
type OutcomeKind int

const (
	// OutcomeSuccess: every payload in the chunk was accepted.
	OutcomeSuccess OutcomeKind = iota
	// OutcomePartialFailure: rows named in FailedIDs were rejected by
	// per-record validation; unnamed rows were not confirmed either way.
	OutcomePartialFailure
	// OutcomeOversized: the chunk exceeded the remote size limit and must
	// be split and resent.
	OutcomeOversized
	// OutcomeServerOutage: the remote returned an outage status code; the
	// cooldown marker must be armed and the invocation aborted.
	OutcomeServerOutage
	// OutcomeNetworkTimeout: the call timed out before a usable response.
	OutcomeNetworkTimeout
	// OutcomeUnknown: the response could not be attributed to rows.
	OutcomeUnknown
)

// String returns the lowercase name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeOversized:
		return "oversized"
	case OutcomeServerOutage:
		return "server_outage"
	case OutcomeNetworkTimeout:
		return "network_timeout"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Outcome is the classified result of sending one chunk. Exactly the
// row/status transitions implied by the kind are applied by the run loop;
// no outcome leaves a row outside a defined state.
type Outcome struct {
	Kind OutcomeKind
	// RemoteIDs maps foreign ids to the ids assigned by the remote on success.
	RemoteIDs map[int64]string
	// FailedIDs names rows rejected by per-record validation.
	FailedIDs []int64
	// StatusCode is the HTTP status for server outages.
	StatusCode int
	// Err carries the underlying error for timeout and unknown outcomes.
	Err error
}

// Transport sends one chunk through the bulk-mutation API and classifies
// the response.
type Transport interface {
	// Send transmits the chunk under the given first_key grouping. The
	// returned error is non-nil only for responses that cannot be
	// classified at all; such errors halt the current sync type.
	Send(ctx context.Context, firstKey string, chunk []Payload) (Outcome, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, firstKey string, chunk []Payload) (Outcome, error)

// Send implements Transport.
func (fn TransportFunc) Send(ctx context.Context, firstKey string, chunk []Payload) (Outcome, error) {
	return fn(ctx, firstKey, chunk)
}
