package syncpump

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Discriminator strings used by the remote error envelope. These are a
// wire-contract quirk of the bulk API; parsing is isolated here so a
// stricter future API only touches this file.
const validationErrorsMessage = "Validation errors"

var sizeLimitFragments = []string{
	"size limit",
	"complexity limit",
	"too large",
}

// foreignIDFieldNames are the recognized field names preceding the foreign
// id inside error keys shaped like <noise>-<fieldName>-<foreignId>.
var foreignIDFieldNames = []string{
	"storeOrderId",
	"storeRecurringPaymentId",
}

// ErrorEnvelope is the structured error body returned by the bulk API.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// ClassifyEnvelope maps a decoded remote error envelope to an outcome.
func ClassifyEnvelope(envelope ErrorEnvelope) Outcome {
	switch {
	case strings.HasPrefix(envelope.Message, validationErrorsMessage):
		ids := extractForeignIDs(envelope.Errors)
		if len(ids) == 0 {
			return Outcome{
				Kind: OutcomeUnknown,
				Err:  fmt.Errorf("validation envelope names no parseable foreign ids: %q", envelope.Message),
			}
		}

		return Outcome{Kind: OutcomePartialFailure, FailedIDs: ids}
	case isSizeLimitMessage(envelope.Message):
		return Outcome{Kind: OutcomeOversized}
	default:
		return Outcome{
			Kind: OutcomeUnknown,
			Err:  fmt.Errorf("unrecognized remote error: %q", envelope.Message),
		}
	}
}

// extractForeignIDs pulls distinct foreign ids out of the error-key map,
// sorted for deterministic handling.
func extractForeignIDs(errs map[string]string) []int64 {
	seen := make(map[int64]struct{}, len(errs))
	ids := make([]int64, 0, len(errs))
	for key := range errs {
		id, ok := foreignIDFromKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// foreignIDFromKey locates the segment following a recognized field name.
// Keys look like "abc123-storeOrderId-456"; the id is the segment after
// the field name, not necessarily the last segment.
func foreignIDFromKey(key string) (int64, bool) {
	segments := strings.Split(key, "-")
	for i, segment := range segments {
		if i+1 >= len(segments) {
			break
		}
		for _, field := range foreignIDFieldNames {
			if segment != field {
				continue
			}
			id, err := strconv.ParseInt(segments[i+1], 10, 64)
			if err != nil || id <= 0 {
				continue
			}

			return id, true
		}
	}

	return 0, false
}

func isSizeLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, fragment := range sizeLimitFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}

	return false
}
