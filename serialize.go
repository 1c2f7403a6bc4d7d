package syncpump

import (
	"context"
	"encoding/json"
	"strings"
)

// Payload is one serialized record ready for transmission.
type Payload struct {
	ForeignID int64
	Body      json.RawMessage
	// Weight is the approximate transmission cost of Body, see PayloadWeight.
	Weight int
}

// Serializer turns an outbox row into its wire payload. Each entity type
// provides its own implementation; the engine depends only on this
// capability.
type Serializer interface {
	// Serialize builds the wire payload for one row. Implementations
	// return an error wrapping ErrIncompatibleRecord when a local
	// precondition fails (missing required fields, trashed source record,
	// invalid email); such rows are excluded before any network call.
	Serialize(ctx context.Context, row Row) (Payload, error)
	// FirstKey names the remote field grouping for this entity type.
	FirstKey() string
}

// PayloadWeight returns the approximate transmission weight of a body,
// measured in whitespace-separated words. The remote enforces a
// token-based complexity limit per call; word count is a cheap proxy that
// tracks it closely enough for chunk planning.
func PayloadWeight(body []byte) int {
	return len(strings.Fields(string(body)))
}
