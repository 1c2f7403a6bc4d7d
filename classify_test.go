package syncpump

import (
	"reflect"
	"testing"
)

func TestClassifyEnvelopeValidationErrors(t *testing.T) {
	outcome := ClassifyEnvelope(ErrorEnvelope{
		Message: "Validation errors occurred",
		Errors: map[string]string{
			"a1b2-storeOrderId-101":            "email is invalid",
			"x9z8-storeOrderId-205":            "total is negative",
			"ff00-storeRecurringPaymentId-307": "currency unsupported",
		},
	})

	if outcome.Kind != OutcomePartialFailure {
		t.Fatalf("kind = %v, want partial failure", outcome.Kind)
	}
	if want := []int64{101, 205, 307}; !reflect.DeepEqual(outcome.FailedIDs, want) {
		t.Fatalf("failed ids = %v, want %v", outcome.FailedIDs, want)
	}
}

func TestClassifyEnvelopeValidationWithoutParseableIDs(t *testing.T) {
	outcome := ClassifyEnvelope(ErrorEnvelope{
		Message: "Validation errors occurred",
		Errors:  map[string]string{"something-else-entirely": "broken"},
	})

	if outcome.Kind != OutcomeUnknown {
		t.Fatalf("kind = %v, want unknown when no ids parse", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Fatal("unknown outcome must carry an error")
	}
}

func TestClassifyEnvelopeSizeLimit(t *testing.T) {
	for _, msg := range []string{
		"Request exceeds size limit",
		"Mutation complexity limit reached",
		"Payload too large for processing",
	} {
		outcome := ClassifyEnvelope(ErrorEnvelope{Message: msg})
		if outcome.Kind != OutcomeOversized {
			t.Fatalf("kind for %q = %v, want oversized", msg, outcome.Kind)
		}
	}
}

func TestClassifyEnvelopeUnrecognized(t *testing.T) {
	outcome := ClassifyEnvelope(ErrorEnvelope{Message: "upstream exploded"})

	if outcome.Kind != OutcomeUnknown {
		t.Fatalf("kind = %v, want unknown", outcome.Kind)
	}
}

func TestForeignIDFromKey(t *testing.T) {
	cases := []struct {
		key  string
		id   int64
		ok   bool
		name string
	}{
		{key: "abc123-storeOrderId-456", id: 456, ok: true, name: "order key"},
		{key: "x-storeRecurringPaymentId-9", id: 9, ok: true, name: "subscription key"},
		{key: "noise-more-storeOrderId-77-trailing", id: 77, ok: true, name: "id not last segment"},
		{key: "storeOrderId-0", ok: false, name: "zero id rejected"},
		{key: "storeOrderId--5", ok: false, name: "negative id rejected"},
		{key: "storeOrderId-abc", ok: false, name: "non-numeric id"},
		{key: "storeOrderId", ok: false, name: "field without id"},
		{key: "unknownField-123", ok: false, name: "unrecognized field"},
		{key: "", ok: false, name: "empty key"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := foreignIDFromKey(tc.key)
			if ok != tc.ok || id != tc.id {
				t.Fatalf("foreignIDFromKey(%q) = (%d, %v), want (%d, %v)", tc.key, id, ok, tc.id, tc.ok)
			}
		})
	}
}

func TestExtractForeignIDsDeduplicates(t *testing.T) {
	ids := extractForeignIDs(map[string]string{
		"a-storeOrderId-5": "first error",
		"b-storeOrderId-5": "second error on same record",
		"c-storeOrderId-2": "other record",
	})

	if want := []int64{2, 5}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}
