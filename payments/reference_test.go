package payments

import (
	"strings"
	"testing"
)

func TestMintReferenceEmbedsOrderID(t *testing.T) {
	ref := MintReference("abc-123")

	if !strings.HasPrefix(ref, "ref-abc-123-") {
		t.Fatalf("reference %q does not embed the order id", ref)
	}

	orderID, ok := OrderIDFromReference(ref)
	if !ok {
		t.Fatalf("failed to parse reference %q", ref)
	}
	if orderID != "abc-123" {
		t.Errorf("parsed order id = %q, want abc-123", orderID)
	}
}

func TestMintReferenceUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := MintReference("order-1")
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}

func TestOrderIDFromReferenceRejectsGarbage(t *testing.T) {
	for _, ref := range []string{"", "nope", "ref-", "ref--", "xyz-order-1-42"} {
		if _, ok := OrderIDFromReference(ref); ok {
			t.Errorf("reference %q should not parse", ref)
		}
	}
}
