package dbtypes

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDArrayRoundTripsLiteral(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	value, err := UUIDArray{a, b}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var scanned UUIDArray
	if err := scanned.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(scanned) != 2 || scanned[0] != a || scanned[1] != b {
		t.Fatalf("unexpected ids %v", scanned)
	}

	if err := scanned.Scan(nil); err != nil || len(scanned) != 0 {
		t.Fatalf("nil should scan to empty, got %v err=%v", scanned, err)
	}
	if err := scanned.Scan(`{"not-a-uuid"}`); err == nil {
		t.Fatal("expected parse error")
	}
	if err := scanned.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestUUIDArrayKeyIgnoresOrderAndDuplicates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	if (UUIDArray{a, b}).Key() != (UUIDArray{b, a, b}).Key() {
		t.Fatal("keys should match regardless of order")
	}
	if (UUIDArray{}).Key() != "{}" {
		t.Fatalf("unexpected empty key %q", UUIDArray{}.Key())
	}
}
