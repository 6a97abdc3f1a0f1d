package seqtracker

import "testing"

func TestStampRoundTrip(t *testing.T) {
	props := Stamp(42)
	n, ok := ParseSequenceNumber(props)
	if !ok {
		t.Fatalf("ParseSequenceNumber failed to parse its own Stamp output")
	}
	if n != 42 {
		t.Fatalf("n = %d, want 42", n)
	}
	if _, ok := ParseTargetMax(props); ok {
		t.Fatalf("Stamp must not set sequence_tgt_max")
	}
}

func TestStampWithTargetMaxRoundTrip(t *testing.T) {
	props := StampWithTargetMax(7, 99)
	n, ok := ParseSequenceNumber(props)
	if !ok || n != 7 {
		t.Fatalf("ParseSequenceNumber = (%d, %v), want (7, true)", n, ok)
	}
	max, ok := ParseTargetMax(props)
	if !ok || max != 99 {
		t.Fatalf("ParseTargetMax = (%d, %v), want (99, true)", max, ok)
	}
}

func TestParseSequenceNumberRejectsAbsentProperty(t *testing.T) {
	if _, ok := ParseSequenceNumber(map[string]string{}); ok {
		t.Fatalf("expected ok=false for a missing property")
	}
}

func TestParseSequenceNumberRejectsMalformedValue(t *testing.T) {
	cases := []string{"not-a-number", "", "1.5", "-1", "0x10"}
	for _, raw := range cases {
		props := map[string]string{PropertySequenceNumber: raw}
		if _, ok := ParseSequenceNumber(props); ok {
			t.Errorf("ParseSequenceNumber(%q) = ok, want failure", raw)
		}
	}
}

func TestParseSequenceNumberAcceptsZero(t *testing.T) {
	props := map[string]string{PropertySequenceNumber: "0"}
	n, ok := ParseSequenceNumber(props)
	if !ok || n != 0 {
		t.Fatalf("ParseSequenceNumber(\"0\") = (%d, %v), want (0, true)", n, ok)
	}
}
