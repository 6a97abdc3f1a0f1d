package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestHeaderPropsRoundTripsKafkaHeaders(t *testing.T) {
	headers := []kafka.Header{
		{Key: "sequence_number", Value: []byte("42")},
		{Key: "sequence_tgt_max", Value: []byte("99")},
	}
	props := headerProps(headers)
	if props["sequence_number"] != "42" {
		t.Errorf("sequence_number = %q, want 42", props["sequence_number"])
	}
	if props["sequence_tgt_max"] != "99" {
		t.Errorf("sequence_tgt_max = %q, want 99", props["sequence_tgt_max"])
	}
}

func TestHeaderPropsOnEmptyHeaders(t *testing.T) {
	props := headerProps(nil)
	if len(props) != 0 {
		t.Errorf("expected no properties from nil headers, got %v", props)
	}
}

func TestNonZeroFallsBackToDefault(t *testing.T) {
	if got := nonZero(0, 7); got != 7 {
		t.Errorf("nonZero(0, 7) = %d, want 7", got)
	}
	if got := nonZero(-1, 7); got != 7 {
		t.Errorf("nonZero(-1, 7) = %d, want 7", got)
	}
	if got := nonZero(3, 7); got != 3 {
		t.Errorf("nonZero(3, 7) = %d, want 3", got)
	}
}
