package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestRequiredAcks(t *testing.T) {
	cases := map[string]kafka.RequiredAcks{
		"none":    kafka.RequireNone,
		"one":     kafka.RequireOne,
		"leader":  kafka.RequireOne,
		"all":     kafka.RequireAll,
		"":        kafka.RequireAll,
		"bogus":   kafka.RequireAll,
		"ALL":     kafka.RequireAll,
		"NONE":    kafka.RequireNone,
	}
	for input, want := range cases {
		if got := requiredAcks(input); got != want {
			t.Errorf("requiredAcks(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestCompressionCodec(t *testing.T) {
	cases := map[string]kafka.Compression{
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"none":   0,
		"":       0,
		"bogus":  0,
	}
	for input, want := range cases {
		if got := compressionCodec(input); got != want {
			t.Errorf("compressionCodec(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestToKafkaMessageCarriesHeaders(t *testing.T) {
	msg := Message{
		Topic:   "t",
		Key:     []byte("k"),
		Value:   []byte("v"),
		Headers: map[string]string{"sequence_number": "7"},
	}
	km := toKafkaMessage(msg)
	if len(km.Headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(km.Headers))
	}
	if km.Headers[0].Key != "sequence_number" || string(km.Headers[0].Value) != "7" {
		t.Errorf("unexpected header: %+v", km.Headers[0])
	}
}

func TestToKafkaMessageWithoutHeaders(t *testing.T) {
	km := toKafkaMessage(Message{Topic: "t", Key: []byte("k"), Value: []byte("v")})
	if km.Headers != nil {
		t.Errorf("expected nil headers, got %v", km.Headers)
	}
}

func TestBatchPublishErrorMessage(t *testing.T) {
	err := BatchPublishError{Errors: []BatchPublishItemError{{Index: 0, Err: nil}, {Index: 2, Err: nil}}}
	if got := err.Error(); got == "" {
		t.Errorf("expected a non-empty error message")
	}
}
