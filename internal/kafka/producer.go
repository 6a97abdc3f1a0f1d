package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/lhotari/nosqlbench/internal/seqtracker"
)

type Config struct {
	Brokers          []string
	ClientID         string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	TLSCAFile        string
	TLSCertFile      string
	TLSKeyFile       string
	TLSSkipVerify    bool
	RequiredAcks     string
	Compression      string
	FlushBytes       int
	FlushMessages    int
	FlushFrequencyMs int
	MaxMessageBytes  int
}

type Producer struct {
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	brokers []string
	mu      sync.RWMutex
	lastErr error
}

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Time    time.Time
	Headers map[string]string
}

// BatchPublishError reports which messages of a PublishBatch call failed.
// Index is the position of the failed message within the batch passed to
// PublishBatch.
type BatchPublishError struct {
	Errors []BatchPublishItemError
}

type BatchPublishItemError struct {
	Index int
	Err   error
}

func (e BatchPublishError) Error() string {
	return fmt.Sprintf("kafka: %d message(s) in batch failed to publish", len(e.Errors))
}

func NewProducer(cfg Config) (*Producer, error) {
	dialer, err := buildDialer(cfg)
	if err != nil {
		return nil, err
	}

	batchTimeout := 10 * time.Millisecond
	if cfg.FlushFrequencyMs > 0 {
		batchTimeout = time.Duration(cfg.FlushFrequencyMs) * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Async:        false,
		Balancer:     &kafka.Hash{},
		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		Compression:  compressionCodec(cfg.Compression),
		BatchSize:    cfg.FlushMessages,
		BatchBytes:   int64(cfg.FlushBytes),
		BatchTimeout: batchTimeout,
		Transport: &kafka.Transport{
			ClientID:    dialer.ClientID,
			DialTimeout: dialer.Timeout,
			TLS:         dialer.TLS,
			SASL:        dialer.SASLMechanism,
		},
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		Logger:       kafka.LoggerFunc(func(string, ...interface{}) {}),
		ErrorLogger:  kafka.LoggerFunc(func(string, ...interface{}) {}),
	}
	if writer.BatchSize <= 0 {
		writer.BatchSize = 100
	}

	return &Producer{writer: writer, dialer: dialer, brokers: cfg.Brokers}, nil
}

func requiredAcks(mode string) kafka.RequiredAcks {
	switch strings.ToLower(mode) {
	case "none":
		return kafka.RequireNone
	case "one", "leader":
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func compressionCodec(name string) kafka.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

func toKafkaMessage(msg Message) kafka.Message {
	km := kafka.Message{
		Topic: msg.Topic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  msg.Time,
	}
	if len(msg.Headers) > 0 {
		km.Headers = make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return km
}

// PublishSequenced stamps msg with the sequence_number header (and, if
// targetMax is set, sequence_tgt_max) before publishing it.
func (p *Producer) PublishSequenced(ctx context.Context, msg Message, n int64, targetMax *int64) error {
	var props map[string]string
	if targetMax != nil {
		props = seqtracker.StampWithTargetMax(n, *targetMax)
	} else {
		props = seqtracker.Stamp(n)
	}
	if msg.Headers == nil {
		msg.Headers = props
	} else {
		for k, v := range props {
			msg.Headers[k] = v
		}
	}
	return p.Publish(ctx, msg)
}

// PublishBatch writes every message in msgs with a single WriteMessages
// call; unlike Publish it has no retry loop of its own. On a partial
// failure kafka-go reports per-message kafka.WriteErrors, surfaced here as
// a BatchPublishError so callers can retry or DLQ just the failed indices
// instead of the whole batch.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	kmsgs := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		kmsgs[i] = toKafkaMessage(m)
	}

	err := p.writer.WriteMessages(ctx, kmsgs...)
	if err == nil {
		p.setErr(nil)
		return nil
	}
	p.setErr(err)

	var wErrs kafka.WriteErrors
	if errors.As(err, &wErrs) {
		batchErr := BatchPublishError{}
		for i, werr := range wErrs {
			if werr != nil {
				batchErr.Errors = append(batchErr.Errors, BatchPublishItemError{Index: i, Err: werr})
			}
		}
		if len(batchErr.Errors) > 0 {
			return batchErr
		}
	}
	return err
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	write := func() error {
		return p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	}

	const maxAttempts = 6
	base := 200 * time.Millisecond
	maxDelay := 5 * time.Second

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = write()
		if err == nil {
			p.setErr(nil)
			return nil
		}
		p.setErr(err)
		if attempt == maxAttempts {
			break
		}
		sleep := backoffDuration(base, maxDelay, attempt)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return fmt.Errorf("publish canceled: %w", ctx.Err())
		}
	}
	return err
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func (p *Producer) Ready(ctx context.Context) bool {
	if len(p.brokers) == 0 {
		return false
	}
	broker := strings.TrimSpace(p.brokers[0])
	if broker == "" {
		return false
	}

	dialer := p.dialer
	conn, err := dialer.DialContext(ctx, "tcp", broker)
	if err != nil {
		p.setErr(err)
		return false
	}
	_ = conn.Close()
	p.setErr(nil)
	return true
}

func (p *Producer) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

func (p *Producer) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func buildDialer(cfg Config) (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		ClientID:  cfg.ClientID,
	}

	useTLS := false
	proto := strings.ToUpper(cfg.SecurityProtocol)
	if proto == "SSL" || proto == "SASL_SSL" {
		useTLS = true
	}
	if cfg.TLSCAFile != "" || cfg.TLSCertFile != "" || cfg.TLSKeyFile != "" {
		useTLS = true
	}

	if useTLS {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		dialer.TLS = tlsConfig
	}

	if strings.Contains(proto, "SASL") || cfg.SASLMechanism != "" {
		mechanism, err := buildSASL(cfg)
		if err != nil {
			return nil, err
		}
		dialer.SASLMechanism = mechanism
	}

	return dialer, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify}

	if cfg.TLSCAFile != "" {
		caData, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("failed to parse Kafka CA file")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func buildSASL(cfg Config) (sasl.Mechanism, error) {
	mechanism := strings.ToUpper(cfg.SASLMechanism)
	if mechanism == "" {
		mechanism = "PLAIN"
	}

	switch mechanism {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.SASLUsername,
			Password: cfg.SASLPassword,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

func backoffDuration(base, maxDelay time.Duration, attempt int) time.Duration {
	multiplier := 1 << (attempt - 1)
	delay := time.Duration(multiplier) * base
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay / 2)))
	return delay + jitter
}
