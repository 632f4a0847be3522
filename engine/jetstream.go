package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/metric"
	"github.com/yoloz/kska/natsclient"
)

// Client is the subset of natsclient.Client the builder needs
type Client interface {
	StreamNameBySubject(ctx context.Context, subject string) (string, error)
	CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
	NewKVStore(bucket jetstream.KeyValue, opts ...func(*natsclient.KVOptions)) *natsclient.KVStore
}

var _ Client = (*natsclient.Client)(nil)

// JetStreamBuilder materializes handles as durable JetStream consumers.
// Each durable consumer belongs to exactly one handle: registering a topic
// twice for the same kind fails, since two handles on one durable would each
// see only part of the records.
type JetStreamBuilder struct {
	client        Client
	applicationID string
	logger        *slog.Logger
	metrics       *engineMetrics

	mu       sync.Mutex
	durables map[string]string // durable name -> topic
}

var _ Builder = (*JetStreamBuilder)(nil)

// Option configures a JetStreamBuilder
type Option func(*JetStreamBuilder) error

// WithLogger sets the logger; nil keeps slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(b *JetStreamBuilder) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// WithMetrics registers handle metrics with registry
func WithMetrics(registry metric.Registrar) Option {
	return func(b *JetStreamBuilder) error {
		m, err := newEngineMetrics(registry)
		if err != nil {
			return err
		}
		b.metrics = m
		return nil
	}
}

// NewJetStreamBuilder creates a builder whose consumers are named after applicationID
func NewJetStreamBuilder(client Client, applicationID string, opts ...Option) (*JetStreamBuilder, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrNoConnection, "JetStreamBuilder", "New", "check client")
	}
	if strings.TrimSpace(applicationID) == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "JetStreamBuilder", "New", "check application id")
	}

	b := &JetStreamBuilder{
		client:        client,
		applicationID: applicationID,
		logger:        slog.Default(),
		durables:      make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, errors.WrapInvalid(err, "JetStreamBuilder", "New", "apply option")
		}
	}
	b.logger = b.logger.With("component", "engine")

	return b, nil
}

// Stream creates a stream handle with transport timestamps and string serdes
func (b *JetStreamBuilder) Stream(ctx context.Context, topics string) (StreamHandle, error) {
	return b.StreamWithTimestamps(ctx, TransportTimestamp, StringSerde, StringSerde, topics)
}

// StreamWithTimestamps creates a stream handle using extractor for record timestamps
func (b *JetStreamBuilder) StreamWithTimestamps(ctx context.Context, extractor TimestampExtractor,
	keySerde, valueSerde Serde, topics string) (StreamHandle, error) {
	sub, err := b.subscribe(ctx, "stream", extractor, keySerde, valueSerde, topics)
	if err != nil {
		return nil, err
	}
	return &streamHandle{sub: sub}, nil
}

// Table creates a table handle with transport timestamps and string serdes
func (b *JetStreamBuilder) Table(ctx context.Context, topics, store string) (TableHandle, error) {
	return b.TableWithTimestamps(ctx, TransportTimestamp, StringSerde, StringSerde, topics, store)
}

// TableWithTimestamps creates a table handle backed by the KV bucket store.
// An empty store is replaced with a name derived from the application id and topic.
func (b *JetStreamBuilder) TableWithTimestamps(ctx context.Context, extractor TimestampExtractor,
	keySerde, valueSerde Serde, topics, store string) (TableHandle, error) {
	if store == "" {
		store = b.derivedStoreName(topics)
	}
	if !validBucket.MatchString(store) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("store name %q must match %s", store, validBucket.String()),
			"JetStreamBuilder", "Table", "check store name")
	}

	// the store opens first so a failure leaves no consumer behind
	bucket, err := b.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      store,
		Description: fmt.Sprintf("latest values of %s", topics),
		History:     1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "JetStreamBuilder", "Table", fmt.Sprintf("open store %s", store))
	}

	sub, err := b.subscribe(ctx, "table", extractor, keySerde, valueSerde, topics)
	if err != nil {
		return nil, err
	}

	b.logger.Info("Table store ready", "topic", topics, "store", store)
	return &tableHandle{
		sub:   sub,
		store: store,
		kv:    b.client.NewKVStore(bucket),
	}, nil
}

func (b *JetStreamBuilder) subscribe(ctx context.Context, kind string, extractor TimestampExtractor,
	keySerde, valueSerde Serde, topic string) (*subscription, error) {
	if topic == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "JetStreamBuilder", "subscribe", "check topic")
	}
	if extractor == nil {
		extractor = TransportTimestamp
	}
	if keySerde == nil {
		keySerde = StringSerde
	}
	if valueSerde == nil {
		valueSerde = StringSerde
	}

	stream, err := b.client.StreamNameBySubject(ctx, topic)
	if err != nil {
		return nil, errors.Wrap(err, "JetStreamBuilder", "subscribe", fmt.Sprintf("find stream for %s", topic))
	}

	durable := b.durableName(kind, topic)
	if err := b.claim(durable, topic); err != nil {
		return nil, err
	}
	consumer, err := b.client.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		b.release(durable)
		return nil, errors.Wrap(err, "JetStreamBuilder", "subscribe", fmt.Sprintf("create consumer %s", durable))
	}

	b.logger.Info("Consumer ready", "kind", kind, "topic", topic, "stream", stream, "consumer", durable)
	return &subscription{
		topic:      topic,
		kind:       kind,
		consumer:   consumer,
		extractor:  extractor,
		keySerde:   keySerde,
		valueSerde: valueSerde,
		logger:     b.logger.With("topic", topic, "kind", kind),
		metrics:    b.metrics,
	}, nil
}

var (
	invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	validBucket      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func sanitizeName(s string) string {
	return strings.Trim(invalidNameChars.ReplaceAllString(s, "_"), "_")
}

func (b *JetStreamBuilder) durableName(kind, topic string) string {
	return sanitizeName(b.applicationID) + "-" + kind + "-" + sanitizeName(topic)
}

// claim reserves durable for topic. Topics that only differ in characters
// consumer names cannot hold map to the same durable and are rejected too.
func (b *JetStreamBuilder) claim(durable, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if owner, taken := b.durables[durable]; taken {
		return errors.WrapInvalid(
			fmt.Errorf("%w: topic %q already registered as consumer %s by topic %q",
				errors.ErrInvalidConfig, topic, durable, owner),
			"JetStreamBuilder", "subscribe", "claim consumer")
	}
	b.durables[durable] = topic
	return nil
}

func (b *JetStreamBuilder) release(durable string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.durables, durable)
}

func (b *JetStreamBuilder) derivedStoreName(topic string) string {
	return sanitizeName(b.applicationID) + "-" + sanitizeName(topic) + "-store"
}

// subscription runs the consume loop shared by both handle kinds
type subscription struct {
	topic      string
	kind       string
	consumer   jetstream.Consumer
	extractor  TimestampExtractor
	keySerde   Serde
	valueSerde Serde
	logger     *slog.Logger
	metrics    *engineMetrics
}

func (s *subscription) run(ctx context.Context, fn func(context.Context, Event) error) error {
	iter, err := s.consumer.Messages()
	if err != nil {
		return errors.WrapTransient(err, "subscription", "run", fmt.Sprintf("consume %s", s.topic))
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		iter.Stop()
	}()

	for {
		msg, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, jetstream.ErrMsgIteratorClosed) {
				return nil
			}
			return errors.WrapTransient(err, "subscription", "run", fmt.Sprintf("next message on %s", s.topic))
		}

		if err := s.process(ctx, msg, fn); err != nil {
			if nakErr := msg.Nak(); nakErr != nil {
				s.logger.Warn("Nak failed", "error", nakErr)
			}
			return err
		}

		if err := msg.Ack(); err != nil {
			s.logger.Warn("Ack failed", "error", err)
		}
	}
}

func (s *subscription) process(ctx context.Context, msg jetstream.Msg, fn func(context.Context, Event) error) error {
	rec := toRecord(msg)
	s.metrics.recordConsumed(s.topic, s.kind)

	ts, err := s.extractor.Extract(rec)
	if err != nil {
		s.metrics.recordExtractionError(s.topic)
		s.logger.Error("Timestamp extraction failed", "sequence", rec.Sequence, "error", err)
		return errors.WrapFatal(err, "subscription", "process",
			fmt.Sprintf("extract timestamp of %s#%d", s.topic, rec.Sequence))
	}

	key, err := s.keySerde.Decode(rec.Key)
	if err != nil {
		return errors.WrapFatal(err, "subscription", "process", "decode key")
	}
	value, err := s.valueSerde.Decode(rec.Value)
	if err != nil {
		return errors.WrapFatal(err, "subscription", "process", "decode value")
	}

	return fn(ctx, Event{
		Topic:     rec.Topic,
		Key:       key,
		Value:     value,
		Timestamp: ts,
		Sequence:  rec.Sequence,
	})
}

func toRecord(msg jetstream.Msg) Record {
	rec := Record{
		Topic: msg.Subject(),
		Value: msg.Data(),
	}
	if key := msg.Headers().Get(KeyHeader); key != "" {
		rec.Key = []byte(key)
	}
	if md, err := msg.Metadata(); err == nil && md != nil {
		rec.Timestamp = md.Timestamp.UnixMilli()
		rec.Sequence = md.Sequence.Stream
	}
	return rec
}
