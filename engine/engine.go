package engine

import (
	"context"
	"unicode/utf8"

	"github.com/yoloz/kska/errors"
)

// KeyHeader carries the record key on a JetStream message
const KeyHeader = "Ks-Key"

// Record is a message as received from a topic, before deserialization
type Record struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp int64 // transport timestamp, epoch milliseconds
	Sequence  uint64
}

// Event is a deserialized record with its resolved timestamp
type Event struct {
	Topic     string
	Key       string
	Value     string
	Timestamp int64
	Sequence  uint64
}

// TimestampExtractor resolves the timestamp of a record
type TimestampExtractor interface {
	Extract(rec Record) (int64, error)
}

// TimestampExtractorFunc adapts a function to TimestampExtractor
type TimestampExtractorFunc func(rec Record) (int64, error)

// Extract calls f(rec)
func (f TimestampExtractorFunc) Extract(rec Record) (int64, error) {
	return f(rec)
}

// TransportTimestamp keeps the timestamp the transport assigned
var TransportTimestamp TimestampExtractor = TimestampExtractorFunc(func(rec Record) (int64, error) {
	return rec.Timestamp, nil
})

// Serde converts between record bytes and their string form
type Serde interface {
	Name() string
	Encode(v string) []byte
	Decode(data []byte) (string, error)
}

type stringSerde struct{}

func (stringSerde) Name() string { return "string" }

func (stringSerde) Encode(v string) []byte { return []byte(v) }

func (stringSerde) Decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.WrapInvalid(errors.ErrInvalidData, "StringSerde", "Decode", "decode utf-8")
	}
	return string(data), nil
}

// StringSerde reads and writes UTF-8 text
var StringSerde Serde = stringSerde{}

// Handle is a materialized source
type Handle interface {
	Topic() string
}

// StreamHandle delivers every record of a topic
type StreamHandle interface {
	Handle
	// Foreach blocks, calling fn for each record until ctx is done or fn or
	// extraction fails.
	Foreach(ctx context.Context, fn func(context.Context, Event) error) error
}

// TableEntry is the latest value held for a key
type TableEntry struct {
	Key       string
	Value     string
	Timestamp int64
	Sequence  uint64
}

// TableHandle keeps the latest value per key of a topic in a state store
type TableHandle interface {
	Handle
	StoreName() string
	// Run blocks, applying records to the store until ctx is done or a record
	// cannot be applied.
	Run(ctx context.Context) error
	// Get returns the latest entry for key, or errors.ErrKeyNotFound.
	Get(ctx context.Context, key string) (TableEntry, error)
}

// Builder creates handles for topics. An empty store name lets the builder
// choose one.
type Builder interface {
	Stream(ctx context.Context, topics string) (StreamHandle, error)
	StreamWithTimestamps(ctx context.Context, extractor TimestampExtractor,
		keySerde, valueSerde Serde, topics string) (StreamHandle, error)
	Table(ctx context.Context, topics, store string) (TableHandle, error)
	TableWithTimestamps(ctx context.Context, extractor TimestampExtractor,
		keySerde, valueSerde Serde, topics, store string) (TableHandle, error)
}
