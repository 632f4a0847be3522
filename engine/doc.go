// Package engine defines the stream-engine surface that sources are
// materialized against, and a NATS JetStream implementation of it.
//
// A topic is a JetStream subject. A stream handle is a durable consumer on the
// subject that delivers every record, in order, to a callback. A table handle
// is a durable consumer that folds the subject into a key-value bucket holding
// the latest value per record key:
//
//	subject ──> consumer ──> extractor ──> serdes ──> callback   (stream)
//	                                              └─> KV bucket  (table)
//
// Record keys travel in the Ks-Key message header. The transport timestamp of a
// record is the time JetStream stored the message; a TimestampExtractor may
// replace it with a time taken from the record itself.
//
// Every handle acknowledges a message only after it has been fully processed.
// A record that cannot be processed is negatively acknowledged and stops the
// handle with a fatal error.
package engine
