// Package errors provides standardized error handling for kska.
//
// # Classification
//
// Errors fall into three classes:
//
//   - Transient: NATS timeouts, lost connections, unavailable buckets (retry recommended)
//   - Invalid: malformed records, unparseable values (do not retry the same input)
//   - Fatal: bad configuration, per-record extraction failures (stop processing)
//
// Classification works through errors.Is / errors.As, so wrapped chains keep their class.
//
// # Wrapping
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// and the classified wrappers attach a class on top of it:
//
//	errors.WrapTransient(err, "Client", "Connect", "establish connection")
//	errors.WrapInvalid(err, "Loader", "Load", "parse config")
//	errors.WrapFatal(err, "Extractor", "Extract", "parse event time")
//
// Standard library errors is imported as stderrors in files that need both.
package errors
