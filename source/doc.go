// Package source turns a ks.* configuration map into a stream or table handle.
//
// Resolution happens once at startup:
//
//	props := map[string]string{
//		"ks.name":          "orders",
//		"ks.type":          "stream",
//		"ks.topics":        "orders.created",
//		"ks.time.name":     "createdAt",
//		"ks.time.type":     "string",
//		"ks.time.format":   "yyyy-MM-dd'T'HH:mm:ss",
//		"ks.time.offsetId": "+08:00",
//	}
//	d, err := source.Resolve(props)
//	h, err := source.Materialize(ctx, d, builder)
//
// # Keys
//
// The recognized keys are resolved in a fixed order, so a requirement can
// depend on keys resolved before it:
//
//	ks.name           required
//	ks.type           required, stream or table
//	ks.topics         required, a single topic
//	ks.table.store    optional, tables only
//	ks.time.name      optional, event-time field of the record value
//	ks.time.type      required when ks.time.name is set, long or string
//	ks.time.format    required when ks.time.type is string
//	ks.time.lang      default en
//	ks.time.offsetId  default +08:00
//
// Empty values count as absent. Without ks.time.name there is no event-time
// specification at all, whatever the other ks.time.* keys say, and records
// keep the timestamp the transport assigned.
//
// An unknown ks.type passes Resolve and fails in Materialize.
//
// # Event time
//
// ks.time.format takes date-time patterns such as yyyy-MM-dd HH:mm:ss.SSS,
// translated once to a Go layout. Long values are epoch milliseconds, given
// either as a JSON integer or as a string of digits. A value that cannot be
// read fails the record with a fatal error wrapping errors.ErrParsingFailed;
// there is no fallback to the transport timestamp.
package source
