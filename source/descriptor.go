package source

// Kind selects the handle shape a source materializes to. It is one of
// StreamKind, TableKind or UnsupportedKind.
type Kind interface {
	String() string
	isKind()
}

// StreamKind materializes to a stream handle
type StreamKind struct{}

// TableKind materializes to a table handle kept in StoreName, or in a store
// the engine names when absent
type TableKind struct {
	StoreName Optional[string]
}

// UnsupportedKind carries a ks.type value that is neither stream nor table.
// It is rejected when the source is materialized.
type UnsupportedKind struct {
	Value string
}

func (StreamKind) String() string        { return "stream" }
func (TableKind) String() string         { return "table" }
func (k UnsupportedKind) String() string { return k.Value }

func (StreamKind) isKind()      {}
func (TableKind) isKind()       {}
func (UnsupportedKind) isKind() {}

func parseKind(typ string, store Optional[string]) Kind {
	switch typ {
	case "stream":
		return StreamKind{}
	case "table":
		return TableKind{StoreName: store}
	default:
		return UnsupportedKind{Value: typ}
	}
}

// Descriptor is a resolved source configuration. It is immutable and safe to
// share.
type Descriptor struct {
	name      string
	kind      Kind
	topics    string
	eventTime Optional[EventTimeSpec]
}

// Name returns the logical source name
func (d *Descriptor) Name() string { return d.name }

// Kind returns the handle shape
func (d *Descriptor) Kind() Kind { return d.kind }

// Topics returns the topic the source reads
func (d *Descriptor) Topics() string { return d.topics }

// EventTime returns the event-time specification, absent when records keep
// their transport timestamp
func (d *Descriptor) EventTime() Optional[EventTimeSpec] { return d.eventTime }
