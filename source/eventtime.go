package source

import (
	"time"

	"golang.org/x/text/language"

	"github.com/yoloz/kska/pkg/timestamp"
)

// ValueType is how an event-time field is encoded in the record
type ValueType string

// Supported value types
const (
	ValueLong   ValueType = "long"   // epoch milliseconds
	ValueString ValueType = "string" // text in a date-time pattern
)

// EventTimeSpec describes where a record's event time comes from. The zero
// value has no field name and keeps the transport timestamp.
type EventTimeSpec struct {
	fieldName Optional[string]
	valueType ValueType
	format    Optional[string]
	language  language.Tag
	offsetID  string

	// precomputed for the extractor
	layout   string
	location *time.Location
}

// FieldName returns the record field holding the event time
func (s EventTimeSpec) FieldName() Optional[string] { return s.fieldName }

// ValueType returns the field encoding; empty when there is no field name
func (s EventTimeSpec) ValueType() ValueType { return s.valueType }

// Format returns the date-time pattern for string values
func (s EventTimeSpec) Format() Optional[string] { return s.format }

// Language returns the language tag of textual values
func (s EventTimeSpec) Language() language.Tag { return s.language }

// OffsetID returns the zone applied to values without an explicit offset
func (s EventTimeSpec) OffsetID() string { return s.offsetID }

// Layout returns the Go layout translated from Format
func (s EventTimeSpec) Layout() string { return s.layout }

// EventTimeBuilder validates event-time settings into an EventTimeSpec
type EventTimeBuilder struct {
	name     Optional[string]
	typ      Optional[string]
	format   Optional[string]
	lang     Optional[string]
	offsetID Optional[string]
}

// NewEventTimeBuilder creates a builder with nothing set
func NewEventTimeBuilder() *EventTimeBuilder {
	return &EventTimeBuilder{}
}

// Name sets the event-time field name
func (b *EventTimeBuilder) Name(v Optional[string]) *EventTimeBuilder {
	b.name = v
	return b
}

// Type sets the value type, long or string
func (b *EventTimeBuilder) Type(v Optional[string]) *EventTimeBuilder {
	b.typ = v
	return b
}

// Format sets the date-time pattern
func (b *EventTimeBuilder) Format(v Optional[string]) *EventTimeBuilder {
	b.format = v
	return b
}

// Language sets the language tag, default en
func (b *EventTimeBuilder) Language(v Optional[string]) *EventTimeBuilder {
	b.lang = v
	return b
}

// OffsetID sets the zone, default +08:00
func (b *EventTimeBuilder) OffsetID(v Optional[string]) *EventTimeBuilder {
	b.offsetID = v
	return b
}

// Build returns an absent spec when no field name was set, regardless of the
// other settings. Otherwise every setting is validated.
func (b *EventTimeBuilder) Build() (Optional[EventTimeSpec], error) {
	name, ok := b.name.Get()
	if !ok || name == "" {
		return None[EventTimeSpec](), nil
	}

	spec := EventTimeSpec{fieldName: Some(name), format: b.format}

	typ, ok := b.typ.Get()
	if !ok || typ == "" {
		return None[EventTimeSpec](), missing(KeyTimeType)
	}
	switch ValueType(typ) {
	case ValueLong, ValueString:
		spec.valueType = ValueType(typ)
	default:
		return None[EventTimeSpec](), invalid(KeyTimeType, typ, "must be %s or %s", ValueLong, ValueString)
	}

	lang := b.lang.OrElse(DefaultLanguage)
	tag, err := language.Parse(lang)
	if err != nil {
		return None[EventTimeSpec](), invalid(KeyTimeLang, lang, "%v", err)
	}
	spec.language = tag

	spec.offsetID = b.offsetID.OrElse(DefaultOffsetID)
	loc, err := timestamp.ParseOffsetID(spec.offsetID)
	if err != nil {
		return None[EventTimeSpec](), invalid(KeyTimeOffsetID, spec.offsetID, "%v", err)
	}
	spec.location = loc

	if spec.valueType == ValueString {
		format, ok := b.format.Get()
		if !ok || format == "" {
			return None[EventTimeSpec](), missing(KeyTimeFormat)
		}
		pattern, err := timestamp.Translate(format)
		if err != nil {
			return None[EventTimeSpec](), invalid(KeyTimeFormat, format, "%v", err)
		}
		if pattern.Textual {
			if base, _ := tag.Base(); base.String() != "en" {
				return None[EventTimeSpec](), invalid(KeyTimeLang, lang,
					"pattern %q has month, day or am/pm names, which are only parsed in English", format)
			}
		}
		spec.layout = pattern.Layout
	}

	return Some(spec), nil
}
