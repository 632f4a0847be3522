package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"

	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/pkg/timestamp"
)

// fieldExtractor reads a record's event time from a top-level JSON field.
// It holds no mutable state.
type fieldExtractor struct {
	field     string
	valueType ValueType
	layout    string
	location  *time.Location
}

// NewTimestampExtractor returns the extractor for spec. Without a field name
// records keep their transport timestamp.
func NewTimestampExtractor(spec EventTimeSpec) engine.TimestampExtractor {
	field, ok := spec.fieldName.Get()
	if !ok {
		return engine.TransportTimestamp
	}
	loc := spec.location
	if loc == nil {
		loc = time.UTC
	}
	return &fieldExtractor{
		field:     field,
		valueType: spec.valueType,
		layout:    spec.layout,
		location:  loc,
	}
}

func (e *fieldExtractor) Extract(rec engine.Record) (int64, error) {
	node, err := sonic.Get(rec.Value, e.field)
	if err != nil {
		return 0, e.fail("read field %q: %v", e.field, err)
	}

	switch node.TypeSafe() {
	case ast.V_NUMBER:
		if e.valueType != ValueLong {
			return 0, e.fail("field %q is a number, want %s", e.field, e.valueType)
		}
		ms, err := node.Int64()
		if err != nil {
			return 0, e.fail("field %q: %v", e.field, err)
		}
		return ms, nil

	case ast.V_STRING:
		s, err := node.String()
		if err != nil {
			return 0, e.fail("field %q: %v", e.field, err)
		}
		return e.parseString(s)

	default:
		return 0, e.fail("field %q is neither a number nor a string", e.field)
	}
}

func (e *fieldExtractor) parseString(s string) (int64, error) {
	switch e.valueType {
	case ValueLong:
		ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, e.fail("field %q value %q is not epoch milliseconds", e.field, s)
		}
		return ms, nil
	case ValueString:
		t, err := time.ParseInLocation(e.layout, s, e.location)
		if err != nil {
			return 0, e.fail("field %q value %q: %v", e.field, s, err)
		}
		return timestamp.ToUnixMs(t), nil
	default:
		return 0, e.fail("unsupported value type %q", e.valueType)
	}
}

func (e *fieldExtractor) fail(format string, args ...any) error {
	return errors.WrapFatal(
		fmt.Errorf("%w: %s", errors.ErrParsingFailed, fmt.Sprintf(format, args...)),
		"TimestampExtractor", "Extract", "extract event time")
}
