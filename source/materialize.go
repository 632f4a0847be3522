package source

import (
	"context"
	"fmt"

	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/errors"
)

// Materialize asks b for the handle d describes: a stream or table, with the
// event-time extractor when d has one and the engine's transport timestamps
// otherwise. Unsupported kinds fail with a *ConfigError naming the value.
func Materialize(ctx context.Context, d *Descriptor, b engine.Builder) (engine.Handle, error) {
	switch k := d.Kind().(type) {
	case StreamKind:
		if spec, ok := d.EventTime().Get(); ok {
			return b.StreamWithTimestamps(ctx, NewTimestampExtractor(spec),
				engine.StringSerde, engine.StringSerde, d.Topics())
		}
		return b.Stream(ctx, d.Topics())

	case TableKind:
		store := k.StoreName.OrElse("")
		if spec, ok := d.EventTime().Get(); ok {
			return b.TableWithTimestamps(ctx, NewTimestampExtractor(spec),
				engine.StringSerde, engine.StringSerde, d.Topics(), store)
		}
		return b.Table(ctx, d.Topics(), store)

	case UnsupportedKind:
		return nil, &ConfigError{
			Key:    KeyType,
			Value:  k.Value,
			Reason: fmt.Sprintf("kSource type '%s' not supported", k.Value),
			Err:    errors.ErrInvalidConfig,
		}

	default:
		return nil, &ConfigError{Key: KeyType, Value: fmt.Sprint(k), Err: errors.ErrInvalidConfig}
	}
}
