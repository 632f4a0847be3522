package source

import (
	"fmt"
)

// Resolve builds a Descriptor from a configuration map. It fails with a
// *ConfigError when a required key is missing or an event-time setting is
// invalid. An unrecognized ks.type is accepted here and rejected by Materialize.
func Resolve(props map[string]string) (*Descriptor, error) {
	vals, err := readKeys(props)
	if err != nil {
		return nil, err
	}

	eventTime, err := NewEventTimeBuilder().
		Name(vals[KeyTimeName]).
		Type(vals[KeyTimeType]).
		Format(vals[KeyTimeFormat]).
		Language(vals[KeyTimeLang]).
		OffsetID(vals[KeyTimeOffsetID]).
		Build()
	if err != nil {
		return nil, err
	}

	name, _ := vals[KeyName].Get()
	typ, _ := vals[KeyType].Get()
	topics, _ := vals[KeyTopics].Get()

	return &Descriptor{
		name:      name,
		kind:      parseKind(typ, vals[KeyTableStore]),
		topics:    topics,
		eventTime: eventTime,
	}, nil
}

// ResolveAll resolves every configuration in order. Source names must be
// unique, and a topic may back at most one stream and one table.
func ResolveAll(configs []map[string]string) ([]*Descriptor, error) {
	seen := make(map[string]int, len(configs))
	registered := make(map[string]int, len(configs))
	out := make([]*Descriptor, 0, len(configs))

	for i, props := range configs {
		d, err := Resolve(props)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if j, dup := seen[d.Name()]; dup {
			return nil, fmt.Errorf("source %d: %w", i,
				invalid(KeyName, d.Name(), "already used by source %d", j))
		}
		seen[d.Name()] = i

		switch d.Kind().(type) {
		case StreamKind, TableKind:
			key := d.Kind().String() + "\x00" + d.Topics()
			if j, dup := registered[key]; dup {
				return nil, fmt.Errorf("source %d: %w", i,
					invalid(KeyTopics, d.Topics(), "already registered as a %s by source %d", d.Kind(), j))
			}
			registered[key] = i
		}
		out = append(out, d)
	}

	return out, nil
}
