package source

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoloz/kska/errors"
)

func baseProps() map[string]string {
	return map[string]string{
		KeyName:   "orders",
		KeyType:   "stream",
		KeyTopics: "orders.created",
	}
}

func with(props map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(props)+len(kv)/2)
	for k, v := range props {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func without(props map[string]string, key string) map[string]string {
	out := with(props)
	delete(out, key)
	return out
}

func requireConfigError(t *testing.T, err error, key string, sentinel error) *ConfigError {
	t.Helper()
	require.Error(t, err)
	var ce *ConfigError
	require.True(t, stderrors.As(err, &ce), "want *ConfigError, got %T", err)
	assert.Equal(t, key, ce.Key)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, errors.IsFatal(err))
	return ce
}

func TestResolve_Minimal(t *testing.T) {
	d, err := Resolve(baseProps())
	require.NoError(t, err)

	assert.Equal(t, "orders", d.Name())
	assert.Equal(t, StreamKind{}, d.Kind())
	assert.Equal(t, "orders.created", d.Topics())
	assert.False(t, d.EventTime().IsPresent())
}

func TestResolve_MissingRequired(t *testing.T) {
	for _, key := range []string{KeyName, KeyType, KeyTopics} {
		t.Run("absent "+key, func(t *testing.T) {
			_, err := Resolve(without(baseProps(), key))
			requireConfigError(t, err, key, errors.ErrMissingConfig)
		})
		t.Run("empty "+key, func(t *testing.T) {
			_, err := Resolve(with(baseProps(), key, ""))
			requireConfigError(t, err, key, errors.ErrMissingConfig)
		})
	}
}

func TestResolve_ResolutionOrder(t *testing.T) {
	// ks.name is checked before ks.topics
	_, err := Resolve(map[string]string{})
	requireConfigError(t, err, KeyName, errors.ErrMissingConfig)

	_, err = Resolve(map[string]string{KeyName: "a"})
	requireConfigError(t, err, KeyType, errors.ErrMissingConfig)
}

func TestResolve_TimeTypeRequiredWithName(t *testing.T) {
	_, err := Resolve(with(baseProps(), KeyTimeName, "ts"))
	requireConfigError(t, err, KeyTimeType, errors.ErrMissingConfig)

	_, err = Resolve(with(baseProps(), KeyTimeName, "ts", KeyTimeType, ""))
	requireConfigError(t, err, KeyTimeType, errors.ErrMissingConfig)
}

func TestResolve_FormatRequiredForString(t *testing.T) {
	_, err := Resolve(with(baseProps(), KeyTimeName, "ts", KeyTimeType, "string"))
	requireConfigError(t, err, KeyTimeFormat, errors.ErrMissingConfig)

	// the requirement follows the resolved type even without a field name
	_, err = Resolve(with(baseProps(), KeyTimeType, "string"))
	requireConfigError(t, err, KeyTimeFormat, errors.ErrMissingConfig)
}

func TestResolve_TimeKeysWithoutNameGiveNoSpec(t *testing.T) {
	d, err := Resolve(with(baseProps(),
		KeyTimeType, "long",
		KeyTimeFormat, "yyyy",
		KeyTimeLang, "not a tag!",
		KeyTimeOffsetID, "nowhere"))
	require.NoError(t, err)
	assert.False(t, d.EventTime().IsPresent())
}

func TestResolve_EventTimeDefaults(t *testing.T) {
	d, err := Resolve(with(baseProps(), KeyTimeName, "ts", KeyTimeType, "long"))
	require.NoError(t, err)

	spec, ok := d.EventTime().Get()
	require.True(t, ok)
	name, _ := spec.FieldName().Get()
	assert.Equal(t, "ts", name)
	assert.Equal(t, ValueLong, spec.ValueType())
	assert.Equal(t, "en", spec.Language().String())
	assert.Equal(t, DefaultOffsetID, spec.OffsetID())
	assert.False(t, spec.Format().IsPresent())
}

func TestResolve_InvalidEventTime(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		key   string
	}{
		{"type", with(baseProps(), KeyTimeName, "ts", KeyTimeType, "date"), KeyTimeType},
		{"lang", with(baseProps(), KeyTimeName, "ts", KeyTimeType, "long", KeyTimeLang, "not a tag!"), KeyTimeLang},
		{"offset", with(baseProps(), KeyTimeName, "ts", KeyTimeType, "long", KeyTimeOffsetID, "+25:00"), KeyTimeOffsetID},
		{"format", with(baseProps(), KeyTimeName, "ts", KeyTimeType, "string", KeyTimeFormat, "kk:mm"), KeyTimeFormat},
		{"textual pattern in german", with(baseProps(),
			KeyTimeName, "ts", KeyTimeType, "string", KeyTimeFormat, "dd MMM yyyy", KeyTimeLang, "de"), KeyTimeLang},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.props)
			ce := requireConfigError(t, err, tt.key, errors.ErrInvalidConfig)
			assert.Contains(t, ce.Error(), tt.key)
		})
	}
}

func TestResolve_NumericPatternAnyLanguage(t *testing.T) {
	d, err := Resolve(with(baseProps(),
		KeyTimeName, "ts", KeyTimeType, "string", KeyTimeFormat, "yyyy-MM-dd", KeyTimeLang, "zh-CN"))
	require.NoError(t, err)

	spec, _ := d.EventTime().Get()
	assert.Equal(t, "2006-01-02", spec.Layout())
	assert.Equal(t, "zh-CN", spec.Language().String())
}

func TestResolve_Kinds(t *testing.T) {
	d, err := Resolve(with(baseProps(), KeyType, "table", KeyTableStore, "orders-store"))
	require.NoError(t, err)
	assert.Equal(t, TableKind{StoreName: Some("orders-store")}, d.Kind())

	d, err = Resolve(with(baseProps(), KeyType, "table"))
	require.NoError(t, err)
	assert.Equal(t, TableKind{}, d.Kind())

	// the store name is ignored for streams
	d, err = Resolve(with(baseProps(), KeyTableStore, "unused"))
	require.NoError(t, err)
	assert.Equal(t, StreamKind{}, d.Kind())

	d, err = Resolve(with(baseProps(), KeyType, "queue"))
	require.NoError(t, err)
	assert.Equal(t, UnsupportedKind{Value: "queue"}, d.Kind())
	assert.Equal(t, "queue", d.Kind().String())
}

func TestResolveAll(t *testing.T) {
	ds, err := ResolveAll([]map[string]string{
		baseProps(),
		with(baseProps(), KeyName, "profiles", KeyType, "table"),
	})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "profiles", ds[1].Name())

	_, err = ResolveAll([]map[string]string{baseProps(), baseProps()})
	requireConfigError(t, err, KeyName, errors.ErrInvalidConfig)

	_, err = ResolveAll([]map[string]string{baseProps(), without(baseProps(), KeyTopics)})
	requireConfigError(t, err, KeyTopics, errors.ErrMissingConfig)
	assert.Contains(t, err.Error(), "source 1")
}

func TestResolveAll_TopicRegisteredOncePerKind(t *testing.T) {
	_, err := ResolveAll([]map[string]string{
		baseProps(),
		with(baseProps(), KeyName, "orders-copy"),
	})
	ce := requireConfigError(t, err, KeyTopics, errors.ErrInvalidConfig)
	assert.Equal(t, baseProps()[KeyTopics], ce.Value)
	assert.Contains(t, err.Error(), "already registered as a stream by source 0")

	_, err = ResolveAll([]map[string]string{
		with(baseProps(), KeyType, "table"),
		with(baseProps(), KeyName, "other", KeyType, "table", KeyTableStore, "other-store"),
	})
	requireConfigError(t, err, KeyTopics, errors.ErrInvalidConfig)

	ds, err := ResolveAll([]map[string]string{
		baseProps(),
		with(baseProps(), KeyName, "as-table", KeyType, "table"),
		with(baseProps(), KeyName, "queued", KeyType, "queue"),
		with(baseProps(), KeyName, "queued-again", KeyType, "queue"),
	})
	require.NoError(t, err, "a stream and a table may share a topic; unsupported kinds fail later")
	assert.Len(t, ds, 4)
}

func TestOptional(t *testing.T) {
	o := Some("x")
	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, "x", o.OrElse("y"))

	n := None[string]()
	assert.False(t, n.IsPresent())
	assert.Equal(t, "y", n.OrElse("y"))
	assert.Equal(t, n, Optional[string]{})
}
