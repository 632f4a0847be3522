package source

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/errors"
)

func mustResolve(t *testing.T, props map[string]string) *Descriptor {
	t.Helper()
	d, err := Resolve(props)
	require.NoError(t, err)
	return d
}

func TestMaterialize_StreamDefaultTimestamps(t *testing.T) {
	ctx := context.Background()
	b := new(mockBuilder)
	b.On("Stream", ctx, "orders.created").Return(stubStream{topic: "orders.created"}, nil)

	h, err := Materialize(ctx, mustResolve(t, baseProps()), b)
	require.NoError(t, err)
	assert.Equal(t, "orders.created", h.Topic())

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "StreamWithTimestamps", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMaterialize_StreamWithEventTime(t *testing.T) {
	ctx := context.Background()
	b := new(mockBuilder)

	var got engine.TimestampExtractor
	b.On("StreamWithTimestamps", ctx, mock.Anything, engine.StringSerde, engine.StringSerde, "orders.created").
		Run(func(args mock.Arguments) { got = args.Get(1).(engine.TimestampExtractor) }).
		Return(stubStream{topic: "orders.created"}, nil)

	d := mustResolve(t, with(baseProps(), KeyTimeName, "ts", KeyTimeType, "long"))
	_, err := Materialize(ctx, d, b)
	require.NoError(t, err)
	b.AssertExpectations(t)

	require.NotNil(t, got)
	ts, err := got.Extract(engine.Record{Value: []byte(`{"ts":"1700000000000"}`), Timestamp: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
}

func TestMaterialize_Table(t *testing.T) {
	ctx := context.Background()
	b := new(mockBuilder)
	b.On("Table", ctx, "profiles", "profile-store").Return(stubTable{topic: "profiles", store: "profile-store"}, nil)
	b.On("Table", ctx, "profiles", "").Return(stubTable{topic: "profiles", store: "derived"}, nil)

	h, err := Materialize(ctx, mustResolve(t, with(baseProps(),
		KeyType, "table", KeyTopics, "profiles", KeyTableStore, "profile-store")), b)
	require.NoError(t, err)
	assert.Equal(t, "profile-store", h.(engine.TableHandle).StoreName())

	h, err = Materialize(ctx, mustResolve(t, with(baseProps(), KeyType, "table", KeyTopics, "profiles")), b)
	require.NoError(t, err)
	assert.Equal(t, "derived", h.(engine.TableHandle).StoreName())

	b.AssertExpectations(t)
}

func TestMaterialize_TableWithEventTime(t *testing.T) {
	ctx := context.Background()
	b := new(mockBuilder)
	b.On("TableWithTimestamps", ctx, mock.Anything, engine.StringSerde, engine.StringSerde, "profiles", "s").
		Return(stubTable{topic: "profiles", store: "s"}, nil)

	d := mustResolve(t, with(baseProps(),
		KeyType, "table", KeyTopics, "profiles", KeyTableStore, "s",
		KeyTimeName, "updated", KeyTimeType, "string", KeyTimeFormat, "yyyy-MM-dd"))
	_, err := Materialize(ctx, d, b)
	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestMaterialize_UnsupportedKind(t *testing.T) {
	b := new(mockBuilder)

	d := mustResolve(t, with(baseProps(), KeyType, "queue"))
	h, err := Materialize(context.Background(), d, b)
	assert.Nil(t, h)

	ce := requireConfigError(t, err, KeyType, errors.ErrInvalidConfig)
	assert.Equal(t, "queue", ce.Value)
	assert.Equal(t, "kSource type 'queue' not supported", err.Error())
	assert.False(t, errors.IsTransient(err))

	b.AssertNotCalled(t, "Stream", mock.Anything, mock.Anything)
	b.AssertNotCalled(t, "Table", mock.Anything, mock.Anything, mock.Anything)
}

func TestMaterialize_BuilderError(t *testing.T) {
	ctx := context.Background()
	b := new(mockBuilder)
	boom := stderrors.New("no stream captures subject")
	b.On("Stream", ctx, "orders.created").Return(nil, boom)

	h, err := Materialize(ctx, mustResolve(t, baseProps()), b)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, boom)
}
