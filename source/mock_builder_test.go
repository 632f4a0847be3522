package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yoloz/kska/engine"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Stream(ctx context.Context, topics string) (engine.StreamHandle, error) {
	args := m.Called(ctx, topics)
	h, _ := args.Get(0).(engine.StreamHandle)
	return h, args.Error(1)
}

func (m *mockBuilder) StreamWithTimestamps(ctx context.Context, extractor engine.TimestampExtractor,
	keySerde, valueSerde engine.Serde, topics string) (engine.StreamHandle, error) {
	args := m.Called(ctx, extractor, keySerde, valueSerde, topics)
	h, _ := args.Get(0).(engine.StreamHandle)
	return h, args.Error(1)
}

func (m *mockBuilder) Table(ctx context.Context, topics, store string) (engine.TableHandle, error) {
	args := m.Called(ctx, topics, store)
	h, _ := args.Get(0).(engine.TableHandle)
	return h, args.Error(1)
}

func (m *mockBuilder) TableWithTimestamps(ctx context.Context, extractor engine.TimestampExtractor,
	keySerde, valueSerde engine.Serde, topics, store string) (engine.TableHandle, error) {
	args := m.Called(ctx, extractor, keySerde, valueSerde, topics, store)
	h, _ := args.Get(0).(engine.TableHandle)
	return h, args.Error(1)
}

type stubStream struct{ topic string }

func (s stubStream) Topic() string { return s.topic }

func (s stubStream) Foreach(context.Context, func(context.Context, engine.Event) error) error {
	return nil
}

type stubTable struct{ topic, store string }

func (s stubTable) Topic() string                { return s.topic }
func (s stubTable) StoreName() string            { return s.store }
func (s stubTable) Run(context.Context) error    { return nil }
func (s stubTable) Get(context.Context, string) (engine.TableEntry, error) {
	return engine.TableEntry{}, nil
}
