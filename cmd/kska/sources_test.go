package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/health"
	"github.com/yoloz/kska/metric"
	"github.com/yoloz/kska/source"
)

type fakeStream struct {
	topic  string
	events []engine.Event
	err    error
}

func (f *fakeStream) Topic() string { return f.topic }

func (f *fakeStream) Foreach(ctx context.Context, fn func(context.Context, engine.Event) error) error {
	for _, ev := range f.events {
		if err := fn(ctx, ev); err != nil {
			return err
		}
	}
	return f.err
}

type fakeTable struct {
	topic, store string
	err          error
}

func (f *fakeTable) Topic() string     { return f.topic }
func (f *fakeTable) StoreName() string { return f.store }
func (f *fakeTable) Run(context.Context) error {
	return f.err
}
func (f *fakeTable) Get(context.Context, string) (engine.TableEntry, error) {
	return engine.TableEntry{}, nil
}

type fakeBuilder struct {
	streams map[string]*fakeStream
	tables  map[string]*fakeTable
}

func (b *fakeBuilder) Stream(_ context.Context, topics string) (engine.StreamHandle, error) {
	return b.streams[topics], nil
}

func (b *fakeBuilder) StreamWithTimestamps(ctx context.Context, _ engine.TimestampExtractor,
	_, _ engine.Serde, topics string) (engine.StreamHandle, error) {
	return b.Stream(ctx, topics)
}

func (b *fakeBuilder) Table(_ context.Context, topics, _ string) (engine.TableHandle, error) {
	return b.tables[topics], nil
}

func (b *fakeBuilder) TableWithTimestamps(ctx context.Context, _ engine.TimestampExtractor,
	_, _ engine.Serde, topics, store string) (engine.TableHandle, error) {
	return b.Table(ctx, topics, store)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resolve(t *testing.T, configs ...map[string]string) []*source.Descriptor {
	t.Helper()
	ds, err := source.ResolveAll(configs)
	require.NoError(t, err)
	return ds
}

func TestMaterializeAndRunSources(t *testing.T) {
	builder := &fakeBuilder{
		streams: map[string]*fakeStream{"orders.raw": {
			topic:  "orders.raw",
			events: []engine.Event{{Topic: "orders.raw", Key: "k", Value: "v"}},
		}},
		tables: map[string]*fakeTable{"users.raw": {topic: "users.raw", store: "users"}},
	}
	metrics := metric.NewMetrics()
	monitor := health.NewMonitor()

	ds := resolve(t,
		map[string]string{"ks.name": "orders", "ks.type": "stream", "ks.topics": "orders.raw"},
		map[string]string{"ks.name": "users", "ks.type": "table", "ks.topics": "users.raw", "ks.table.store": "users"},
	)

	runners, err := materializeSources(context.Background(), ds, builder, metrics, monitor, discardLogger())
	require.NoError(t, err)
	require.Len(t, runners, 2)

	for _, r := range runners {
		require.NoError(t, r.run(context.Background()))
	}

	assert.Equal(t, float64(metric.SourceStopped),
		testutil.ToFloat64(metrics.SourceStatus.WithLabelValues("orders", "stream")))
	assert.Equal(t, float64(metric.SourceStopped),
		testutil.ToFloat64(metrics.SourceStatus.WithLabelValues("users", "table")))

	status, ok := monitor.Get("source.users")
	require.True(t, ok)
	assert.True(t, status.IsDegraded())
}

func TestMaterializeUnsupportedKind(t *testing.T) {
	metrics := metric.NewMetrics()
	monitor := health.NewMonitor()
	ds := resolve(t, map[string]string{"ks.name": "q", "ks.type": "queue", "ks.topics": "q.raw"})

	_, err := materializeSources(context.Background(), ds, &fakeBuilder{}, metrics, monitor, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kSource type 'queue' not supported")

	assert.Equal(t, float64(metric.SourceFailed),
		testutil.ToFloat64(metrics.SourceStatus.WithLabelValues("q", "queue")))
	status, ok := monitor.Get("source.q")
	require.True(t, ok)
	assert.True(t, status.IsUnhealthy())
}

func TestRunnerFailure(t *testing.T) {
	boom := stderrors.New("boom")
	metrics := metric.NewMetrics()
	monitor := health.NewMonitor()

	r := &sourceRunner{
		name:    "orders",
		kind:    "stream",
		handle:  &fakeStream{topic: "orders.raw", err: boom},
		metrics: metrics,
		monitor: monitor,
		logger:  discardLogger(),
	}

	err := r.run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, float64(metric.SourceFailed),
		testutil.ToFloat64(metrics.SourceStatus.WithLabelValues("orders", "stream")))

	status, ok := monitor.Get("source.orders")
	require.True(t, ok)
	assert.True(t, status.IsUnhealthy())
}
