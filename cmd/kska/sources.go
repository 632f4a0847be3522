package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/health"
	"github.com/yoloz/kska/metric"
	"github.com/yoloz/kska/pkg/timestamp"
	"github.com/yoloz/kska/source"
)

// sourceRunner drives one materialized source until its context ends.
type sourceRunner struct {
	name    string
	kind    string
	handle  engine.Handle
	metrics *metric.Metrics
	monitor *health.Monitor
	logger  *slog.Logger
}

func materializeSources(
	ctx context.Context,
	descriptors []*source.Descriptor,
	builder engine.Builder,
	metrics *metric.Metrics,
	monitor *health.Monitor,
	logger *slog.Logger,
) ([]*sourceRunner, error) {
	runners := make([]*sourceRunner, 0, len(descriptors))
	for _, d := range descriptors {
		kind := d.Kind().String()
		handle, err := source.Materialize(ctx, d, builder)
		if err != nil {
			metrics.RecordSourceStatus(d.Name(), kind, metric.SourceFailed)
			metrics.RecordError("source", errors.Classify(err).String())
			monitor.Update(healthName(d.Name()), health.FromError(healthName(d.Name()), err))
			return nil, fmt.Errorf("materialize source %s: %w", d.Name(), err)
		}

		logger.Info("Source materialized",
			"source", d.Name(),
			"kind", kind,
			"topics", handle.Topic())
		runners = append(runners, &sourceRunner{
			name:    d.Name(),
			kind:    kind,
			handle:  handle,
			metrics: metrics,
			monitor: monitor,
			logger:  logger.With("source", d.Name()),
		})
	}
	return runners, nil
}

func healthName(source string) string {
	return "source." + source
}

func (r *sourceRunner) run(ctx context.Context) error {
	r.metrics.RecordSourceStatus(r.name, r.kind, metric.SourceRunning)
	r.monitor.UpdateHealthy(healthName(r.name), "running")

	var err error
	switch h := r.handle.(type) {
	case engine.TableHandle:
		r.logger.Info("Table source running", "store", h.StoreName())
		err = h.Run(ctx)
	case engine.StreamHandle:
		r.logger.Info("Stream source running")
		err = h.Foreach(ctx, r.logEvent)
	default:
		err = errors.WrapFatal(fmt.Errorf("unexpected handle %T", r.handle), "source", "run", "dispatch")
	}

	if err != nil {
		r.metrics.RecordSourceStatus(r.name, r.kind, metric.SourceFailed)
		r.metrics.RecordError("source", errors.Classify(err).String())
		r.monitor.Update(healthName(r.name), health.FromError(healthName(r.name), err))
		r.logger.Error("Source stopped", "error", err)
		return fmt.Errorf("source %s: %w", r.name, err)
	}

	r.metrics.RecordSourceStatus(r.name, r.kind, metric.SourceStopped)
	r.monitor.UpdateDegraded(healthName(r.name), "stopped")
	return nil
}

func (r *sourceRunner) logEvent(_ context.Context, ev engine.Event) error {
	r.logger.Debug("Record",
		"topic", ev.Topic,
		"key", ev.Key,
		"timestamp", timestamp.Format(ev.Timestamp),
		"sequence", ev.Sequence)
	return nil
}
