package engine

import "context"

type streamHandle struct {
	sub *subscription
}

func (h *streamHandle) Topic() string {
	return h.sub.topic
}

func (h *streamHandle) Foreach(ctx context.Context, fn func(context.Context, Event) error) error {
	h.sub.logger.Info("Stream started")
	defer h.sub.logger.Info("Stream stopped")
	return h.sub.run(ctx, fn)
}
