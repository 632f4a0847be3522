package engine

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/natsclient"
)

// entryEnvelope is the stored form of a table value
type entryEnvelope struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Sequence  uint64 `json:"sequence"`
}

type tableHandle struct {
	sub   *subscription
	store string
	kv    *natsclient.KVStore
}

func (h *tableHandle) Topic() string {
	return h.sub.topic
}

func (h *tableHandle) StoreName() string {
	return h.store
}

func (h *tableHandle) Run(ctx context.Context) error {
	h.sub.logger.Info("Table started", "store", h.store)
	defer h.sub.logger.Info("Table stopped", "store", h.store)
	return h.sub.run(ctx, h.apply)
}

// apply folds one event into the store. An empty value deletes the key; a
// record without a key cannot be addressed and is skipped.
func (h *tableHandle) apply(ctx context.Context, ev Event) error {
	if ev.Key == "" {
		h.sub.metrics.recordTableUpdate(h.store, "skip")
		h.sub.logger.Debug("Skipping record without key", "sequence", ev.Sequence)
		return nil
	}

	storeKey := encodeKey(ev.Key)
	if ev.Value == "" {
		if err := h.kv.Delete(ctx, storeKey); err != nil {
			return errors.Wrap(err, "tableHandle", "apply", fmt.Sprintf("delete %s", ev.Key))
		}
		h.sub.metrics.recordTableUpdate(h.store, "delete")
		return nil
	}

	data, err := sonic.Marshal(entryEnvelope{Value: ev.Value, Timestamp: ev.Timestamp, Sequence: ev.Sequence})
	if err != nil {
		return errors.WrapFatal(err, "tableHandle", "apply", "encode entry")
	}
	if _, err := h.kv.Put(ctx, storeKey, data); err != nil {
		return errors.Wrap(err, "tableHandle", "apply", fmt.Sprintf("put %s", ev.Key))
	}
	h.sub.metrics.recordTableUpdate(h.store, "put")
	return nil
}

func (h *tableHandle) Get(ctx context.Context, key string) (TableEntry, error) {
	entry, err := h.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if stderrors.Is(err, errors.ErrKeyNotFound) {
			return TableEntry{}, errors.ErrKeyNotFound
		}
		return TableEntry{}, err
	}

	var env entryEnvelope
	if err := sonic.Unmarshal(entry.Value, &env); err != nil {
		return TableEntry{}, errors.WrapInvalid(err, "tableHandle", "Get", fmt.Sprintf("decode entry %s", key))
	}

	return TableEntry{
		Key:       key,
		Value:     env.Value,
		Timestamp: env.Timestamp,
		Sequence:  env.Sequence,
	}, nil
}

// encodeKey maps an arbitrary record key onto the KV key alphabet
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
