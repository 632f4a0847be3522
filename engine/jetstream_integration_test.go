//go:build integration

package engine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoloz/kska/errors"
	"github.com/yoloz/kska/natsclient"
)

func publish(t *testing.T, tc *natsclient.TestClient, subject, key, value string) {
	t.Helper()
	h := nats.Header{}
	if key != "" {
		h.Set(KeyHeader, key)
	}
	require.NoError(t, tc.Client.Publish(context.Background(), subject, []byte(value), h))
}

func TestIntegration_StreamHandle(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithStream("ORDERS", "orders"))
	publish(t, tc, "orders", "o1", "first")
	publish(t, tc, "orders", "o2", "second")

	b, err := NewJetStreamBuilder(tc.Client, "it")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	h, err := b.Stream(ctx, "orders")
	require.NoError(t, err)

	var got []Event
	err = h.Foreach(ctx, func(_ context.Context, ev Event) error {
		got = append(got, ev)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].Key)
	assert.Equal(t, "second", got[1].Value)
	assert.Positive(t, got[0].Timestamp)
}

func TestIntegration_TableHandle(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithStream("PROFILES", "profiles"))
	publish(t, tc, "profiles", "alice", "v1")
	publish(t, tc, "profiles", "alice", "v2")
	publish(t, tc, "profiles", "bob", "b1")
	publish(t, tc, "profiles", "bob", "")

	b, err := NewJetStreamBuilder(tc.Client, "it")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := b.Table(ctx, "profiles", "profiles-store")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		entry, err := h.Get(context.Background(), "alice")
		if err != nil || entry.Value != "v2" {
			return false
		}
		_, err = h.Get(context.Background(), "bob")
		return stderrors.Is(err, errors.ErrKeyNotFound)
	}, 20*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
