//go:build integration

package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoloz/kska/errors"
)

func TestIntegration_KVStore(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("profiles"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "profiles")
	require.NoError(t, err)
	kv := tc.Client.NewKVStore(bucket)

	_, err = kv.Get(ctx, "alice")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	_, err = kv.Put(ctx, "alice", []byte(`{"v":1}`))
	require.NoError(t, err)
	rev, err := kv.Put(ctx, "alice", []byte(`{"v":2}`))
	require.NoError(t, err)

	entry, err := kv.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), entry.Value)
	assert.Equal(t, rev, entry.Revision)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, keys)

	require.NoError(t, kv.Delete(ctx, "alice"))
	_, err = kv.Get(ctx, "alice")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestIntegration_StreamNameBySubject(t *testing.T) {
	tc := NewTestClient(t, WithStream("ORDERS", "orders.>"))
	ctx := context.Background()

	name, err := tc.Client.StreamNameBySubject(ctx, "orders.created")
	require.NoError(t, err)
	assert.Equal(t, "ORDERS", name)

	_, err = tc.Client.StreamNameBySubject(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.True(t, tc.Client.IsHealthy())
}

func TestIntegration_GetMissingBucket(t *testing.T) {
	tc := NewTestClient(t)

	_, err := tc.Client.GetKeyValueBucket(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrBucketNotFound)
}
