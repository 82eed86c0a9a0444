package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/openagi/pkg/adapters/redis"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunWorkspaceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	wf := domain.NewWorkflow()

	require.NoError(t, store.Save(ctx, wf))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, wf.ID)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, wf.ID)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)

	// The index is pruned against the wall clock, so wait past the score.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_SaveRefreshesTTL(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(10*time.Second), redis.WithPrefix("t:"))
	ctx := context.Background()
	wf := domain.NewWorkflow()

	require.NoError(t, store.Save(ctx, wf))
	mr.FastForward(8 * time.Second)
	require.NoError(t, store.Save(ctx, wf))
	mr.FastForward(8 * time.Second)

	_, err := store.Load(ctx, wf.ID)
	assert.NoError(t, err, "second save should have refreshed the TTL")
	assert.Equal(t, 2*time.Second, mr.TTL("t:"+wf.ID))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	wf := domain.NewWorkflow()
	wf.ID = "my-workspace"

	require.NoError(t, store.Save(ctx, wf))

	assert.True(t, mr.Exists("custom:app:my-workspace"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "my-workspace")

	require.NoError(t, store.Delete(ctx, "my-workspace"))
	assert.False(t, mr.Exists("custom:app:my-workspace"))
}
