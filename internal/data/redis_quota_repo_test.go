package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/testutil"
)

func TestRedisQuotaRepo_BaseQuota(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo, err := NewRedisQuotaRepo(client, RedisQuotaRepoOptions{KeyPrefix: "test:quota:", Fallback: 100})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("fallback for unknown user", func(t *testing.T) {
		quota, err := repo.BaseQuota(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, 100, quota)
	})

	t.Run("stored quota wins", func(t *testing.T) {
		require.NoError(t, repo.SetBaseQuota(ctx, "Alice", 250))
		quota, err := repo.BaseQuota(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 250, quota)
	})

	t.Run("clear restores fallback", func(t *testing.T) {
		existed, err := repo.ClearBaseQuota(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, existed)

		quota, err := repo.BaseQuota(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 100, quota)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "test:quota:bob", "lots", 0).Err())
		_, err := repo.BaseQuota(ctx, "bob")
		assert.Error(t, err)
	})

	t.Run("empty user is rejected", func(t *testing.T) {
		_, err := repo.BaseQuota(ctx, " ")
		assert.Error(t, err)
	})
}

func TestNewRedisQuotaRepo_RequiresClient(t *testing.T) {
	_, err := NewRedisQuotaRepo(nil, RedisQuotaRepoOptions{})
	assert.Error(t, err)
}

func TestStaticQuota(t *testing.T) {
	quota, err := StaticQuota(42).BaseQuota(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Equal(t, 42, quota)
}
