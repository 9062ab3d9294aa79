package gifp4

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipWithoutContainers skips tests that need a container runtime.
func skipWithoutContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gifp4"),
		tcpostgres.WithUsername("gifp4"),
		tcpostgres.WithPassword("gifp4"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	tc.CleanupContainer(t, ctr)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	tc.CleanupContainer(t, ctr)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

func TestPostgresStore(t *testing.T) {
	skipWithoutContainers(t)
	ctx := context.Background()
	dsn := startPostgres(t)

	s, err := NewPostgresStore(ctx, dsn, 4, nil)
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)

	t.Run("migrations are idempotent", func(t *testing.T) {
		again, err := NewPostgresStore(ctx, dsn, 0, nil)
		require.NoError(t, err)
		again.Close()
	})

	t.Run("index", func(t *testing.T) {
		i := NewIndex(s, nil)
		id, err := i.Register(ctx, "111/a.gif", "111/a.mp4")
		require.NoError(t, err)

		link, ok, err := i.Resolve(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "111/a.gif", link.Preview.String())
		assert.Equal(t, "111/a.mp4", link.Video.String())
	})
}

func TestRedisStore(t *testing.T) {
	skipWithoutContainers(t)
	ctx := context.Background()
	uri := startRedis(t)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	s, err := NewRedisStore(ctx, redis.NewClient(opts), "gifp4-test:")
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)

	t.Run("keys are prefixed", func(t *testing.T) {
		require.NoError(t, s.ApplyBatch(ctx, []Write{{Key: []byte("k"), Value: []byte("v")}}))

		v, err := s.client.Get(ctx, "gifp4-test:k").Result()
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("open store via config", func(t *testing.T) {
		var c StoreConfig
		c.Driver = "redis"
		c.Redis.Addr = opts.Addr
		c.Redis.KeyPrefix = "gifp4-config:"

		opened, err := OpenStore(ctx, c, nil)
		require.NoError(t, err)
		defer opened.Close()

		ok, err := opened.TryClaim(ctx, []byte("k"))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
