package gifp4

import (
	"context"

	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"
)

// RedisStore is a Store backed by Redis. Keys are the raw store keys behind a
// fixed prefix. Durability is whatever the server's persistence settings give;
// run it with appendonly enabled.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// compile-time assertion that we implement Store
var _ Store = &RedisStore{}

// NewRedisStore wraps client. The client is closed by Close.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, keyPrefix string) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, storeErr("open", xerrors.Errorf("failed to ping redis: %w", err))
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

func (r *RedisStore) key(k []byte) string {
	return r.keyPrefix + string(k)
}

// TryClaim uses SETNX, which Redis executes atomically.
func (r *RedisStore) TryClaim(ctx context.Context, key []byte) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), "", 0).Result()
	if err != nil {
		return false, storeErr("claim", err)
	}
	return ok, nil
}

// ApplyBatch sends all writes in one MULTI/EXEC transaction.
func (r *RedisStore) ApplyBatch(ctx context.Context, writes []Write) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			pipe.Set(ctx, r.key(w.Key), w.Value, 0)
		}
		return nil
	})
	return storeErr("batch", err)
}

func (r *RedisStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, storeErr("get", err)
	}
	return nonNil(v), true, nil
}

func (r *RedisStore) Close() error {
	return storeErr("close", r.client.Close())
}
