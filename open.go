package gifp4

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// OpenStore opens the Store engine selected by c.Driver.
func OpenStore(ctx context.Context, c StoreConfig, l *zap.Logger) (Store, error) {
	if l == nil {
		l = zap.NewNop()
	}

	switch c.Driver {
	case "sqlite":
		l.Info("opening SQLite store", zap.String("path", c.SQLite.Path))
		return NewSQLiteStore(c.SQLite.Path)

	case "postgres":
		l.Info("opening PostgreSQL store", zap.String("dsn", maskDSN(c.Postgres.DSN)))
		return NewPostgresStore(ctx, c.Postgres.DSN, c.Postgres.MaxConns, l)

	case "redis":
		l.Info("opening Redis store", zap.String("addr", c.Redis.Addr), zap.Int("db", c.Redis.DB))
		client := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		s, err := NewRedisStore(ctx, client, c.Redis.KeyPrefix)
		if err != nil {
			client.Close()
			return nil, err
		}
		return s, nil

	case "memory":
		l.Warn("using in-memory store, links will be lost on exit")
		return NewMemoryStore(), nil
	}

	return nil, xerrors.Errorf("unknown store driver %q", c.Driver)
}

// maskDSN describes a PostgreSQL DSN for logging without its password.
// Both URL and keyword/value forms are accepted:
// host=db user=gifp4 password=secret dbname=gifp4 -> gifp4@db:5432/gifp4
func maskDSN(dsn string) string {
	c, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "(invalid DSN)"
	}
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}
