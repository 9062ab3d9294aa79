package gifp4

import (
	"context"
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// PostgresStore is a Store backed by a PostgreSQL table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// compile-time assertion that we implement Store
var _ Store = &PostgresStore{}

// NewPostgresStore connects to the database at dsn and brings its schema up to date.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32, l *zap.Logger) (*PostgresStore, error) {
	if l == nil {
		l = zap.NewNop()
	}

	if err := migratePostgres(dsn, l); err != nil {
		return nil, storeErr("open", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, storeErr("open", xerrors.Errorf("could not parse postgres DSN: %w", err))
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, storeErr("open", xerrors.Errorf("could not create connection pool: %w", err))
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, storeErr("open", xerrors.Errorf("failed to ping database: %w", err))
	}

	return &PostgresStore{db: db}, nil
}

// migratePostgres applies the embedded migrations. golang-migrate needs a
// *sql.DB, so a short-lived one is opened through the pgx stdlib driver.
func migratePostgres(dsn string, l *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return xerrors.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return xerrors.Errorf("failed to create postgres migration driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return xerrors.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return xerrors.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	switch {
	case xerrors.Is(err, migrate.ErrNoChange):
		l.Debug("postgres schema up to date")
	case err != nil:
		return xerrors.Errorf("failed to run migrations: %w", err)
	default:
		l.Info("postgres migrations applied")
	}
	return nil
}

func (p *PostgresStore) TryClaim(ctx context.Context, key []byte) (bool, error) {
	tag, err := p.db.Exec(ctx, "INSERT INTO kv (key, value) VALUES ($1, ''::bytea) ON CONFLICT (key) DO NOTHING", key)
	if err != nil {
		return false, storeErr("claim", xerrors.Errorf("failed to claim key: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) ApplyBatch(ctx context.Context, writes []Write) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return storeErr("batch", xerrors.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, w := range writes {
		batch.Queue("INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value", w.Key, nonNil(w.Value))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return storeErr("batch", xerrors.Errorf("failed to write batch: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("batch", xerrors.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRow(ctx, "SELECT value FROM kv WHERE key = $1", key).Scan(&value)
	if err != nil {
		if xerrors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storeErr("get", xerrors.Errorf("failed to get key: %w", err))
	}
	return nonNil(value), true, nil
}

func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}
