package gifp4

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"
)

const sqliteSchema = `create table if not exists kv (
	k blob primary key,
	v blob not null
) without rowid`

// SQLiteStore is a Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	l  *sync.Mutex // serializes writers, SQLite allows only one at a time
}

// compile-time assertion that we implement Store
var _ Store = &SQLiteStore{}

// NewSQLiteStore opens the SQLite database at path, creating it and its table if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=wal&_busy_timeout=5000&_synchronous=full")
	if err != nil {
		return nil, storeErr("open", xerrors.Errorf("could not open SQLite database: %w", err))
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storeErr("open", xerrors.Errorf("could not create kv table: %w", err))
	}

	return &SQLiteStore{
		db: db,
		l:  new(sync.Mutex),
	}, nil
}

// TryClaim inserts key with an empty value unless it already exists.
func (s *SQLiteStore) TryClaim(ctx context.Context, key []byte) (bool, error) {
	s.l.Lock()
	defer s.l.Unlock()

	res, err := s.db.ExecContext(ctx, "insert or ignore into kv (k, v) values (?, x'')", key)
	if err != nil {
		return false, storeErr("claim", xerrors.Errorf("error claiming key in database: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("claim", err)
	}
	return n == 1, nil
}

// ApplyBatch writes all pairs in one transaction.
func (s *SQLiteStore) ApplyBatch(ctx context.Context, writes []Write) error {
	s.l.Lock()
	defer s.l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("batch", xerrors.Errorf("could not begin transaction: %w", err))
	}

	for _, w := range writes {
		_, err = tx.ExecContext(ctx, "insert or replace into kv (k, v) values (?, ?)", w.Key, nonNil(w.Value))
		if err != nil {
			tx.Rollback()
			return storeErr("batch", xerrors.Errorf("error writing batch to database: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("batch", xerrors.Errorf("could not commit batch: %w", err))
	}
	return nil
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "select v from kv where k = ?", key).Scan(&value)
	if err != nil {
		if xerrors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storeErr("get", xerrors.Errorf("error looking up key in database: %w", err))
	}
	return nonNil(value), true, nil
}

func (s *SQLiteStore) Close() error {
	return storeErr("close", s.db.Close())
}

// nonNil turns a nil slice into an empty one. The drivers map nil to NULL,
// and stored values are never NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
