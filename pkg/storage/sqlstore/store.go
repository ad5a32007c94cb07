package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/forum"
	"github.com/platinummonkey/forum/pkg/storage"
)

// Store implements forum.Store on SQLite or PostgreSQL
type Store struct {
	db     *sql.DB
	reader func() *sql.DB
	driver storage.Driver
}

var _ forum.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithReader sends listing queries to the connection returned by pick,
// typically a read replica. Single-row reads stay on the primary so callers
// see their own writes.
func WithReader(pick func() *sql.DB) Option {
	return func(s *Store) {
		if pick != nil {
			s.reader = pick
		}
	}
}

// New creates a store on db, which must already be migrated
func New(db *sql.DB, driver storage.Driver, opts ...Option) *Store {
	s := &Store{db: db, driver: driver}
	s.reader = func() *sql.DB { return s.db }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromManager creates a store whose listings are spread over the manager's replicas
func NewFromManager(cm *storage.ConnectionManager) *Store {
	return New(cm.Primary(), cm.Driver(), WithReader(cm.Replica))
}

func (s *Store) rebind(query string) string {
	return storage.Rebind(s.driver, query)
}

// insert runs an INSERT ... RETURNING id
func insert(ctx context.Context, q queryer, query string, args ...interface{}) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// exec runs a statement that must touch at least one row of entity
func (s *Store) exec(ctx context.Context, op, entity, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if n == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Storage(op, err)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Constraint violations are reported by driver-specific error types.
var (
	errUniqueViolation     = errors.New("unique violation")
	errForeignKeyViolation = errors.New("foreign key violation")
)

func constraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return errUniqueViolation
		case "23503":
			return errForeignKeyViolation
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return errForeignKeyViolation
		}
	}
	return nil
}

// classify maps a driver error to an apperr storage error
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Storage(op, err)
}

// nullTime scans timestamps that SQLite returns as text, as it does for aggregates
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *nullTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	case time.Time:
		nt.Time, nt.Valid = v.UTC(), true
		return nil
	case string:
		return nt.parse(v)
	case []byte:
		return nt.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", value)
	}
}

func (nt *nullTime) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			nt.Time, nt.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (nt nullTime) ptr() *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
