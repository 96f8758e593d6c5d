// Package sqlite is the durable storage backend, built on the pure-Go
// modernc.org/sqlite driver. Fuzzy search runs inside SQLite through a
// registered jarowinkler(a, b) scalar function.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

func init() {
	_ = sqlite.RegisterDeterministicScalarFunction("jarowinkler", 2, jaroWinkler)
}

// jaroWinkler exposes similarity.FuzzyMatch to SQL. Nulls score 0.
func jaroWinkler(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("jarowinkler expects 2 arguments")
	}
	a, okA := text(args[0])
	b, okB := text(args[1])
	if !okA || !okB {
		return 0.0, nil
	}
	return similarity.FuzzyMatch(a, b), nil
}

func text(v driver.Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

// Store is a SQLite-backed storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure data dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA foreign_keys = ON;`, `PRAGMA journal_mode = WAL;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Begin starts a database transaction.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewPersistenceError("begin", "", err)
	}
	return &tx{tx: sqlTx}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) Commit() error {
	return errors.NewPersistenceError("commit", "", t.tx.Commit())
}

func (t *tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return errors.NewPersistenceError("rollback", "", err)
}

func columns(table storage.Table) ([]string, error) {
	cols, ok := storage.Columns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return append([]string{"id"}, cols...), nil
}

func (t *tx) LookupByIdentifier(ctx context.Context, owner storage.Table, idType, value string) (int64, bool, error) {
	link, col, err := storage.IdentifierLink(owner)
	if err != nil {
		return 0, false, errors.NewPersistenceError("lookup", string(owner), err)
	}

	query := fmt.Sprintf(`SELECT l.%s FROM identifiers i JOIN %s l ON l.identifier_id = i.id
		WHERE i.type = ? AND i.identifier = ? ORDER BY l.id LIMIT 1`, col, link)

	var ownerID int64
	err = t.tx.QueryRowContext(ctx, query, idType, value).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewPersistenceError("lookup", string(owner), err)
	}
	return ownerID, true, nil
}

func (t *tx) FuzzySearch(ctx context.Context, table storage.Table, field, value string, threshold float64) (storage.Row, bool, error) {
	cols, err := columns(table)
	if err == nil {
		err = storage.CheckColumns(table, storage.Fields{field: nil})
	}
	if err != nil {
		return storage.Row{}, false, errors.NewPersistenceError("fuzzy search", string(table), err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s IS NOT NULL AND jarowinkler(%s, ?) > ?
		ORDER BY jarowinkler(%s, ?) DESC, id ASC LIMIT 1`,
		strings.Join(cols, ", "), table, field, field, field)

	rows, err := t.query(ctx, table, cols, query, value, threshold, value)
	if err != nil {
		return storage.Row{}, false, errors.NewPersistenceError("fuzzy search", string(table), err)
	}
	if len(rows) == 0 {
		return storage.Row{}, false, nil
	}
	return rows[0], true, nil
}

func (t *tx) ExactLookup(ctx context.Context, table storage.Table, match storage.Fields) (int64, bool, error) {
	where, args, err := whereClause(table, match)
	if err != nil {
		return 0, false, errors.NewPersistenceError("exact lookup", string(table), err)
	}

	query := fmt.Sprintf(`SELECT id FROM %s%s ORDER BY id LIMIT 1`, table, where)

	var id int64
	err = t.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewPersistenceError("exact lookup", string(table), err)
	}
	return id, true, nil
}

func (t *tx) Insert(ctx context.Context, table storage.Table, fields storage.Fields) (int64, error) {
	if err := storage.CheckColumns(table, fields); err != nil {
		return 0, errors.NewPersistenceError("insert", string(table), err)
	}

	var (
		names []string
		args  []any
	)
	for _, k := range fields.Keys() {
		if k == "id" {
			continue
		}
		names = append(names, k)
		args = append(args, storage.Value(fields[k]))
	}

	query := fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES`, table)
	if len(names) > 0 {
		query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			table, strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewPersistenceError("insert", string(table), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.NewPersistenceError("insert", string(table), err)
	}
	return id, nil
}

func (t *tx) Update(ctx context.Context, table storage.Table, id int64, fields storage.Fields) error {
	if err := storage.CheckColumns(table, fields); err != nil {
		return errors.NewPersistenceError("update", string(table), err)
	}

	var (
		sets []string
		args []any
	)
	for _, k := range fields.Keys() {
		if k == "id" {
			continue
		}
		sets = append(sets, k+" = ?")
		args = append(args, storage.Value(fields[k]))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets, ", "))
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewPersistenceError("update", string(table), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistenceError("update", string(table), err)
	}
	if n == 0 {
		return errors.NewPersistenceError("update", string(table), errors.NewNotFoundError(string(table), id))
	}
	return nil
}

func (t *tx) GetRow(ctx context.Context, table storage.Table, id int64) (storage.Row, error) {
	rows, err := t.List(ctx, table, storage.Fields{"id": id})
	if err != nil {
		return storage.Row{}, err
	}
	if len(rows) == 0 {
		return storage.Row{}, errors.NewNotFoundError(string(table), id)
	}
	return rows[0], nil
}

func (t *tx) List(ctx context.Context, table storage.Table, where storage.Fields) ([]storage.Row, error) {
	cols, err := columns(table)
	if err != nil {
		return nil, errors.NewPersistenceError("list", string(table), err)
	}
	clause, args, err := whereClause(table, where)
	if err != nil {
		return nil, errors.NewPersistenceError("list", string(table), err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY id`, strings.Join(cols, ", "), table, clause)
	rows, err := t.query(ctx, table, cols, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError("list", string(table), err)
	}
	return rows, nil
}

func (t *tx) query(ctx context.Context, table storage.Table, cols []string, query string, args ...any) ([]storage.Row, error) {
	rs, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []storage.Row
	for rs.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		row := storage.Row{Fields: make(storage.Fields, len(cols)-1)}
		for i, col := range cols {
			v := storage.Value(values[i])
			if col == "id" {
				row.ID, _ = v.(int64)
				continue
			}
			row.Fields[col] = v
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

// whereClause builds a null-safe equality filter using SQLite's IS operator.
func whereClause(table storage.Table, where storage.Fields) (string, []any, error) {
	if err := storage.CheckColumns(table, where); err != nil {
		return "", nil, err
	}
	if len(where) == 0 {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, k := range where.Keys() {
		conds = append(conds, k+" IS ?")
		args = append(args, storage.Value(where[k]))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
