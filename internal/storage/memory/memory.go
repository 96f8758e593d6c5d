// Package memory is an in-process storage backend. Begin snapshots every
// table so Rollback restores the exact prior state.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/similarity"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

type state struct {
	tables map[storage.Table][]storage.Row
	nextID map[storage.Table]int64
}

func (s state) clone() state {
	c := state{
		tables: make(map[storage.Table][]storage.Row, len(s.tables)),
		nextID: make(map[storage.Table]int64, len(s.nextID)),
	}
	for t, rows := range s.tables {
		cp := make([]storage.Row, len(rows))
		for i, r := range rows {
			cp[i] = storage.Row{ID: r.ID, Fields: r.Fields.Clone()}
		}
		c.tables[t] = cp
	}
	for t, n := range s.nextID {
		c.nextID[t] = n
	}
	return c
}

// Store keeps every table in memory. It holds its lock for the lifetime of
// an open transaction.
type Store struct {
	mu     sync.Mutex
	data   state
	closed bool
}

var _ storage.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		data: state{
			tables: make(map[storage.Table][]storage.Row),
			nextID: make(map[storage.Table]int64),
		},
	}
}

// Begin locks the store and snapshots its contents.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewPersistenceError("begin", "", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.NewPersistenceError("begin", "", fmt.Errorf("store is closed"))
	}
	return &tx{store: s, snapshot: s.data.clone()}, nil
}

// Close marks the store closed. Later Begin calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Dump returns a deep copy of every table. It must not be called while a
// transaction is open.
func (s *Store) Dump() map[storage.Table][]storage.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone().tables
}

type tx struct {
	store    *Store
	snapshot state
	done     bool
}

func (t *tx) Commit() error {
	if t.done {
		return errors.NewPersistenceError("commit", "", fmt.Errorf("transaction already finished"))
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.data = t.snapshot
	t.store.mu.Unlock()
	return nil
}

func (t *tx) check(ctx context.Context, op string, table storage.Table) error {
	if t.done {
		return errors.NewPersistenceError(op, string(table), fmt.Errorf("transaction already finished"))
	}
	if err := ctx.Err(); err != nil {
		return errors.NewPersistenceError(op, string(table), err)
	}
	if _, ok := storage.Columns[table]; !ok {
		return errors.NewPersistenceError(op, string(table), fmt.Errorf("unknown table %q", table))
	}
	return nil
}

func (t *tx) rows(table storage.Table) []storage.Row {
	return t.store.data.tables[table]
}

func (t *tx) LookupByIdentifier(ctx context.Context, owner storage.Table, idType, value string) (int64, bool, error) {
	if err := t.check(ctx, "lookup", owner); err != nil {
		return 0, false, err
	}
	link, col, err := storage.IdentifierLink(owner)
	if err != nil {
		return 0, false, errors.NewPersistenceError("lookup", string(owner), err)
	}

	for _, ident := range t.rows(storage.Identifiers) {
		if !storage.Equal(ident.Fields["type"], idType) || !storage.Equal(ident.Fields["identifier"], value) {
			continue
		}
		for _, l := range t.rows(link) {
			if storage.Equal(l.Fields["identifier_id"], ident.ID) {
				ownerID, _ := l.Int(col)
				return ownerID, true, nil
			}
		}
	}
	return 0, false, nil
}

func (t *tx) FuzzySearch(ctx context.Context, table storage.Table, field, value string, threshold float64) (storage.Row, bool, error) {
	if err := t.check(ctx, "fuzzy search", table); err != nil {
		return storage.Row{}, false, err
	}
	if err := storage.CheckColumns(table, storage.Fields{field: nil}); err != nil {
		return storage.Row{}, false, errors.NewPersistenceError("fuzzy search", string(table), err)
	}

	var (
		best  storage.Row
		score float64
		found bool
	)
	for _, r := range t.rows(table) {
		v, ok := r.String(field)
		if !ok {
			continue
		}
		s := similarity.FuzzyMatch(v, value)
		if s > threshold && (!found || s > score) {
			best, score, found = r, s, true
		}
	}
	if !found {
		return storage.Row{}, false, nil
	}
	return storage.Row{ID: best.ID, Fields: best.Fields.Clone()}, true, nil
}

func (t *tx) ExactLookup(ctx context.Context, table storage.Table, match storage.Fields) (int64, bool, error) {
	rows, err := t.List(ctx, table, match)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].ID, true, nil
}

func (t *tx) Insert(ctx context.Context, table storage.Table, fields storage.Fields) (int64, error) {
	if err := t.check(ctx, "insert", table); err != nil {
		return 0, err
	}
	if err := storage.CheckColumns(table, fields); err != nil {
		return 0, errors.NewPersistenceError("insert", string(table), err)
	}

	row := storage.Fields{}
	for _, col := range storage.Columns[table] {
		row[col] = nil
	}
	for k, v := range fields.Normalized() {
		if k != "id" {
			row[k] = v
		}
	}

	t.store.data.nextID[table]++
	id := t.store.data.nextID[table]
	t.store.data.tables[table] = append(t.store.data.tables[table], storage.Row{ID: id, Fields: row})
	return id, nil
}

func (t *tx) Update(ctx context.Context, table storage.Table, id int64, fields storage.Fields) error {
	if err := t.check(ctx, "update", table); err != nil {
		return err
	}
	if err := storage.CheckColumns(table, fields); err != nil {
		return errors.NewPersistenceError("update", string(table), err)
	}

	for _, r := range t.rows(table) {
		if r.ID != id {
			continue
		}
		for k, v := range fields.Normalized() {
			if k != "id" {
				r.Fields[k] = v
			}
		}
		return nil
	}
	return errors.NewPersistenceError("update", string(table), errors.NewNotFoundError(string(table), id))
}

func (t *tx) GetRow(ctx context.Context, table storage.Table, id int64) (storage.Row, error) {
	if err := t.check(ctx, "get", table); err != nil {
		return storage.Row{}, err
	}
	for _, r := range t.rows(table) {
		if r.ID == id {
			return storage.Row{ID: r.ID, Fields: r.Fields.Clone()}, nil
		}
	}
	return storage.Row{}, errors.NewNotFoundError(string(table), id)
}

func (t *tx) List(ctx context.Context, table storage.Table, where storage.Fields) ([]storage.Row, error) {
	if err := t.check(ctx, "list", table); err != nil {
		return nil, err
	}
	if err := storage.CheckColumns(table, where); err != nil {
		return nil, errors.NewPersistenceError("list", string(table), err)
	}

	var out []storage.Row
	for _, r := range t.rows(table) {
		if matches(r, where) {
			out = append(out, storage.Row{ID: r.ID, Fields: r.Fields.Clone()})
		}
	}
	return out, nil
}

func matches(r storage.Row, where storage.Fields) bool {
	for k, want := range where {
		var got any = r.Fields[k]
		if k == "id" {
			got = r.ID
		}
		if !storage.Equal(got, want) {
			return false
		}
	}
	return true
}
