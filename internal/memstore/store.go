// Package memstore: хранилище в памяти: справочные таблицы и записи
// владельцев. Годится для тестов и режима db_driver=memory.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"refenum/internal/entity"
	"refenum/internal/enum"
	"refenum/internal/logger"
)

var ErrConditionsUnsupported = errors.New("memstore: raw SQL conditions are not supported, use Where")

type table struct {
	rows   []enum.Row
	nextID int64
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	owners map[string]map[string]*entity.Record // FQN -> id -> запись
	order  map[string][]string                  // FQN -> id в порядке вставки
	log    *logger.Logger
}

func New(log *logger.Logger) *Store {
	return &Store{
		tables: make(map[string]*table),
		owners: make(map[string]map[string]*entity.Record),
		order:  make(map[string][]string),
		log:    log.With(logger.CatDB),
	}
}

// Seed добавляет строки справочника; строки без id получают следующий.
func (s *Store) Seed(name string, rows ...enum.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(name)
	for _, r := range rows {
		r = maps.Clone(r)
		if id, ok := enum.ToInt64(r["id"]); ok {
			if t.index(id) >= 0 {
				return fmt.Errorf("memstore: %s: duplicate id %d", name, id)
			}
			r["id"] = id
			t.nextID = max(t.nextID, id)
		} else {
			t.nextID++
			r["id"] = t.nextID
		}
		t.rows = append(t.rows, r)
	}
	return nil
}

func (t *table) index(id int64) int {
	for i, r := range t.rows {
		if n, _ := enum.ToInt64(r["id"]); n == id {
			return i
		}
	}
	return -1
}

func (s *Store) table(name string) *table {
	t := s.tables[name]
	if t == nil {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

// LoadRows отдаёт строки таблицы с фильтром Where и сортировкой Order.
func (s *Store) LoadRows(ctx context.Context, q enum.Query) ([]enum.Row, error) {
	if q.Conditions != "" {
		return nil, ErrConditionsUnsupported
	}
	keys, err := parseOrder(q.Order)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []enum.Row
	if t := s.tables[q.Table]; t != nil {
		out = make([]enum.Row, 0, len(t.rows))
		for _, r := range t.rows {
			if matchWhere(r, q.Where) {
				out = append(out, maps.Clone(r))
			}
		}
	}
	s.mu.RUnlock()
	sortRows(out, keys)
	s.log.Debug(ctx, "rows loaded", "table", q.Table, "rows", len(out))
	return out, nil
}

func (s *Store) InsertRow(_ context.Context, name string, row enum.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(name)
	t.nextID++
	r := maps.Clone(row)
	r["id"] = t.nextID
	t.rows = append(t.rows, r)
	return t.nextID, nil
}

func (s *Store) DeleteRow(_ context.Context, name string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.tables[name]; t != nil {
		if i := t.index(id); i >= 0 {
			t.rows = slices.Delete(t.rows, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("memstore: %s: row %d: %w", name, id, enum.ErrNotFound)
}

// ===== владельцы =====

func (s *Store) Insert(_ context.Context, fqn string, rec *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[fqn] == nil {
		s.owners[fqn] = make(map[string]*entity.Record)
	}
	if _, dup := s.owners[fqn][rec.ID]; dup {
		return fmt.Errorf("memstore: %s: duplicate id %s", fqn, rec.ID)
	}
	now := time.Now().UTC()
	rec.Version = 1
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.owners[fqn][rec.ID] = rec.Clone()
	s.order[fqn] = append(s.order[fqn], rec.ID)
	return nil
}

func (s *Store) Update(_ context.Context, fqn string, rec *entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.owners[fqn][rec.ID]
	if cur == nil {
		return entity.ErrNotFound
	}
	if cur.Version != rec.Version {
		return entity.ErrVersionConflict
	}
	rec.Version++
	rec.CreatedAt = cur.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	s.owners[fqn][rec.ID] = rec.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, fqn, id string) (*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.owners[fqn][id]
	if rec == nil {
		return nil, entity.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) List(_ context.Context, fqn string) ([]*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[fqn]
	out := make([]*entity.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.owners[fqn][id].Clone())
	}
	return out, nil
}

func (s *Store) FindByForeignKey(_ context.Context, fqn, column string, ids []int64) ([]*entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Record
	for _, id := range s.order[fqn] {
		rec := s.owners[fqn][id]
		fk, ok := enum.ToInt64(rec.Data[column])
		if ok && slices.Contains(ids, fk) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

var (
	_ enum.MutableSource = (*Store)(nil)
	_ entity.Store       = (*Store)(nil)
)
