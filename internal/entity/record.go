// Package entity: записи сущностей-владельцев и их валидация по DSL-схеме.
package entity

import (
	"errors"
	"io"
	"maps"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"refenum/internal/binding"
)

var (
	ErrNotFound        = errors.New("entity: record not found")
	ErrVersionConflict = errors.New("entity: version conflict")
	ErrUnknownEntity   = errors.New("entity: unknown entity")
)

// Record: запись владельца. В Data лежат примитивные поля и FK-колонки
// enum-атрибутов (status_id и т.п.).
type Record struct {
	ID        string         `json:"id"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Data      map[string]any `json:"data"`

	invalid binding.InvalidValues
}

func NewRecord() *Record {
	return &Record{Data: make(map[string]any)}
}

func (r *Record) ForeignKey(column string) any { return r.Data[column] }

func (r *Record) SetForeignKey(column string, v any) {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[column] = v
}

func (r *Record) InvalidValues() *binding.InvalidValues { return &r.invalid }

// Clone копирует запись без удержанных отвергнутых значений.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		ID:        r.ID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Data:      maps.Clone(r.Data),
	}
}

// IDs выдаёт монотонные ULID; безопасен для конкурентного использования.
type IDs struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewIDs() *IDs {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &IDs{entropy: ulid.Monotonic(src, 0)}
}

func (g *IDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
