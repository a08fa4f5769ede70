// Package binding связывает FK-колонку сущности-владельца со справочным
// типом: чтение отдаёт член справочника, запись принимает id, имя,
// Symbol или сам член и кладёт в колонку его id.
package binding

import (
	"context"
	"maps"
	"slices"
)

// Owner: сущность с FK-колонками и каналом отвергнутых значений.
type Owner interface {
	ForeignKey(column string) any
	SetForeignKey(column string, v any)
	InvalidValues() *InvalidValues
}

// InvalidValues: последние отвергнутые значения записи по атрибутам.
// Живут только в памяти экземпляра владельца.
type InvalidValues struct {
	m map[string]any
}

func (iv *InvalidValues) Get(attr string) (any, bool) {
	if iv == nil || iv.m == nil {
		return nil, false
	}
	v, ok := iv.m[attr]
	return v, ok
}

func (iv *InvalidValues) Set(attr string, v any) {
	if iv == nil {
		return
	}
	if iv.m == nil {
		iv.m = make(map[string]any)
	}
	iv.m[attr] = v
}

func (iv *InvalidValues) Clear(attr string) {
	if iv == nil {
		return
	}
	delete(iv.m, attr)
}

func (iv *InvalidValues) Len() int {
	if iv == nil {
		return 0
	}
	return len(iv.m)
}

// Attrs: атрибуты с отвергнутыми значениями, по алфавиту.
func (iv *InvalidValues) Attrs() []string {
	if iv == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(iv.m))
}

// ErrorSink принимает ошибки валидации полей.
type ErrorSink interface {
	AddError(field, message string)
}

// Finder отдаёт владельцев, у которых FK входит в ids.
type Finder[O Owner] interface {
	FindByForeignKey(ctx context.Context, column string, ids []int64) ([]O, error)
}

// FinderFunc: адаптер функции к Finder.
type FinderFunc[O Owner] func(ctx context.Context, column string, ids []int64) ([]O, error)

func (f FinderFunc[O]) FindByForeignKey(ctx context.Context, column string, ids []int64) ([]O, error) {
	return f(ctx, column, ids)
}
