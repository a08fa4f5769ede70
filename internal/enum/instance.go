package enum

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"
)

// Row: одна строка справочной таблицы в том виде, в каком её отдал источник.
type Row map[string]any

// Instance: загруженный член справочника. После публикации в снапшот
// заморожен (если тип не отключил заморозку и не открыто окно изменений).
type Instance struct {
	typ      *Type
	typeName string
	id       int64
	name     string
	attrs    map[string]any
	frozen   bool
}

// newInstance строит член из строки источника; id и колонка имени обязательны.
func newInstance(t *Type, row Row, frozen bool) (*Instance, error) {
	id, ok := ToInt64(row["id"])
	if !ok {
		return nil, fmt.Errorf("%s: row has no integer id: %v", t.name, row["id"])
	}
	col := t.opts.NameColumn
	rawName, has := row[col]
	if !has {
		return nil, fmt.Errorf("%s: you need to define a '%s' column in the table '%s'", t.name, col, t.opts.Table)
	}
	return &Instance{
		typ:      t,
		typeName: t.name,
		id:       id,
		name:     toString(rawName),
		attrs:    maps.Clone(row),
		frozen:   frozen,
	}, nil
}

func (e *Instance) ID() int64        { return e.id }
func (e *Instance) Name() string     { return e.name }
func (e *Instance) Symbol() Symbol   { return Symbol(e.name) }
func (e *Instance) String() string   { return e.name }
func (e *Instance) Type() *Type      { return e.typ }
func (e *Instance) TypeName() string { return e.typeName }
func (e *Instance) Frozen() bool     { return e.frozen }

// Attr возвращает значение произвольной колонки.
func (e *Instance) Attr(name string) (any, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Attrs: копия всех колонок; изменения копии на член не влияют.
func (e *Instance) Attrs() map[string]any {
	return maps.Clone(e.attrs)
}

// Active: значение колонки active, если она есть; иначе всегда true.
func (e *Instance) Active() bool {
	v, ok := e.attrs["active"]
	if !ok {
		return true
	}
	return truthy(v)
}

func (e *Instance) Inactive() bool { return !e.Active() }

// Set меняет колонку незамороженного члена. id и имя менять нельзя:
// на них построены индексы снапшота.
func (e *Instance) Set(name string, v any) error {
	if e.frozen {
		return fmt.Errorf("%s(%s): %w", e.typeName, e.name, ErrFrozen)
	}
	if name == "id" || (e.typ != nil && name == e.typ.opts.NameColumn) {
		return fmt.Errorf("%s(%s): column %q is an index key", e.typeName, e.name, name)
	}
	e.attrs[name] = v
	return nil
}

// Equal: равенство по значению: тот же тип, id, имя и колонки.
func (e *Instance) Equal(o *Instance) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e == o {
		return true
	}
	return e.typeName == o.typeName &&
		e.id == o.id &&
		e.name == o.name &&
		reflect.DeepEqual(e.attrs, o.attrs)
}

// Like: обобщённое сравнение с ключом или списком ключей (см. Type.Matches).
func (e *Instance) Like(ctx context.Context, k any) (bool, error) {
	return e.typ.Matches(ctx, e, k)
}

// In: true, если член совпадает хотя бы с одним из ключей.
func (e *Instance) In(ctx context.Context, keys ...any) (bool, error) {
	return e.typ.Matches(ctx, e, keys)
}

// ToInt64 приводит целые (и целочисленные float64 из JSON) к int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case float32:
		if n != float32(int64(n)) {
			return 0, false
		}
		return int64(n), true
	}
	k := classify(v)
	if k.kind != keyID {
		return 0, false
	}
	return k.id, true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		if p, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return p
		}
		return b != ""
	case []byte:
		return truthy(string(b))
	}
	if n, ok := ToInt64(v); ok {
		return n != 0
	}
	return true
}
