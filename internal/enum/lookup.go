package enum

import (
	"context"
	"reflect"
	"slices"
)

// All: все члены в порядке загрузки.
func (t *Type) All(ctx context.Context) ([]*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.all), nil
}

// Active: члены, у которых active истинно (или колонки нет).
func (t *Type) Active(ctx context.Context) ([]*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	a, _ := s.partitions()
	return slices.Clone(a), nil
}

func (t *Type) Inactive(ctx context.Context) ([]*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	_, in := s.partitions()
	return slices.Clone(in), nil
}

// Names: символьные имена всех членов.
func (t *Type) Names(ctx context.Context) ([]Symbol, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Symbol, len(s.all))
	for i, e := range s.all {
		out[i] = e.Symbol()
	}
	return out, nil
}

// AllExcept: все члены, кроме перечисленных (ключи сравниваются через Matches).
func (t *Type) AllExcept(ctx context.Context, keys ...any) ([]*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, 0, len(s.all))
	for _, e := range s.all {
		skip, err := t.Matches(ctx, e, keys)
		if err != nil {
			return nil, err
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out, nil
}

// Lookup разрешает ключ с политикой типа.
func (t *Type) Lookup(ctx context.Context, k any) (*Instance, error) {
	return t.LookupWith(ctx, k, t.opts.OnLookupFailure)
}

// LookupWith: то же с явной политикой. nil → nil без вызова политики;
// член этого же типа возвращается как есть.
func (t *Type) LookupWith(ctx context.Context, k any, p Policy) (*Instance, error) {
	kk := classify(k)
	switch kk.kind {
	case keyNil:
		return nil, nil
	case keyInstance:
		if kk.inst.typeName != t.name {
			return nil, t.keyTypeError("[]", k)
		}
		return kk.inst, nil
	case keyInvalid:
		return nil, t.keyTypeError("[]", k)
	}
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var e *Instance
	if kk.kind == keyID {
		e = s.byID[kk.id]
	} else {
		e = s.byName[kk.name]
	}
	if e != nil {
		return e, nil
	}
	return p.handle(ctx, t, k)
}

// LookupMany разрешает каждый ключ и убирает повторы, сохраняя порядок
// первого появления. nil-результат тоже считается значением.
func (t *Type) LookupMany(ctx context.Context, keys ...any) ([]*Instance, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]*Instance, 0, len(keys))
	seen := make(map[*Instance]struct{}, len(keys))
	for _, k := range keys {
		e, err := t.Lookup(ctx, k)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// LookupID: поиск только по id, без политики.
func (t *Type) LookupID(ctx context.Context, id int64) (*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.byID[id], nil
}

// LookupName: поиск только по имени, без политики.
func (t *Type) LookupName(ctx context.Context, name string) (*Instance, error) {
	s, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.byName[name], nil
}

// Contains: есть ли член с таким ключом. Ключи прочих видов дают false.
func (t *Type) Contains(ctx context.Context, k any) (bool, error) {
	kk := classify(k)
	switch kk.kind {
	case keyNil, keyInvalid:
		return false, nil
	case keyInstance:
		return t.Includes(ctx, kk.inst)
	}
	s, err := t.snapshot(ctx)
	if err != nil {
		return false, err
	}
	if kk.kind == keyID {
		_, ok := s.byID[kk.id]
		return ok, nil
	}
	_, ok := s.byName[kk.name]
	return ok, nil
}

// Includes: член равен (по значению) одному из загруженных.
func (t *Type) Includes(ctx context.Context, e *Instance) (bool, error) {
	if e == nil || e.typeName != t.name {
		return false, nil
	}
	s, err := t.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return s.byID[e.id].Equal(e), nil
}

// Matches: обобщённое сравнение члена с ключом:
// nil: false; скаляр: равенство с разрешённым членом;
// срез: совпадение хотя бы с одним элементом; прочее: равенство значений.
func (t *Type) Matches(ctx context.Context, e *Instance, k any) (bool, error) {
	kk := classify(k)
	switch kk.kind {
	case keyNil:
		return false, nil
	case keyInstance:
		return e.Equal(kk.inst), nil
	case keyID, keyString, keySymbol:
		r, err := t.Lookup(ctx, k)
		if err != nil {
			return false, err
		}
		return r != nil && e.Equal(r), nil
	}
	rv := reflect.ValueOf(k)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			ok, err := t.Matches(ctx, e, rv.Index(i).Interface())
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, nil
}
