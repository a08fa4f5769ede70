package entity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"refenum/internal/binding"
	"refenum/internal/dsl"
	"refenum/internal/enum"
	"refenum/internal/logger"
)

// Store хранит записи владельцев по FQN сущности.
type Store interface {
	Insert(ctx context.Context, entity string, rec *Record) error
	// Update сохраняет запись, если хранимая версия равна rec.Version;
	// при успехе версия увеличивается.
	Update(ctx context.Context, entity string, rec *Record) error
	Get(ctx context.Context, entity, id string) (*Record, error)
	List(ctx context.Context, entity string) ([]*Record, error)
	FindByForeignKey(ctx context.Context, entity, column string, ids []int64) ([]*Record, error)
}

// Model: схема сущности и её enum-атрибуты.
type Model struct {
	Schema *dsl.Entity
	Owners *binding.OwnerType[*Record]
}

// ModelOption настраивает OwnerType модели.
type ModelOption = binding.OwnerOption[*Record]

// NewModel строит привязки для всех enum[...] полей схемы.
func NewModel(schema *dsl.Entity, reg *enum.Registry, store Store, log *logger.Logger, opts ...ModelOption) (*Model, error) {
	fqn := schema.FQN()
	finder := binding.FinderFunc[*Record](func(ctx context.Context, column string, ids []int64) ([]*Record, error) {
		return store.FindByForeignKey(ctx, fqn, column, ids)
	})
	all := append([]ModelOption{
		binding.WithFinder[*Record](finder),
		binding.WithLogger[*Record](log),
	}, opts...)
	ot := binding.NewOwnerType[*Record](fqn, reg, all...)

	for _, f := range schema.EnumFields() {
		d := binding.Descriptor[*Record]{
			Attr:            f.Name,
			Type:            f.EnumType,
			ForeignKey:      f.ForeignKey(),
			OnLookupFailure: f.Options["on_lookup_failure"],
			PermitEmptyName: f.Flag("permit_empty_name"),
			NoScope:         strings.EqualFold(f.Options["create_scope"], "false"),
		}
		if def, ok := f.Option("default"); ok {
			d.Default = enumDefault(def)
		}
		if _, err := ot.HasEnumerated(d); err != nil {
			return nil, err
		}
	}
	return &Model{Schema: schema, Owners: ot}, nil
}

// enumDefault: целое: id, иначе символьное имя.
func enumDefault(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return enum.Symbol(s)
}

var systemFields = []string{"id", "created_at", "updated_at"}

// Apply переносит payload в запись: примитивы приводятся к типам схемы,
// enum-атрибуты пишутся через привязки. На создании подставляются значения
// по умолчанию. Ошибки полей возвращаются списком, прочие: error.
func (m *Model) Apply(ctx context.Context, rec *Record, payload map[string]any, create bool) (Errors, error) {
	var errs Errors

	for _, k := range systemFields {
		if _, ok := payload[k]; ok {
			errs.add(ErrReadOnly, k, "Field '"+k+"' is read-only")
		}
	}
	// version: подсказка для optimistic lock, в Data не пишется
	delete(payload, "version")

	for name, val := range payload {
		if isSystem(name) {
			continue
		}
		f, ok := m.Schema.Field(name)
		if !ok {
			errs.add(ErrUnknownField, name, "Unknown field '"+name+"'")
			continue
		}
		if !create && f.Flag("readonly") {
			errs.add(ErrReadOnly, name, "Field '"+name+"' is read-only")
			continue
		}
		if f.IsEnumerated() {
			if err := m.Owners.Set(ctx, rec, name, val); err != nil {
				fe, ok := enumFieldError(name, err)
				if !ok {
					return nil, err
				}
				errs = append(errs, fe)
			}
			continue
		}
		if val == nil {
			rec.Data[name] = nil
			continue
		}
		norm, err := coerceValue(f.Type, val)
		if err != nil {
			errs.add(ErrTypeMismatch, name, "Field '"+name+"' "+err.Error())
			continue
		}
		rec.Data[name] = norm
	}

	if create {
		m.applyDefaults(rec)
		for _, b := range m.Owners.Bindings() {
			if err := b.ApplyDefault(ctx, rec); err != nil {
				fe, ok := enumFieldError(b.Attr(), err)
				if !ok {
					return nil, err
				}
				errs = append(errs, fe)
			}
		}
	}

	for _, f := range m.Schema.Fields {
		if !f.Flag("required") {
			continue
		}
		missing := rec.Data[f.Name] == nil
		if f.IsEnumerated() {
			v, err := m.Owners.Get(ctx, rec, f.Name)
			if err != nil {
				return nil, err
			}
			missing = v == nil
		}
		if missing && !hasError(errs, f.Name) {
			errs.add(ErrRequired, f.Name, "Field '"+f.Name+"' is required")
		}
	}

	m.Owners.Validate(rec, &errs)
	return errs, nil
}

// applyDefaults: default= для отсутствующих примитивных полей.
func (m *Model) applyDefaults(rec *Record) {
	for _, f := range m.Schema.Fields {
		if f.IsEnumerated() {
			continue
		}
		def, ok := f.Option("default")
		if !ok {
			continue
		}
		if _, exists := rec.Data[f.Name]; exists {
			continue
		}
		// некорректный default просто не подставляем
		if v, err := coerceValue(f.Type, def); err == nil {
			rec.Data[f.Name] = v
		}
	}
}

// Render: данные записи плюс enum-атрибуты: имя члена справочника,
// удержанное отвергнутое значение или nil.
func (m *Model) Render(ctx context.Context, rec *Record) (map[string]any, error) {
	out := map[string]any{
		"id":         rec.ID,
		"version":    rec.Version,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
	data := maps.Clone(rec.Data)
	if data == nil {
		data = map[string]any{}
	}
	for _, attr := range m.Owners.EnumeratedAttributes() {
		v, err := m.Owners.Get(ctx, rec, attr)
		if err != nil {
			return nil, err
		}
		if e, ok := v.(*enum.Instance); ok {
			data[attr] = e.Name()
		} else {
			data[attr] = v
		}
	}
	out["data"] = data
	return out, nil
}

// enumFieldError переводит ошибки записи enum-атрибута в ошибку поля.
func enumFieldError(field string, err error) (FieldError, bool) {
	switch {
	case errors.Is(err, binding.ErrInvalidArgument), errors.Is(err, enum.ErrNotFound):
		return ferr(ErrEnumInvalid, field, "Invalid value for '"+field+"'"), true
	case errors.Is(err, enum.ErrInvalidKeyType):
		return ferr(ErrTypeMismatch, field, fmt.Sprintf("Field '%s' must be a name or an id", field)), true
	default:
		return FieldError{}, false
	}
}

func isSystem(name string) bool {
	for _, s := range systemFields {
		if s == name {
			return true
		}
	}
	return false
}

func hasError(errs Errors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
