package enum

import (
	"context"
	"fmt"
	"strings"
)

// SetUpdatesPermitted открывает (или закрывает) сброс кэша и изменение членов.
func (t *Type) SetUpdatesPermitted(v bool) { t.permitted.Store(v) }

func (t *Type) UpdatesPermitted() bool { return t.permitted.Load() }

// Updating: открыто ли окно Update.
func (t *Type) Updating() bool { return t.updating.Load() }

// Purge сбрасывает снапшот; следующее чтение перезагрузит источник.
func (t *Type) Purge() error {
	if !t.permitted.Load() {
		return &PermissionDeniedError{Type: t.name, Op: "purge_enumerations_cache"}
	}
	t.purge()
	t.log.Debug(context.Background(), "enum cache purged", "type", t.name)
	return nil
}

// Update открывает окно изменений: разрешает сброс, перезагружает члены
// незамороженными и вызывает fn. Снапшот сбрасывается и флаги
// закрываются при любом исходе, включая панику в fn.
// Вызовы Update одного типа сериализуются.
func (t *Type) Update(ctx context.Context, fn func(ctx context.Context, t *Type) error) error {
	t.updateMu.Lock()
	defer t.updateMu.Unlock()

	t.permitted.Store(true)
	t.purge()
	t.updating.Store(true)
	defer func() {
		t.purge()
		t.updating.Store(false)
		t.permitted.Store(false)
	}()

	if _, err := t.snapshot(ctx); err != nil {
		return err
	}
	t.log.Info(ctx, "enum update window opened", "type", t.name)
	if fn == nil {
		return nil
	}
	if err := fn(ctx, t); err != nil {
		return fmt.Errorf("%s: update: %w", t.name, err)
	}
	return nil
}

// CreateMember добавляет строку в источник. Требует разрешения на изменения;
// имя обязательно и уникально.
func (t *Type) CreateMember(ctx context.Context, row Row) (*Instance, error) {
	if !t.permitted.Load() {
		return nil, &PermissionDeniedError{Type: t.name, Op: "changes to enumeration members are"}
	}
	ms, ok := t.src.(MutableSource)
	if !ok {
		return nil, fmt.Errorf("%s: %w", t.name, ErrImmutableSource)
	}
	name := strings.TrimSpace(toString(row[t.opts.NameColumn]))
	if name == "" {
		return nil, fmt.Errorf("%s: %w: %s can't be blank", t.name, ErrInvalidMember, t.opts.NameColumn)
	}
	if existing, err := t.LookupName(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%s: %w: %s %q has already been taken", t.name, ErrInvalidMember, t.opts.NameColumn, name)
	}
	clean := make(Row, len(row))
	for k, v := range row {
		if k == "id" {
			continue
		}
		clean[k] = v
	}
	clean[t.opts.NameColumn] = name
	id, err := ms.InsertRow(ctx, t.opts.Table, clean)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", t.name, err)
	}
	t.purge()
	t.log.Info(ctx, "enum member created", "type", t.name, "id", id, "name", name)
	return t.LookupID(ctx, id)
}

// DestroyMember удаляет члена по любому поддерживаемому ключу.
func (t *Type) DestroyMember(ctx context.Context, k any) error {
	if !t.permitted.Load() {
		return &PermissionDeniedError{Type: t.name, Op: "changes to enumeration members are"}
	}
	ms, ok := t.src.(MutableSource)
	if !ok {
		return fmt.Errorf("%s: %w", t.name, ErrImmutableSource)
	}
	e, err := t.LookupWith(ctx, k, EnforceStrict)
	if err != nil {
		return err
	}
	if e == nil {
		return t.notFound(k)
	}
	if err := ms.DeleteRow(ctx, t.opts.Table, e.id); err != nil {
		return fmt.Errorf("%s: delete: %w", t.name, err)
	}
	t.purge()
	t.log.Info(ctx, "enum member destroyed", "type", t.name, "id", e.id, "name", e.name)
	return nil
}
