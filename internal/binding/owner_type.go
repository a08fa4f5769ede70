package binding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/naming"
)

// OwnerType: набор has-enumerated атрибутов одного типа владельца.
// Объявления делаются при старте; после этого тип только читается.
type OwnerType[O Owner] struct {
	name     string
	reg      *enum.Registry
	finder   Finder[O]
	methods  map[string]HandlerFunc[O]
	log      *logger.Logger
	bindings []*Binding[O]
	byAttr   map[string]*Binding[O]
	scopes   map[string]scope
}

type scope struct {
	attr    string
	exclude bool
}

// OwnerOption настраивает OwnerType.
type OwnerOption[O Owner] func(*OwnerType[O])

// WithFinder: выборка владельцев для with_/exclude_ скоупов.
func WithFinder[O Owner](f Finder[O]) OwnerOption[O] {
	return func(ot *OwnerType[O]) { ot.finder = f }
}

// WithMethod регистрирует именованный обработчик промаха.
func WithMethod[O Owner](name string, fn HandlerFunc[O]) OwnerOption[O] {
	return func(ot *OwnerType[O]) { ot.methods[name] = fn }
}

func WithLogger[O Owner](l *logger.Logger) OwnerOption[O] {
	return func(ot *OwnerType[O]) { ot.log = l.With(logger.CatBinding) }
}

func NewOwnerType[O Owner](name string, reg *enum.Registry, opts ...OwnerOption[O]) *OwnerType[O] {
	ot := &OwnerType[O]{
		name:    name,
		reg:     reg,
		methods: make(map[string]HandlerFunc[O]),
		byAttr:  make(map[string]*Binding[O]),
		scopes:  make(map[string]scope),
	}
	for _, o := range opts {
		o(ot)
	}
	if ot.log == nil {
		ot.log = logger.Discard()
	}
	return ot
}

func (ot *OwnerType[O]) Name() string { return ot.name }

// HasEnumerated объявляет атрибут по дескриптору.
func (ot *OwnerType[O]) HasEnumerated(d Descriptor[O]) (*Binding[O], error) {
	d = d.withDefaults()
	if err := naming.Validator().Struct(d); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, fmt.Errorf("%w: %s.%s: %s failed on %q", ErrInvalidDescriptor, ot.name, d.Attr, ve[0].Field(), ve[0].Tag())
		}
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidDescriptor, ot.name, d.Attr, err)
	}
	if _, dup := ot.byAttr[d.Attr]; dup {
		return nil, fmt.Errorf("%w: %s.%s declared twice", ErrInvalidDescriptor, ot.name, d.Attr)
	}
	h, err := ot.handlerFor(d)
	if err != nil {
		return nil, err
	}
	typ, err := ot.reg.Type(d.Type)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", ot.name, d.Attr, err)
	}

	b := &Binding[O]{owner: ot.name, desc: d, typ: typ, handler: h, log: ot.log}
	ot.bindings = append(ot.bindings, b)
	ot.byAttr[d.Attr] = b
	if !d.NoScope {
		for _, n := range scopeNames(d.Attr) {
			ot.scopes["with_"+n] = scope{attr: d.Attr}
			ot.scopes["exclude_"+n] = scope{attr: d.Attr, exclude: true}
		}
	}
	return b, nil
}

func (ot *OwnerType[O]) handlerFor(d Descriptor[O]) (handler[O], error) {
	name := strings.TrimSpace(d.OnLookupFailure)
	switch {
	case d.Handler != nil && name != "":
		return handler[O]{}, fmt.Errorf("%w: %s.%s: both handler func and %q given", ErrInvalidDescriptor, ot.name, d.Attr, name)
	case d.Handler != nil:
		return handler[O]{kind: handlerFunc, fn: d.Handler}, nil
	case name == "":
		return handler[O]{}, nil
	case name == RetainForValidation:
		return handler[O]{kind: handlerRetain}, nil
	}
	fn, ok := ot.methods[name]
	if !ok {
		return handler[O]{}, fmt.Errorf("%w: %s.%s: %q", ErrUnknownHandler, ot.name, d.Attr, name)
	}
	return handler[O]{kind: handlerFunc, name: name, fn: fn}, nil
}

// IsEnumerated: объявлен ли attr как has-enumerated.
func (ot *OwnerType[O]) IsEnumerated(attr string) bool {
	if attr == "" {
		return false
	}
	_, ok := ot.byAttr[attr]
	return ok
}

// EnumeratedAttributes: атрибуты в порядке объявления.
func (ot *OwnerType[O]) EnumeratedAttributes() []string {
	out := make([]string, len(ot.bindings))
	for i, b := range ot.bindings {
		out[i] = b.desc.Attr
	}
	return out
}

func (ot *OwnerType[O]) Binding(attr string) (*Binding[O], bool) {
	b, ok := ot.byAttr[attr]
	return b, ok
}

func (ot *OwnerType[O]) Bindings() []*Binding[O] { return slices.Clone(ot.bindings) }

func (ot *OwnerType[O]) binding(attr string) (*Binding[O], error) {
	b, ok := ot.byAttr[attr]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, ot.name, attr)
	}
	return b, nil
}

func (ot *OwnerType[O]) Get(ctx context.Context, o O, attr string) (any, error) {
	b, err := ot.binding(attr)
	if err != nil {
		return nil, err
	}
	return b.Get(ctx, o)
}

func (ot *OwnerType[O]) Set(ctx context.Context, o O, attr string, v any) error {
	b, err := ot.binding(attr)
	if err != nil {
		return err
	}
	return b.Set(ctx, o, v)
}

// Init применяет значения по умолчанию после создания владельца.
func (ot *OwnerType[O]) Init(ctx context.Context, o O) error {
	for _, b := range ot.bindings {
		if err := b.ApplyDefault(ctx, o); err != nil {
			return fmt.Errorf("%s.%s default: %w", ot.name, b.desc.Attr, err)
		}
	}
	return nil
}

// Validate собирает ошибки удержанных значений всех атрибутов.
func (ot *OwnerType[O]) Validate(o O, sink ErrorSink) {
	for _, b := range ot.bindings {
		b.Validate(o, sink)
	}
}

// With: владельцы, чей атрибут разрешается в один из keys.
// Ключи, разрешившиеся в nil, пропускаются.
func (ot *OwnerType[O]) With(ctx context.Context, attr string, keys ...any) ([]O, error) {
	b, err := ot.scoped(attr)
	if err != nil {
		return nil, err
	}
	ids, err := resolveIDs(ctx, b.typ, keys)
	if err != nil {
		return nil, err
	}
	return ot.finder.FindByForeignKey(ctx, b.desc.ForeignKey, ids)
}

// Exclude: владельцы, чей атрибут разрешается в любой член, кроме keys.
// Владельцы с пустым FK не попадают ни в With, ни в Exclude.
func (ot *OwnerType[O]) Exclude(ctx context.Context, attr string, keys ...any) ([]O, error) {
	b, err := ot.scoped(attr)
	if err != nil {
		return nil, err
	}
	skip, err := resolveIDs(ctx, b.typ, keys)
	if err != nil {
		return nil, err
	}
	all, err := b.typ.All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(all))
	for _, e := range all {
		if !slices.Contains(skip, e.ID()) {
			ids = append(ids, e.ID())
		}
	}
	return ot.finder.FindByForeignKey(ctx, b.desc.ForeignKey, ids)
}

// Scope вызывает скоуп по имени: with_status, with_statuses, exclude_status...
func (ot *OwnerType[O]) Scope(ctx context.Context, name string, keys ...any) ([]O, error) {
	s, ok := ot.scopes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownScope, ot.name, name)
	}
	if s.exclude {
		return ot.Exclude(ctx, s.attr, keys...)
	}
	return ot.With(ctx, s.attr, keys...)
}

// Scopes: имена всех скоупов, по алфавиту.
func (ot *OwnerType[O]) Scopes() []string {
	out := make([]string, 0, len(ot.scopes))
	for n := range ot.scopes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (ot *OwnerType[O]) scoped(attr string) (*Binding[O], error) {
	b, err := ot.binding(attr)
	if err != nil {
		return nil, err
	}
	if b.desc.NoScope {
		return nil, fmt.Errorf("%w: %s.%s has no scopes", ErrUnknownScope, ot.name, attr)
	}
	if ot.finder == nil {
		return nil, fmt.Errorf("%s: %w", ot.name, ErrNoFinder)
	}
	return b, nil
}

func resolveIDs(ctx context.Context, typ *enum.Type, keys []any) ([]int64, error) {
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		e, err := typ.Lookup(ctx, k)
		if err != nil {
			return nil, err
		}
		if e != nil && !slices.Contains(ids, e.ID()) {
			ids = append(ids, e.ID())
		}
	}
	return ids, nil
}

func scopeNames(attr string) []string {
	if p := naming.Plural(attr); p != attr {
		return []string{attr, p}
	}
	return []string{attr}
}
