package enum

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"refenum/internal/logger"
	"refenum/internal/naming"
)

// Options: декларация справочного типа.
type Options struct {
	Table      string         `validate:"required,sqlident"`
	NameColumn string         `validate:"required,sqlident"`
	Conditions string
	Args       []any          `validate:"-"`
	Where      map[string]any `validate:"omitempty,dive,keys,sqlident,endkeys"`
	Order      string         `validate:"omitempty,sqlorder"`

	OnLookupFailure Policy `validate:"-"`
	// FreezeMembers вычисляется при каждой загрузке; nil: замораживать.
	FreezeMembers func() bool `validate:"-"`
	// Methods: именованные обработчики для Method(name).
	Methods map[string]MethodFunc `validate:"-"`
	// RejectDuplicates: повтор id или имени в данных: ошибка загрузки,
	// иначе побеждает последняя строка (с предупреждением в лог).
	RejectDuplicates bool
}

// withDefaults заполняет таблицу и колонку имени.
func (o Options) withDefaults(typeName string) Options {
	if strings.TrimSpace(o.Table) == "" {
		o.Table = naming.TableName(typeName)
	}
	if strings.TrimSpace(o.NameColumn) == "" {
		o.NameColumn = "name"
	}
	return o
}

func (o Options) validate(typeName string) error {
	if strings.TrimSpace(typeName) == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidOptions)
	}
	if err := naming.Validator().Struct(o); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			f := ve[0]
			return fmt.Errorf("%w: %s: %s failed on %q", ErrInvalidOptions, typeName, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidOptions, typeName, err)
	}
	if o.OnLookupFailure.kind == policyMethod {
		if _, ok := o.Methods[o.OnLookupFailure.method]; !ok {
			return fmt.Errorf("%s: %w: %q", typeName, ErrUnknownMethod, o.OnLookupFailure.method)
		}
	}
	return nil
}

// Type: справочный тип: закрытый набор строк таблицы, кэшируемый целиком.
type Type struct {
	name  string
	key   string
	opts  Options
	src   Source
	cache *Cache
	log   *logger.Logger

	updateMu  sync.Mutex
	permitted atomic.Bool
	updating  atomic.Bool
}

// TypeOption настраивает тип при создании.
type TypeOption func(*Type)

// WithCache: общий кэш (например, реестра). По умолчанию у типа свой.
func WithCache(c *Cache) TypeOption {
	return func(t *Type) {
		if c != nil {
			t.cache = c
		}
	}
}

func WithLogger(l *logger.Logger) TypeOption {
	return func(t *Type) { t.log = l.With(logger.CatEnum) }
}

// NewType объявляет тип name поверх источника src.
func NewType(name string, src Source, opts Options, options ...TypeOption) (*Type, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: %s: nil source", ErrInvalidOptions, name)
	}
	opts = opts.withDefaults(name)
	if err := opts.validate(name); err != nil {
		return nil, err
	}
	t := &Type{
		name: name,
		key:  naming.Key(name),
		opts: opts,
		src:  src,
	}
	for _, o := range options {
		o(t)
	}
	if t.cache == nil {
		t.cache = NewCache()
	}
	if t.log == nil {
		t.log = logger.Discard()
	}
	return t, nil
}

func (t *Type) Name() string                { return t.name }
func (t *Type) Table() string               { return t.opts.Table }
func (t *Type) NameColumn() string          { return t.opts.NameColumn }
func (t *Type) LookupFailurePolicy() Policy { return t.opts.OnLookupFailure }

func (t *Type) notFound(k any) error {
	return &NotFoundError{Type: t.name, Key: k}
}

func (t *Type) keyTypeError(op string, k any) error {
	return &KeyTypeError{Type: t.name, Op: op, Key: k}
}

// freezes: замораживать ли члены при очередной загрузке.
func (t *Type) freezes() bool {
	if t.updating.Load() {
		return false
	}
	return t.opts.FreezeMembers == nil || t.opts.FreezeMembers()
}

func (t *Type) query() Query {
	return Query{
		Table:      t.opts.Table,
		Conditions: t.opts.Conditions,
		Args:       t.opts.Args,
		Where:      t.opts.Where,
		Order:      t.opts.Order,
	}
}
