package binding

import (
	"context"
	"strings"

	"refenum/internal/enum"
	"refenum/internal/logger"
)

// Descriptor: объявление has-enumerated атрибута.
type Descriptor[O Owner] struct {
	Attr string `validate:"required,sqlident"`
	// Type: имя справочного типа; по умолчанию совпадает с Attr.
	Type string
	// ForeignKey: FK-колонка; по умолчанию Attr + "_id".
	ForeignKey string `validate:"omitempty,sqlident"`
	// OnLookupFailure: RetainForValidation или имя метода владельца.
	OnLookupFailure string
	// Handler: обработчик-функция; взаимоисключающ с OnLookupFailure.
	Handler HandlerFunc[O] `validate:"-"`
	// PermitEmptyName отключает превращение пустой строки в nil.
	PermitEmptyName bool
	Default         any `validate:"-"`
	// NoScope отключает with_/exclude_ выборки.
	NoScope bool
}

func (d Descriptor[O]) withDefaults() Descriptor[O] {
	d.Attr = strings.TrimSpace(d.Attr)
	if strings.TrimSpace(d.Type) == "" {
		d.Type = d.Attr
	}
	if strings.TrimSpace(d.ForeignKey) == "" {
		d.ForeignKey = d.Attr + "_id"
	}
	return d
}

// Binding: пара аксессоров для одного атрибута, построенная по дескриптору.
type Binding[O Owner] struct {
	owner   string
	desc    Descriptor[O]
	typ     *enum.Type
	handler handler[O]
	log     *logger.Logger
}

func (b *Binding[O]) Attr() string           { return b.desc.Attr }
func (b *Binding[O]) ForeignKey() string     { return b.desc.ForeignKey }
func (b *Binding[O]) Type() *enum.Type       { return b.typ }
func (b *Binding[O]) Default() any           { return b.desc.Default }
func (b *Binding[O]) HasScope() bool         { return !b.desc.NoScope }
func (b *Binding[O]) Handler() string        { return b.handler.String() }
func (b *Binding[O]) Retains() bool          { return b.handler.kind == handlerRetain }
func (b *Binding[O]) PermitsEmptyName() bool { return b.desc.PermitEmptyName }

// Get читает атрибут: удержанное отвергнутое значение как есть, иначе
// член справочника по id из FK. Промах по непустому FK уходит обработчику.
func (b *Binding[O]) Get(ctx context.Context, o O) (any, error) {
	if v, ok := o.InvalidValues().Get(b.desc.Attr); ok {
		return v, nil
	}
	fk := o.ForeignKey(b.desc.ForeignKey)
	if fk == nil {
		return nil, nil
	}
	if id, ok := enum.ToInt64(fk); ok {
		e, err := b.typ.LookupID(ctx, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	if !b.handler.configured() {
		return nil, nil
	}
	return b.invoke(ctx, o, OpRead, fk)
}

// Instance: то же, что Get, но только разрешённый член (или nil).
func (b *Binding[O]) Instance(ctx context.Context, o O) (*enum.Instance, error) {
	v, err := b.Get(ctx, o)
	if err != nil {
		return nil, err
	}
	e, _ := v.(*enum.Instance)
	return e, nil
}

// Set записывает атрибут. nil (и пустая строка, если не PermitEmptyName)
// обнуляет FK и сбрасывает удержанное значение.
func (b *Binding[O]) Set(ctx context.Context, o O, v any) error {
	iv := o.InvalidValues()
	if !b.desc.PermitEmptyName && blank(v) {
		v = nil
	}
	if e, ok := v.(*enum.Instance); ok && e == nil {
		v = nil
	}

	var (
		found *enum.Instance
		err   error
	)
	switch k := v.(type) {
	case nil:
		o.SetForeignKey(b.desc.ForeignKey, nil)
		iv.Clear(b.desc.Attr)
		return nil
	case *enum.Instance:
		if k.TypeName() != b.typ.Name() {
			return b.typeError(v)
		}
		found, err = b.typ.LookupID(ctx, k.ID())
	case string:
		found, err = b.typ.LookupName(ctx, k)
	case enum.Symbol:
		found, err = b.typ.LookupName(ctx, string(k))
	default:
		id, ok := enum.ToInt64(v)
		if !ok {
			return b.typeError(v)
		}
		found, err = b.typ.LookupID(ctx, id)
	}
	if err != nil {
		return err
	}

	if found == nil {
		if !b.handler.configured() {
			return &ArgumentError{Owner: b.owner, Attr: b.desc.Attr, Type: b.typ.Name(), Value: v}
		}
		iv.Clear(b.desc.Attr)
		_, err := b.invoke(ctx, o, OpWrite, v)
		return err
	}
	iv.Clear(b.desc.Attr)
	o.SetForeignKey(b.desc.ForeignKey, found.ID())
	return nil
}

// ApplyDefault записывает значение по умолчанию, если атрибут читается как nil.
func (b *Binding[O]) ApplyDefault(ctx context.Context, o O) error {
	if b.desc.Default == nil {
		return nil
	}
	cur, err := b.Get(ctx, o)
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}
	return b.Set(ctx, o, b.desc.Default)
}

// Validate добавляет "is invalid", если запись была отвергнута
// и удержана (только для RetainForValidation).
func (b *Binding[O]) Validate(o O, sink ErrorSink) {
	if !b.Retains() {
		return
	}
	if _, ok := o.InvalidValues().Get(b.desc.Attr); ok {
		sink.AddError(b.desc.Attr, "is invalid")
	}
}

func (b *Binding[O]) invoke(ctx context.Context, o O, op Op, value any) (any, error) {
	switch b.handler.kind {
	case handlerRetain:
		if op == OpWrite {
			o.InvalidValues().Set(b.desc.Attr, value)
			b.log.Debug(ctx, "enum value retained for validation",
				"owner", b.owner, "attr", b.desc.Attr, "value", enum.Inspect(value))
		}
		return nil, nil
	case handlerFunc:
		return b.handler.fn(ctx, o, op, b.desc.Attr, b.desc.ForeignKey, b.typ, value)
	default:
		return nil, nil
	}
}

func (b *Binding[O]) typeError(v any) error {
	return &enum.KeyTypeError{Type: b.typ.Name(), Op: "#" + b.desc.Attr + "=", Key: v}
}

func blank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case enum.Symbol:
		return strings.TrimSpace(string(s)) == ""
	default:
		return false
	}
}
