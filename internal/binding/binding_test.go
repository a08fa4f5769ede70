package binding

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refenum/internal/enum"
)

type booking struct {
	id      int
	fks     map[string]any
	invalid InvalidValues
}

func newBooking(id int) *booking { return &booking{id: id, fks: map[string]any{}} }

func (b *booking) ForeignKey(col string) any       { return b.fks[col] }
func (b *booking) SetForeignKey(col string, v any) { b.fks[col] = v }
func (b *booking) InvalidValues() *InvalidValues   { return &b.invalid }

type sink map[string][]string

func (s sink) AddError(field, msg string) { s[field] = append(s[field], msg) }

var tables = map[string][]enum.Row{
	"booking_statuses": {
		{"id": int64(1), "name": "confirmed"},
		{"id": int64(2), "name": "received"},
		{"id": int64(3), "name": "rejected"},
	},
	"states": {
		{"id": int64(1), "state_code": "IL"},
		{"id": int64(2), "state_code": "WI"},
	},
}

func newRegistry(t *testing.T) *enum.Registry {
	t.Helper()
	src := enum.SourceFunc(func(_ context.Context, q enum.Query) ([]enum.Row, error) {
		out := make([]enum.Row, 0, len(tables[q.Table]))
		for _, r := range tables[q.Table] {
			out = append(out, maps.Clone(r))
		}
		return out, nil
	})
	reg := enum.NewRegistry(src, nil)
	require.NoError(t, reg.Define("BookingStatus", enum.Options{}))
	require.NoError(t, reg.Define("State", enum.Options{NameColumn: "state_code"}))
	return reg
}

func newBookingType(t *testing.T, opts ...OwnerOption[*booking]) *OwnerType[*booking] {
	t.Helper()
	ot := NewOwnerType[*booking]("Booking", newRegistry(t), opts...)
	_, err := ot.HasEnumerated(Descriptor[*booking]{Attr: "status", Type: "BookingStatus", Default: enum.Symbol("confirmed")})
	require.NoError(t, err)
	_, err = ot.HasEnumerated(Descriptor[*booking]{Attr: "state", OnLookupFailure: RetainForValidation})
	require.NoError(t, err)
	return ot
}

func TestSet_AcceptsEveryKeyKind(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)
	b := newBooking(1)

	rejected, err := ot.byAttr["status"].Type().Lookup(ctx, "rejected")
	require.NoError(t, err)

	cases := []struct {
		value any
		want  int64
	}{
		{"received", 2},
		{enum.Symbol("confirmed"), 1},
		{3, 3},
		{int64(2), 2},
		{float64(1), 1},
		{rejected, 3},
	}
	for _, tc := range cases {
		require.NoError(t, ot.Set(ctx, b, "status", tc.value), "value %s", enum.Inspect(tc.value))
		assert.Equal(t, tc.want, b.fks["status_id"])
		got, err := ot.Get(ctx, b, "status")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.(*enum.Instance).ID())
	}
}

func TestSet_UnresolvedWithoutHandlerIsArgumentError(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)
	b := newBooking(1)
	require.NoError(t, ot.Set(ctx, b, "status", "received"))

	err := ot.Set(ctx, b, "status", enum.Symbol("bogus"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "Booking: status= can't assign a BookingStatus for a value of (:bogus)", err.Error())
	assert.Equal(t, int64(2), b.fks["status_id"])
}

func TestSet_UnsupportedTypeIsKeyTypeError(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)
	b := newBooking(1)
	assert.ErrorIs(t, ot.Set(ctx, b, "status", 1.5), enum.ErrInvalidKeyType)
	assert.ErrorIs(t, ot.Set(ctx, b, "status", []string{"x"}), enum.ErrInvalidKeyType)

	il, err := ot.byAttr["state"].Type().Lookup(ctx, "IL")
	require.NoError(t, err)
	assert.ErrorIs(t, ot.Set(ctx, b, "status", il), enum.ErrInvalidKeyType)
}

func TestSet_NullAndEmpty(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ot := NewOwnerType[*booking]("Booking", newRegistry(t))
	_, err := ot.HasEnumerated(Descriptor[*booking]{
		Attr: "status",
		Type: "BookingStatus",
		Handler: func(context.Context, *booking, Op, string, string, *enum.Type, any) (any, error) {
			calls++
			return nil, nil
		},
	})
	require.NoError(t, err)

	for _, v := range []any{nil, "", "   ", (*enum.Instance)(nil)} {
		b := newBooking(1)
		require.NoError(t, ot.Set(ctx, b, "status", "confirmed"))
		require.NoError(t, ot.Set(ctx, b, "status", v))
		assert.Nil(t, b.fks["status_id"])
		got, err := ot.Get(ctx, b, "status")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Zero(t, calls)
}

func TestSet_PermitEmptyName(t *testing.T) {
	ctx := context.Background()
	ot := NewOwnerType[*booking]("Booking", newRegistry(t))
	_, err := ot.HasEnumerated(Descriptor[*booking]{Attr: "status", Type: "BookingStatus", PermitEmptyName: true})
	require.NoError(t, err)

	b := newBooking(1)
	err = ot.Set(ctx, b, "status", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRetainForValidation(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)
	bnd, ok := ot.Binding("state")
	require.True(t, ok)
	assert.True(t, bnd.Retains())
	bnd, _ = ot.Binding("status")
	assert.False(t, bnd.Retains())

	b := newBooking(1)
	require.NoError(t, ot.Set(ctx, b, "state", "WI"))

	require.NoError(t, ot.Set(ctx, b, "state", enum.Symbol("XXX")))
	got, err := ot.Get(ctx, b, "state")
	require.NoError(t, err)
	assert.Equal(t, enum.Symbol("XXX"), got)
	assert.Equal(t, int64(2), b.fks["state_id"], "fk untouched")

	errs := sink{}
	ot.Validate(b, errs)
	assert.Equal(t, sink{"state": {"is invalid"}}, errs)

	require.NoError(t, ot.Set(ctx, b, "state", enum.Symbol("IL")))
	got, err = ot.Get(ctx, b, "state")
	require.NoError(t, err)
	assert.Equal(t, "IL", got.(*enum.Instance).Name())
	errs = sink{}
	ot.Validate(b, errs)
	assert.Empty(t, errs)
	assert.Zero(t, b.invalid.Len())
}

func TestRetain_NullClearsRetained(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)
	b := newBooking(1)
	require.NoError(t, ot.Set(ctx, b, "state", "XX"))
	require.NoError(t, ot.Set(ctx, b, "state", nil))
	got, err := ot.Get(ctx, b, "state")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, b.invalid.Len())
}

func TestDefaultInjection(t *testing.T) {
	ctx := context.Background()
	ot := newBookingType(t)

	fresh := newBooking(1)
	require.NoError(t, ot.Init(ctx, fresh))
	got, err := ot.byAttr["status"].Instance(ctx, fresh)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "confirmed", got.Name())

	set := newBooking(2)
	require.NoError(t, ot.Set(ctx, set, "status", "rejected"))
	require.NoError(t, ot.Init(ctx, set))
	assert.Equal(t, int64(3), set.fks["status_id"])
}

func TestHandlers_ReadAndWrite(t *testing.T) {
	ctx := context.Background()
	type call struct {
		op    Op
		attr  string
		fk    string
		typ   string
		value any
	}
	var calls []call
	ot := NewOwnerType[*booking]("Booking", newRegistry(t),
		WithMethod[*booking]("on_miss", func(_ context.Context, _ *booking, op Op, attr, fk string, typ *enum.Type, v any) (any, error) {
			calls = append(calls, call{op, attr, fk, typ.Name(), v})
			if op == OpRead {
				return "unknown", nil
			}
			return nil, nil
		}),
	)
	_, err := ot.HasEnumerated(Descriptor[*booking]{Attr: "status", Type: "booking_status", ForeignKey: "status_code_id", OnLookupFailure: "on_miss"})
	require.NoError(t, err)

	b := newBooking(1)
	require.NoError(t, ot.Set(ctx, b, "status", "nope"))
	b.fks["status_code_id"] = int64(99)
	got, err := ot.Get(ctx, b, "status")
	require.NoError(t, err)
	assert.Equal(t, "unknown", got)

	assert.Equal(t, []call{
		{OpWrite, "status", "status_code_id", "BookingStatus", "nope"},
		{OpRead, "status", "status_code_id", "BookingStatus", int64(99)},
	}, calls)
}

func TestHasEnumerated_Declarations(t *testing.T) {
	ot := newBookingType(t)
	assert.True(t, ot.IsEnumerated("status"))
	assert.True(t, ot.IsEnumerated("state"))
	assert.False(t, ot.IsEnumerated("name"))
	assert.False(t, ot.IsEnumerated(""))
	assert.Equal(t, []string{"status", "state"}, ot.EnumeratedAttributes())

	_, err := ot.HasEnumerated(Descriptor[*booking]{Attr: "status"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	_, err = ot.HasEnumerated(Descriptor[*booking]{Attr: "kind", Type: "Nope"})
	assert.ErrorIs(t, err, enum.ErrUnknownType)
	_, err = ot.HasEnumerated(Descriptor[*booking]{Attr: "other", Type: "BookingStatus", OnLookupFailure: "missing"})
	assert.ErrorIs(t, err, ErrUnknownHandler)
	_, err = ot.HasEnumerated(Descriptor[*booking]{Attr: "bad attr", Type: "BookingStatus"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	_, err = ot.Get(context.Background(), newBooking(1), "name")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestScopes(t *testing.T) {
	ctx := context.Background()
	var owners []*booking
	finder := FinderFunc[*booking](func(_ context.Context, col string, ids []int64) ([]*booking, error) {
		var out []*booking
		for _, o := range owners {
			if id, ok := enum.ToInt64(o.fks[col]); ok && slices.Contains(ids, id) {
				out = append(out, o)
			}
		}
		return out, nil
	})
	ot := newBookingType(t, WithFinder[*booking](finder))
	for i, st := range []any{"confirmed", "received", "rejected", nil} {
		b := newBooking(i + 1)
		require.NoError(t, ot.Set(ctx, b, "status", st))
		owners = append(owners, b)
	}

	ids := func(bs []*booking) []int {
		out := make([]int, len(bs))
		for i, b := range bs {
			out[i] = b.id
		}
		return out
	}

	got, err := ot.With(ctx, "status", enum.Symbol("confirmed"), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(got))

	got, err = ot.Exclude(ctx, "status", "received")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(got))

	got, err = ot.Scope(ctx, "with_statuses", "received")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(got))

	got, err = ot.Scope(ctx, "with_status", "bogus")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ot.Scope(ctx, "with_nothing")
	assert.ErrorIs(t, err, ErrUnknownScope)
	assert.Contains(t, ot.Scopes(), "exclude_states")
}

func TestScopes_Disabled(t *testing.T) {
	ot := NewOwnerType[*booking]("Booking", newRegistry(t))
	_, err := ot.HasEnumerated(Descriptor[*booking]{Attr: "status", Type: "BookingStatus", NoScope: true})
	require.NoError(t, err)
	assert.Empty(t, ot.Scopes())
	_, err = ot.With(context.Background(), "status", 1)
	assert.ErrorIs(t, err, ErrUnknownScope)
}
