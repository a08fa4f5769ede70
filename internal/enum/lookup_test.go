package enum

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_FoundByEveryKeyKind(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{})

	byID, err := typ.Lookup(ctx, 1)
	require.NoError(t, err)
	byName, err := typ.Lookup(ctx, "confirmed")
	require.NoError(t, err)
	bySym, err := typ.Lookup(ctx, Symbol("confirmed"))
	require.NoError(t, err)
	byInst, err := typ.Lookup(ctx, byID)
	require.NoError(t, err)

	require.NotNil(t, byID)
	assert.Same(t, byID, byName)
	assert.Same(t, byID, bySym)
	assert.Same(t, byID, byInst)
	assert.Equal(t, int64(1), byID.ID())
	assert.Equal(t, Symbol("confirmed"), byID.Symbol())
	assert.Equal(t, "confirmed", byID.String())

	u, err := typ.Lookup(ctx, uint8(2))
	require.NoError(t, err)
	assert.Equal(t, "received", u.Name())
}

func TestLookup_FailurePolicies(t *testing.T) {
	type want int
	const (
		wantNil want = iota
		wantNotFound
		wantKeyType
	)
	keys := []any{99, "foo", Symbol("foo"), nil, 1.5}
	cases := []struct {
		policy Policy
		want   []want
	}{
		{EnforceNone, []want{wantNil, wantNil, wantNil, wantNil, wantKeyType}},
		{EnforceStrict, []want{wantNotFound, wantNotFound, wantNotFound, wantNil, wantKeyType}},
		{EnforceStrictIDs, []want{wantNotFound, wantNil, wantNil, wantNil, wantKeyType}},
		{EnforceStrictSymbols, []want{wantNil, wantNil, wantNotFound, wantNil, wantKeyType}},
		{EnforceStrictLiterals, []want{wantNotFound, wantNil, wantNotFound, wantNil, wantKeyType}},
	}
	ctx := context.Background()
	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			typ, _ := newBookingStatus(t, Options{OnLookupFailure: tc.policy})
			for i, k := range keys {
				e, err := typ.Lookup(ctx, k)
				switch tc.want[i] {
				case wantNil:
					assert.NoError(t, err, "key %s", Inspect(k))
					assert.Nil(t, e, "key %s", Inspect(k))
				case wantNotFound:
					assert.ErrorIs(t, err, ErrNotFound, "key %s", Inspect(k))
				case wantKeyType:
					assert.ErrorIs(t, err, ErrInvalidKeyType, "key %s", Inspect(k))
				}
			}
		})
	}
}

func TestLookup_NotFoundMessage(t *testing.T) {
	typ, _ := newBookingStatus(t, Options{OnLookupFailure: EnforceStrict})
	_, err := typ.Lookup(context.Background(), Symbol("foo"))
	require.Error(t, err)
	assert.Equal(t, "couldn't find a BookingStatus identified by (:foo)", err.Error())

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, Symbol("foo"), nf.Key)
}

func TestLookup_MethodAndCallablePolicies(t *testing.T) {
	ctx := context.Background()
	var seen []any
	typ, _ := newBookingStatus(t, Options{
		OnLookupFailure: Method("fallback"),
		Methods: map[string]MethodFunc{
			"fallback": func(ctx context.Context, t *Type, key any) (*Instance, error) {
				seen = append(seen, key)
				return t.LookupID(ctx, 2)
			},
		},
	})
	e, err := typ.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "received", e.Name())
	assert.Equal(t, []any{"missing"}, seen)

	// nil политику не вызывает
	e, err = typ.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Len(t, seen, 1)

	e, err = typ.LookupWith(ctx, 42, Callable(func(_ context.Context, key any) (*Instance, error) {
		seen = append(seen, key)
		return nil, nil
	}))
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Equal(t, []any{"missing", 42}, seen)
}

func TestNewType_UnknownMethodRejected(t *testing.T) {
	_, err := NewType("BookingStatus", newFakeSource(), Options{OnLookupFailure: Method("nope")})
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestNewType_OptionsValidation(t *testing.T) {
	src := newFakeSource()
	_, err := NewType("BookingStatus", src, Options{Table: "bad table"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = NewType("BookingStatus", src, Options{Order: "id; drop table x"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	_, err = NewType("BookingStatus", src, Options{Where: map[string]any{"1=1 or": true}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	typ, err := NewType("BookingStatus", src, Options{Order: "name DESC, id"})
	require.NoError(t, err)
	assert.Equal(t, "booking_statuses", typ.Table())
	assert.Equal(t, "name", typ.NameColumn())
}

func TestLookup_ForeignInstanceIsKeyTypeError(t *testing.T) {
	ctx := context.Background()
	typ, src := newBookingStatus(t, Options{})
	connectorTypes(src)
	ct, err := NewType("ConnectorType", src, Options{})
	require.NoError(t, err)
	vga, err := ct.Lookup(ctx, "VGA")
	require.NoError(t, err)

	_, err = typ.Lookup(ctx, vga)
	assert.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestLookupMany_DedupPreservesOrder(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{})

	got, err := typ.LookupMany(ctx, "rejected", 1, Symbol("rejected"), 3, "confirmed")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rejected", got[0].Name())
	assert.Equal(t, "confirmed", got[1].Name())

	got, err = typ.LookupMany(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookupMany_StrictPropagates(t *testing.T) {
	typ, _ := newBookingStatus(t, Options{OnLookupFailure: EnforceStrict})
	_, err := typ.LookupMany(context.Background(), 1, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNamesAndAllExcept(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{})

	names, err := typ.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Symbol{"confirmed", "received", "rejected"}, names)

	rest, err := typ.AllExcept(ctx, 1, Symbol("rejected"))
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "received", rest[0].Name())
}

func TestContainsAndIncludes(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{OnLookupFailure: EnforceStrict})

	for _, k := range []any{1, "received", Symbol("rejected")} {
		ok, err := typ.Contains(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, "key %s", Inspect(k))
	}
	for _, k := range []any{99, "foo", 2.5, struct{}{}} {
		ok, err := typ.Contains(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, "key %s", Inspect(k))
	}

	e, err := typ.Lookup(ctx, 2)
	require.NoError(t, err)
	ok, err := typ.Includes(ctx, e)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = typ.Contains(ctx, e)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContains_NilIsFalseForEveryPolicy(t *testing.T) {
	ctx := context.Background()
	called := false
	first := func(ctx context.Context, t *Type, _ any) (*Instance, error) {
		called = true
		return t.LookupID(ctx, 1)
	}
	cases := map[string]Options{
		"none":            {OnLookupFailure: EnforceNone},
		"strict":          {OnLookupFailure: EnforceStrict},
		"strict_ids":      {OnLookupFailure: EnforceStrictIDs},
		"strict_symbols":  {OnLookupFailure: EnforceStrictSymbols},
		"strict_literals": {OnLookupFailure: EnforceStrictLiterals},
		"method": {
			OnLookupFailure: Method("first"),
			Methods:         map[string]MethodFunc{"first": first},
		},
		"callable": {OnLookupFailure: Callable(func(context.Context, any) (*Instance, error) {
			called = true
			return nil, errors.New("must not be called")
		})},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			called = false
			typ, _ := newBookingStatus(t, opts)
			ok, err := typ.Contains(ctx, nil)
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = typ.Contains(ctx, (*Instance)(nil))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.False(t, called, "failure handler invoked for nil")
		})
	}
}

func TestIsLiteral(t *testing.T) {
	for _, k := range []any{1, int64(7), uint8(2), Symbol("rejected")} {
		assert.True(t, IsLiteral(k), "key %s", Inspect(k))
	}
	for _, k := range []any{nil, "received", 2.5, struct{}{}} {
		assert.False(t, IsLiteral(k), "key %s", Inspect(k))
	}
}

func TestMatches(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{})
	confirmed, err := typ.Lookup(ctx, "confirmed")
	require.NoError(t, err)

	cases := []struct {
		name string
		key  any
		want bool
	}{
		{"id", 1, true},
		{"string", "confirmed", true},
		{"symbol", Symbol("confirmed"), true},
		{"other", "rejected", false},
		{"missing", "nope", false},
		{"nil", nil, false},
		{"instance", confirmed, true},
		{"list", []any{"rejected", 1}, true},
		{"symbols", []Symbol{"received", "rejected"}, false},
		{"foreign", 2.5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := confirmed.Like(ctx, tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	in, err := confirmed.In(ctx, "received", Symbol("confirmed"))
	require.NoError(t, err)
	assert.True(t, in)
	in, err = confirmed.In(ctx)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestPartitions(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	connectorTypes(src)
	typ, err := NewType("ConnectorType", src, Options{})
	require.NoError(t, err)

	active, err := typ.Active(ctx)
	require.NoError(t, err)
	inactive, err := typ.Inactive(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"VGA", "HDMI"}, namesOf(active))
	assert.Equal(t, []string{"DVI"}, namesOf(inactive))

	// без колонки active все члены активны
	bs, _ := newBookingStatus(t, Options{})
	active, err = bs.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
	inactive, err = bs.Inactive(ctx)
	require.NoError(t, err)
	assert.Empty(t, inactive)
}

func TestNameColumnAndWhere(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.put("states",
		Row{"id": int64(1), "state_code": "IL", "state_name": "Illinois", "region": "midwest"},
		Row{"id": int64(2), "state_code": "WI", "state_name": "Wisconsin", "region": "midwest"},
		Row{"id": int64(3), "state_code": "CA", "state_name": "California", "region": "west"},
	)
	typ, err := NewType("State", src, Options{
		NameColumn: "state_code",
		Where:      map[string]any{"region": "midwest"},
	})
	require.NoError(t, err)

	il, err := typ.Lookup(ctx, Symbol("IL"))
	require.NoError(t, err)
	require.NotNil(t, il)
	v, ok := il.Attr("state_name")
	assert.True(t, ok)
	assert.Equal(t, "Illinois", v)

	ca, err := typ.Lookup(ctx, "CA")
	require.NoError(t, err)
	assert.Nil(t, ca)
}

func TestMissingNameColumnFailsLoad(t *testing.T) {
	src := newFakeSource()
	src.put("states", Row{"id": int64(1), "code": "IL"})
	typ, err := NewType("State", src, Options{})
	require.NoError(t, err)
	_, err = typ.All(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "you need to define a 'name' column in the table 'states'")
}

func TestDuplicates(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.put("booking_statuses",
		Row{"id": int64(1), "name": "confirmed"},
		Row{"id": int64(2), "name": "confirmed"},
	)

	lenient, err := NewType("BookingStatus", src, Options{})
	require.NoError(t, err)
	e, err := lenient.Lookup(ctx, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.ID())

	strict, err := NewType("BookingStatus", src, Options{RejectDuplicates: true})
	require.NoError(t, err)
	_, err = strict.All(ctx)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFrozenMembers(t *testing.T) {
	ctx := context.Background()
	typ, _ := newBookingStatus(t, Options{})
	e, err := typ.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, e.Frozen())
	assert.ErrorIs(t, e.Set("description", "x"), ErrFrozen)

	thawed, _ := newBookingStatus(t, Options{FreezeMembers: func() bool { return false }})
	e, err = thawed.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.False(t, e.Frozen())
	require.NoError(t, e.Set("description", "x"))
	assert.Error(t, e.Set("name", "other"))
}

func TestSnapshot_LoadedOnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	typ, src := newBookingStatus(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := typ.Lookup(ctx, i%3+1)
			assert.NoError(t, err)
			assert.NotNil(t, e)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.loads.Load())
}

func namesOf(es []*Instance) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name()
	}
	return out
}
