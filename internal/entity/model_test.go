package entity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refenum/internal/dsl"
	"refenum/internal/entity"
	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/memstore"
)

const schemaDSL = `
module travel

entity Booking:
  title: string required
  nights: int default=1
  status: enum[BookingStatus] default=confirmed
  state: enum[State] on_lookup_failure=validation_error
  code: string readonly
`

type fixture struct {
	store   *memstore.Store
	catalog *entity.Catalog
	model   *entity.Model
	ids     *entity.IDs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New(logger.Discard())
	require.NoError(t, store.Seed("booking_statuses",
		enum.Row{"id": 1, "name": "confirmed"},
		enum.Row{"id": 2, "name": "received"},
		enum.Row{"id": 3, "name": "rejected"},
	))
	require.NoError(t, store.Seed("states",
		enum.Row{"id": 1, "name": "IL"},
		enum.Row{"id": 2, "name": "WI"},
	))
	reg := enum.NewRegistry(store, logger.Discard())
	require.NoError(t, reg.Define("BookingStatus", enum.Options{}))
	require.NoError(t, reg.Define("State", enum.Options{}))

	ents, err := dsl.Parse(strings.NewReader(schemaDSL), "travel.dsl")
	require.NoError(t, err)
	schemas := map[string]*dsl.Entity{ents[0].FQN(): ents[0]}
	cat, err := entity.NewCatalog(schemas, reg, store, logger.Discard())
	require.NoError(t, err)
	m, ok := cat.Model("travel.Booking")
	require.True(t, ok)
	return &fixture{store: store, catalog: cat, model: m, ids: entity.NewIDs()}
}

func (f *fixture) create(t *testing.T, payload map[string]any) (*entity.Record, entity.Errors) {
	t.Helper()
	rec := entity.NewRecord()
	rec.ID = f.ids.New()
	errs, err := f.model.Apply(context.Background(), rec, payload, true)
	require.NoError(t, err)
	if len(errs) == 0 {
		require.NoError(t, f.store.Insert(context.Background(), "travel.Booking", rec))
	}
	return rec, errs
}

func TestApply_DefaultsAndCoercion(t *testing.T) {
	f := newFixture(t)
	rec, errs := f.create(t, map[string]any{"title": "Trip", "state": "WI"})
	require.Empty(t, errs)

	assert.Equal(t, "Trip", rec.Data["title"])
	assert.Equal(t, int64(1), rec.Data["nights"])
	assert.Equal(t, int64(1), rec.Data["status_id"])
	assert.Equal(t, int64(2), rec.Data["state_id"])

	out, err := f.model.Render(context.Background(), rec)
	require.NoError(t, err)
	data := out["data"].(map[string]any)
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, "WI", data["state"])
}

func TestApply_FieldErrors(t *testing.T) {
	f := newFixture(t)
	_, errs := f.create(t, map[string]any{
		"nights": "many",
		"status": "bogus",
		"state":  "XX",
		"id":     "x",
		"color":  "red",
	})

	codes := map[string]string{}
	for _, e := range errs {
		codes[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{
		"id":     entity.ErrReadOnly,
		"color":  entity.ErrUnknownField,
		"nights": entity.ErrTypeMismatch,
		"status": entity.ErrEnumInvalid,
		"state":  entity.ErrEnumInvalid,
		"title":  entity.ErrRequired,
	}, codes)
}

func TestApply_RetainedValueRendersRaw(t *testing.T) {
	f := newFixture(t)
	rec := entity.NewRecord()
	errs, err := f.model.Apply(context.Background(), rec, map[string]any{"title": "x", "state": "XX"}, true)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, entity.FieldError{Code: entity.ErrEnumInvalid, Field: "state", Message: "is invalid"}, errs[0])

	out, err := f.model.Render(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "XX", out["data"].(map[string]any)["state"])
}

func TestApply_UpdateRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec, errs := f.create(t, map[string]any{"title": "Trip", "code": "A1"})
	require.Empty(t, errs)

	cur, err := f.store.Get(ctx, "travel.Booking", rec.ID)
	require.NoError(t, err)
	errs, err = f.model.Apply(ctx, cur, map[string]any{"code": "B2", "status": "", "version": 1}, false)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, entity.ErrReadOnly, errs[0].Code)
	assert.Nil(t, cur.Data["status_id"])
}

func TestModel_Scopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, _ := f.create(t, map[string]any{"title": "a", "status": "received"})
	b, _ := f.create(t, map[string]any{"title": "b", "status": 3})
	f.create(t, map[string]any{"title": "c"})

	got, err := f.model.Owners.Scope(ctx, "with_statuses", enum.Symbol("received"), "rejected")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	got, err = f.model.Owners.Exclude(ctx, "status", "received", "rejected")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Data["title"])
}

func TestCatalog_NormalizeEntityName(t *testing.T) {
	f := newFixture(t)
	fqn, ok := f.catalog.NormalizeEntityName("", "booking")
	assert.True(t, ok)
	assert.Equal(t, "travel.Booking", fqn)
	fqn, ok = f.catalog.NormalizeEntityName("TRAVEL", "Booking")
	assert.True(t, ok)
	assert.Equal(t, "travel.Booking", fqn)
	_, ok = f.catalog.NormalizeEntityName("other", "Booking")
	assert.False(t, ok)
	assert.Equal(t, []string{"travel.Booking"}, f.catalog.FQNs())
}

func TestNewCatalog_UnknownEnumType(t *testing.T) {
	store := memstore.New(nil)
	reg := enum.NewRegistry(store, nil)
	ents, err := dsl.Parse(strings.NewReader("module m\nentity A:\n  kind: enum[Nope]\n"), "a.dsl")
	require.NoError(t, err)
	_, err = entity.NewCatalog(map[string]*dsl.Entity{"m.A": ents[0]}, reg, store, nil)
	assert.ErrorIs(t, err, enum.ErrUnknownType)
}
