package reference

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/memstore"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

const bookingStatusYAML = `
name: BookingStatus
order: id
on_lookup_failure: strict
items:
  - name: confirmed
  - name: received
    description: waiting for review
  - name: rejected
    active: false
`

const stateYAML = `
table: us_states
name_column: code
freeze: false
items:
  - name: IL
    attrs: {title: Illinois}
  - name: WI
    attrs: {title: Wisconsin}
`

func TestLoadEnumCatalog(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"booking_status.yaml": bookingStatusYAML,
		"State.yml":           stateYAML,
		"README.md":           "ignored",
	})
	dirs, err := LoadEnumCatalog(dir)
	require.NoError(t, err)
	require.Len(t, dirs, 2)

	bs := dirs["BookingStatus"]
	assert.Len(t, bs.Items, 3)
	assert.Equal(t, enum.EnforceStrict, bs.Options().OnLookupFailure)

	st, ok := dirs["State"]
	require.True(t, ok, "name falls back to the file name")
	assert.Equal(t, "us_states", st.Options().Table)
	assert.False(t, st.Options().FreezeMembers())
	assert.Equal(t, enum.Row{"code": "IL", "title": "Illinois"}, st.Items[0].Row("code"))
	assert.Equal(t, []string{"title"}, st.AttrColumns())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad table":      "name: X\ntable: bad-name\n",
		"bad order":      "name: X\norder: id; drop table x\n",
		"bad policy":     "name: X\non_lookup_failure: explode\n",
		"unknown field":  "name: X\ncolour: red\n",
		"empty item":     "name: X\nitems:\n  - description: nameless\n",
		"duplicate item": "name: X\nitems:\n  - name: a\n  - name: a\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(body), "x")
			assert.Error(t, err)
		})
	}
}

func TestLoadEnumCatalog_DuplicateType(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yaml": "name: BookingStatus\n",
		"b.yaml": "name: booking_status\n",
	})
	_, err := LoadEnumCatalog(dir)
	assert.ErrorContains(t, err, "already declared")
}

func TestDefineAndSeed(t *testing.T) {
	ctx := context.Background()
	dir := writeFiles(t, map[string]string{
		"booking_status.yaml": bookingStatusYAML,
		"state.yaml":          stateYAML,
	})
	dirs, err := LoadEnumCatalog(dir)
	require.NoError(t, err)

	store := memstore.New(logger.Discard())
	require.NoError(t, store.Seed("booking_statuses", enum.Row{"name": "received"}))
	reg := enum.NewRegistry(store, logger.Discard())
	require.NoError(t, Define(reg, dirs))

	n, err := Seed(ctx, reg, store, dirs, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = Seed(ctx, reg, store, dirs, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	bs := reg.MustType("BookingStatus")
	names, err := bs.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []enum.Symbol{"received", "confirmed", "rejected"}, names)

	inactive, err := bs.Inactive(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "rejected", inactive[0].Name())

	_, err = bs.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, enum.ErrNotFound)

	il, err := reg.MustType("State").Lookup(ctx, "IL")
	require.NoError(t, err)
	title, _ := il.Attr("title")
	assert.Equal(t, "Illinois", title)
	assert.False(t, il.Frozen())
}
