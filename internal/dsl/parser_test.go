package dsl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingDSL = `
# бронирования
module travel

entity Booking:
  title: string required
  nights: int default=1
  status: enum[BookingStatus] default=confirmed, on_lookup_failure=validation_error
  state: enum[ State ] fk=state_code_id permit_empty_name create_scope=false  # штат
  paid: bool

entity Connector:
  kind: enum[ConnectorType] options: on_lookup_failure='report_miss'
`

func TestParse_Entities(t *testing.T) {
	ents, err := Parse(strings.NewReader(bookingDSL), "booking.dsl")
	require.NoError(t, err)
	require.Len(t, ents, 2)

	b := ents[0]
	assert.Equal(t, "travel.Booking", b.FQN())
	require.Len(t, b.Fields, 5)

	title, ok := b.Field("title")
	require.True(t, ok)
	assert.Equal(t, "string", title.Type)
	assert.True(t, title.Flag("required"))

	status, _ := b.Field("status")
	assert.True(t, status.IsEnumerated())
	assert.Equal(t, "BookingStatus", status.EnumType)
	assert.Equal(t, "status_id", status.ForeignKey())
	def, ok := status.Option("default")
	assert.True(t, ok)
	assert.Equal(t, "confirmed", def)
	assert.Equal(t, "validation_error", status.Options["on_lookup_failure"])

	state, _ := b.Field("state")
	assert.Equal(t, "State", state.EnumType)
	assert.Equal(t, "state_code_id", state.ForeignKey())
	assert.True(t, state.Flag("permit_empty_name"))
	assert.Equal(t, "false", state.Options["create_scope"])

	names := make([]string, 0)
	for _, f := range b.EnumFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"status", "state"}, names)

	kind, _ := ents[1].Field("kind")
	assert.Equal(t, "report_miss", kind.Options["on_lookup_failure"])
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown type":  "module m\nentity A:\n  x: money\n",
		"enum literals": "module m\nentity A:\n  x: enum[a, b]\n",
		"duplicate":     "module m\nentity A:\n  x: int\n  x: string\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src), "x.dsl")
			assert.Error(t, err)
		})
	}
}

func TestSplitOptionTokens(t *testing.T) {
	got := splitOptionTokens(`default='two words' fk=status_id pattern=[a b]`)
	assert.Equal(t, []string{`default='two words'`, "fk=status_id", "pattern=[a b]"}, got)
}

func TestLoadAllEntities(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dsl"), []byte(bookingDSL), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	all, err := LoadAllEntities(dir)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "travel.Connector")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.dsl"), []byte("entity Orphan:\n  x: int\n"), 0o644))
	_, err = LoadAllEntities(dir)
	assert.ErrorContains(t, err, "has no module")
}
