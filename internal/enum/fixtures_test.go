package enum

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	tables map[string][]Row
	nextID int64
	loads  atomic.Int32
	fail   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{tables: map[string][]Row{}, nextID: 100}
}

func (f *fakeSource) put(table string, rows ...Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakeSource) LoadRows(_ context.Context, q Query) ([]Row, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	var out []Row
	for _, r := range f.tables[q.Table] {
		ok := true
		for k, v := range q.Where {
			if fmt.Sprint(r[k]) != fmt.Sprint(v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, maps.Clone(r))
		}
	}
	return out, nil
}

func (f *fakeSource) InsertRow(_ context.Context, table string, row Row) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r := maps.Clone(row)
	r["id"] = f.nextID
	f.tables[table] = append(f.tables[table], r)
	return f.nextID, nil
}

func (f *fakeSource) DeleteRow(_ context.Context, table string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.tables[table]
	for i, r := range rows {
		if n, _ := ToInt64(r["id"]); n == id {
			f.tables[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return errors.New("no such row")
}

// readOnly скрывает методы записи.
type readOnly struct{ Source }

func bookingStatuses(f *fakeSource) {
	f.put("booking_statuses",
		Row{"id": int64(1), "name": "confirmed"},
		Row{"id": int64(2), "name": "received"},
		Row{"id": int64(3), "name": "rejected"},
	)
}

func connectorTypes(f *fakeSource) {
	f.put("connector_types",
		Row{"id": int64(1), "name": "VGA", "description": "Video Graphics Array", "active": true},
		Row{"id": int64(2), "name": "DVI", "description": "Digital Video Interface", "active": false},
		Row{"id": int64(3), "name": "HDMI", "description": "High-Definition Multimedia Interface", "active": true},
	)
}

func newBookingStatus(t *testing.T, opts Options) (*Type, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	bookingStatuses(src)
	typ, err := NewType("BookingStatus", src, opts)
	require.NoError(t, err)
	return typ, src
}
