package memstore

import (
	"fmt"
	"sort"
	"strings"

	"refenum/internal/enum"
	"refenum/internal/naming"
)

type sortKey struct {
	col  string
	desc bool
}

// parseOrder разбирает "col [ASC|DESC], ..." в ключи сортировки.
func parseOrder(s string) ([]sortKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !naming.IsOrder(s) {
		return nil, fmt.Errorf("memstore: bad order %q", s)
	}
	var keys []sortKey
	for _, part := range strings.Split(s, ",") {
		f := strings.Fields(part)
		k := sortKey{col: f[0]}
		if len(f) > 1 && strings.EqualFold(f[1], "desc") {
			k.desc = true
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// sortRows: стабильная мультисортировка, null в конце.
func sortRows(rows []enum.Row, keys []sortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := cmpByKey(rows[i], rows[j], k); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func cmpByKey(a, b enum.Row, k sortKey) int {
	va, vb := a[k.col], b[k.col]
	if va == nil || vb == nil {
		switch {
		case va == nil && vb == nil:
			return 0
		case va == nil:
			return +1
		default:
			return -1
		}
	}
	rel := compare(va, vb)
	if k.desc {
		rel = -rel
	}
	return rel
}

func compare(a, b any) int {
	if na, ok := enum.ToInt64(a); ok {
		if nb, ok := enum.ToInt64(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return +1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return +1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// matchWhere: равенство всех колонок фильтра.
func matchWhere(r enum.Row, where map[string]any) bool {
	for col, want := range where {
		if compare(r[col], want) != 0 {
			return false
		}
	}
	return true
}
