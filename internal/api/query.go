package api

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ==== Типы сортировки и параметров листинга ====

type SortKey struct {
	Field string
	Desc  bool
}

type ListParams struct {
	Limit  int
	Offset int
	Sort   []SortKey
	// Scopes: with_<attr>/exclude_<attr> и ключи через запятую
	Scopes map[string][]any
	Nulls  string // "last" (default) | "first"
}

// ==== Парсинг query-параметров ====

func parseListParams(q url.Values) ListParams {
	// limit
	limit := 50
	lv := q.Get("_limit")
	if lv == "" {
		lv = q.Get("limit")
	}
	if lv != "" {
		if n, err := strconv.Atoi(lv); err == nil && n >= 0 && n <= 1000 {
			limit = n
		}
	}

	// offset
	offset := 0
	ov := q.Get("_offset")
	if ov == "" {
		ov = q.Get("offset")
	}
	if ov != "" {
		if n, err := strconv.Atoi(ov); err == nil && n >= 0 {
			offset = n
		}
	}

	// sort
	var sortKeys []SortKey
	sv := strings.TrimSpace(q.Get("_sort"))
	if sv == "" {
		sv = strings.TrimSpace(q.Get("sort"))
	}
	for _, p := range strings.Split(sv, ",") {
		p = strings.TrimSpace(p)
		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = strings.TrimPrefix(p, "-")
		} else {
			p = strings.TrimPrefix(p, "+")
		}
		if p != "" {
			sortKeys = append(sortKeys, SortKey{Field: p, Desc: desc})
		}
	}

	// nulls
	nulls := strings.ToLower(strings.TrimSpace(q.Get("nulls")))
	if nulls != "first" && nulls != "last" {
		nulls = "last"
	}

	// скоупы
	scopes := make(map[string][]any)
	for key, vals := range q {
		if !strings.HasPrefix(key, "with_") && !strings.HasPrefix(key, "exclude_") {
			continue
		}
		var keys []any
		for _, v := range vals {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					keys = append(keys, pathKey(part))
				}
			}
		}
		scopes[key] = keys
	}

	return ListParams{
		Limit:  limit,
		Offset: offset,
		Sort:   sortKeys,
		Scopes: scopes,
		Nulls:  nulls,
	}
}

// ScopeNames: имена скоупов запроса по алфавиту.
func (lp ListParams) ScopeNames() []string {
	out := make([]string, 0, len(lp.Scopes))
	for n := range lp.Scopes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ==== Утилита ====

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ==== Сортировка с политикой nulls ====

func isNull(v any, ok bool) bool { return !ok || v == nil }

// сравнение двух строк по одному ключу с учётом nullsPolicy и направления
func cmpByKey(a, b map[string]any, key string, nullsPolicy string, desc bool) int {
	va, oka := a[key]
	vb, okb := b[key]

	na := isNull(va, oka)
	nb := isNull(vb, okb)

	// nulls first/last
	if na && nb {
		return 0
	}
	if na != nb {
		if nullsPolicy == "last" {
			if na {
				return +1 // a=null → в конец при asc
			}
			return -1
		}
		// nulls=first
		if na {
			return -1
		}
		return +1
	}

	rel := 0
	fa, okA := va.(float64)
	fb, okB := vb.(float64)
	if ia, ok := va.(int64); ok {
		fa, okA = float64(ia), true
	}
	if ib, ok := vb.(int64); ok {
		fb, okB = float64(ib), true
	}
	switch {
	case okA && okB:
		if fa < fb {
			rel = -1
		} else if fa > fb {
			rel = +1
		}
	default:
		rel = strings.Compare(toString(va), toString(vb))
	}
	if desc {
		rel = -rel
	}
	return rel
}

// мультисортировка с учётом nullsPolicy
func sortRowsMultiNulls(rows []map[string]any, keys []SortKey, nullsPolicy string) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := cmpByKey(rows[i], rows[j], k.Field, nullsPolicy, k.Desc); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// page: срез [offset, offset+limit) с защитой границ.
func page[T any](all []T, offset, limit int) []T {
	start := min(max(offset, 0), len(all))
	end := min(start+limit, len(all))
	return all[start:end]
}
