package db

import (
	"fmt"
	"sort"
	"strings"

	"refenum/internal/dsl"
	"refenum/internal/enum"
	"refenum/internal/naming"
)

type OnDeletePolicy string

const (
	OnDeleteRestrict OnDeletePolicy = "RESTRICT"
	OnDeleteSetNull  OnDeletePolicy = "SET NULL"
)

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
}

func isReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// OwnerTable: таблица записей сущности: <module>_<plural(entity)>.
func OwnerTable(e *dsl.Entity) string {
	t := naming.TableName(e.Name)
	if e.Module != "" {
		return strings.ToLower(naming.Snake(e.Module)) + "_" + t
	}
	if isReserved(t) {
		// помечаем «опасное» имя префиксом
		t = "e_" + t
	}
	return t
}

// quoteIdent берёт в кавычки каждую часть "schema.table".
func quoteIdent(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ToLower(p) + `"`
	}
	return strings.Join(parts, ".")
}

func (d Dialect) columnType(f dsl.Field) (string, error) {
	switch strings.ToLower(f.Type) {
	case "string":
		return "text", nil
	case "int", "enum":
		if d.numbered {
			return "bigint", nil
		}
		return "integer", nil
	case "float":
		if d.numbered {
			return "double precision", nil
		}
		return "real", nil
	case "bool":
		return "boolean", nil
	case "date":
		return "date", nil
	case "datetime":
		return d.timestampType(), nil
	default:
		return "", fmt.Errorf("unknown type: %s", f.Type)
	}
}

func (d Dialect) timestampType() string {
	if d.numbered {
		return "timestamp with time zone"
	}
	return "datetime"
}

func onDeletePolicy(f dsl.Field) OnDeletePolicy {
	switch strings.ToLower(strings.TrimSpace(f.Options["on_delete"])) {
	case "set_null":
		return OnDeleteSetNull
	default:
		return OnDeleteRestrict
	}
}

// EnumTableDDL: таблица справочника: id, колонка имени (NOT NULL + уникальный
// индекс), description, active, метки времени и текстовые колонки extra.
func EnumTableDDL(d Dialect, table, nameColumn string, extra ...string) string {
	id := `"id" integer primary key autoincrement`
	if d.numbered {
		id = `"id" bigserial primary key`
	}
	ts := d.timestampType()
	cols := []string{
		id,
		quoteIdent(nameColumn) + " text not null",
		`"description" text`,
		`"active" boolean not null default true`,
		`"created_at" ` + ts + " not null default current_timestamp",
		`"updated_at" ` + ts + " not null default current_timestamp",
	}
	for _, c := range extra {
		cols = append(cols, quoteIdent(c)+" text")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "create table if not exists %s (\n  %s\n);\n", quoteIdent(table), strings.Join(cols, ",\n  "))
	idx := strings.ReplaceAll(strings.ToLower(table), ".", "_") + "_" + strings.ToLower(nameColumn) + "_uq"
	fmt.Fprintf(&b, "create unique index if not exists %s on %s(%s);\n",
		quoteIdent(idx), quoteIdent(table), quoteIdent(nameColumn))
	return b.String()
}

// OwnerTableDDL: таблица записей владельца: системные колонки, примитивные
// поля и FK-колонки enum-атрибутов со ссылкой на таблицу справочника.
func OwnerTableDDL(d Dialect, e *dsl.Entity, reg *enum.Registry) (string, error) {
	tbl := OwnerTable(e)

	// системные колонки
	var cols []string
	cols = append(cols, `"id" text primary key`)
	cols = append(cols, `"version" bigint not null`)
	cols = append(cols, `"created_at" `+d.timestampType()+" not null")
	cols = append(cols, `"updated_at" `+d.timestampType()+" not null")

	seen := map[string]struct{}{"id": {}, "version": {}, "created_at": {}, "updated_at": {}}

	for _, f := range e.Fields {
		col := f.Name
		if f.IsEnumerated() {
			col = f.ForeignKey()
		}
		if !naming.IsIdent(col) || strings.Contains(col, ".") {
			return "", fmt.Errorf("%s.%s: bad column name %q", e.FQN(), f.Name, col)
		}
		lower := strings.ToLower(col)
		if _, exists := seen[lower]; exists {
			return "", fmt.Errorf("%s: field %q duplicates a system or duplicate column", e.FQN(), col)
		}
		seen[lower] = struct{}{}

		typ, err := d.columnType(f)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", e.FQN(), f.Name, err)
		}
		null := "null"
		if f.Flag("required") {
			null = "not null"
		}
		def := ""
		if dv, ok := f.Option("default"); ok && strings.TrimSpace(dv) != "" && !f.IsEnumerated() {
			def = " default '" + strings.ReplaceAll(dv, "'", "''") + "'"
		}
		ref := ""
		if f.IsEnumerated() {
			t, err := reg.Type(f.EnumType)
			if err != nil {
				return "", fmt.Errorf("%s.%s: %w", e.FQN(), f.Name, err)
			}
			ref = fmt.Sprintf(" references %s(\"id\") on delete %s", quoteIdent(t.Table()), onDeletePolicy(f))
		}
		cols = append(cols, fmt.Sprintf("%s %s %s%s%s", quoteIdent(col), typ, null, def, ref))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "create table if not exists %s (\n  %s\n);\n", quoteIdent(tbl), strings.Join(cols, ",\n  "))

	for _, f := range e.Fields {
		col := f.Name
		if f.IsEnumerated() {
			col = f.ForeignKey()
			// индекс под скоупы with_/exclude_
			fmt.Fprintf(&b, "create index if not exists %s on %s(%s);\n",
				quoteIdent(tbl+"_"+col+"_idx"), quoteIdent(tbl), quoteIdent(col))
		}
		if f.Flag("unique") {
			fmt.Fprintf(&b, "create unique index if not exists %s on %s(%s);\n",
				quoteIdent(tbl+"_"+col+"_uq"), quoteIdent(tbl), quoteIdent(col))
		}
	}
	return b.String(), nil
}

// GenerateDDL возвращает карту ключ -> SQL: сначала таблицы справочников,
// на которые ссылаются сущности ("000_"), затем таблицы владельцев ("100_").
func GenerateDDL(d Dialect, entities map[string]*dsl.Entity, reg *enum.Registry) (map[string]string, error) {
	out := make(map[string]string, len(entities)*2)

	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, fqn := range keys {
		e := entities[fqn]
		for _, f := range e.EnumFields() {
			t, err := reg.Type(f.EnumType)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", fqn, f.Name, err)
			}
			out["000_"+t.Table()] = EnumTableDDL(d, t.Table(), t.NameColumn())
		}
		ddl, err := OwnerTableDDL(d, e, reg)
		if err != nil {
			return nil, err
		}
		out["100_"+OwnerTable(e)] = ddl
	}
	return out, nil
}
