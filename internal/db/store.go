package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"refenum/internal/dsl"
	"refenum/internal/entity"
	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/naming"
)

var systemColumns = []string{"id", "version", "created_at", "updated_at"}

// Store: справочные таблицы (enum.MutableSource) и записи владельцев
// (entity.Store) в одной SQL-базе.
type Store struct {
	db      *sql.DB
	dialect Dialect
	schemas map[string]*dsl.Entity
	tracer  trace.Tracer
	log     *logger.Logger
}

type Option func(*Store)

func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l.With(logger.CatDB) }
}

// NewStore; schemas нужны только для записей владельцев.
func NewStore(db *sql.DB, d Dialect, schemas map[string]*dsl.Entity, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		schemas: schemas,
		tracer:  otel.Tracer("refenum/internal/db"),
		log:     logger.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) trace(ctx context.Context, span, table string, op func(ctx context.Context) error) error {
	return executeAndTrace(ctx, s.tracer, span, []attribute.KeyValue{
		attribute.String("db.system", s.dialect.Name),
		attribute.String("db.table", table),
	}, op)
}

// ===== справочники =====

func (s *Store) selectQuery(q enum.Query) (string, []any, error) {
	if !naming.IsIdent(q.Table) {
		return "", nil, fmt.Errorf("db: bad table name %q", q.Table)
	}
	var (
		conds []string
		args  []any
	)
	if c := strings.TrimSpace(q.Conditions); c != "" {
		conds = append(conds, "("+s.dialect.Rebind(c, 1)+")")
		args = append(args, q.Args...)
	}
	cols := make([]string, 0, len(q.Where))
	for c := range q.Where {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		if !naming.IsIdent(c) {
			return "", nil, fmt.Errorf("db: bad column name %q", c)
		}
		v := q.Where[c]
		if v == nil {
			conds = append(conds, quoteIdent(c)+" is null")
			continue
		}
		args = append(args, sqlValue(v))
		conds = append(conds, quoteIdent(c)+" = "+s.dialect.Placeholder(len(args)))
	}

	query := "select * from " + quoteIdent(q.Table)
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	if o := strings.TrimSpace(q.Order); o != "" {
		if !naming.IsOrder(o) {
			return "", nil, fmt.Errorf("db: bad order %q", o)
		}
		query += " order by " + o
	}
	return query, args, nil
}

// LoadRows читает строки справочной таблицы с Conditions, Where и Order.
func (s *Store) LoadRows(ctx context.Context, q enum.Query) ([]enum.Row, error) {
	var out []enum.Row
	err := s.trace(ctx, "db.LoadRows", q.Table, func(ctx context.Context) error {
		query, args, err := s.selectQuery(q)
		if err != nil {
			return err
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db: load %s: %w", q.Table, err)
		}
		defer rows.Close()
		out, err = scanRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "rows loaded", "table", q.Table, "rows", len(out))
	return out, nil
}

func scanRows(rows *sql.Rows) ([]enum.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []enum.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(enum.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
			} else {
				r[c] = vals[i]
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRow добавляет строку и возвращает присвоенный базой id.
func (s *Store) InsertRow(ctx context.Context, table string, row enum.Row) (int64, error) {
	var id int64
	err := s.trace(ctx, "db.InsertRow", table, func(ctx context.Context) error {
		if !naming.IsIdent(table) {
			return fmt.Errorf("db: bad table name %q", table)
		}
		cols := make([]string, 0, len(row))
		for c := range row {
			if c == "id" {
				continue
			}
			if !naming.IsIdent(c) {
				return fmt.Errorf("db: bad column name %q", c)
			}
			cols = append(cols, c)
		}
		sort.Strings(cols)

		var query string
		args := make([]any, 0, len(cols))
		if len(cols) == 0 {
			query = "insert into " + quoteIdent(table) + " default values returning \"id\""
		} else {
			names := make([]string, len(cols))
			ph := make([]string, len(cols))
			for i, c := range cols {
				names[i] = quoteIdent(c)
				args = append(args, sqlValue(row[c]))
				ph[i] = s.dialect.Placeholder(i + 1)
			}
			query = fmt.Sprintf("insert into %s (%s) values (%s) returning \"id\"",
				quoteIdent(table), strings.Join(names, ", "), strings.Join(ph, ", "))
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("db: insert into %s: %w", table, err)
		}
		return nil
	})
	return id, err
}

func (s *Store) DeleteRow(ctx context.Context, table string, id int64) error {
	return s.trace(ctx, "db.DeleteRow", table, func(ctx context.Context) error {
		if !naming.IsIdent(table) {
			return fmt.Errorf("db: bad table name %q", table)
		}
		res, err := s.db.ExecContext(ctx,
			"delete from "+quoteIdent(table)+" where \"id\" = "+s.dialect.Placeholder(1), id)
		if err != nil {
			return fmt.Errorf("db: delete from %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("db: %s: row %d: %w", table, id, enum.ErrNotFound)
		}
		return nil
	})
}

// sqlValue: символьные имена уходят в базу строкой.
func sqlValue(v any) any {
	if s, ok := v.(enum.Symbol); ok {
		return string(s)
	}
	return v
}

// ===== владельцы =====

type column struct {
	name  string
	field dsl.Field
}

func (s *Store) schema(fqn string) (*dsl.Entity, []column, error) {
	e, ok := s.schemas[fqn]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrUnknownEntity, fqn)
	}
	cols := make([]column, 0, len(e.Fields))
	for _, f := range e.Fields {
		name := f.Name
		if f.IsEnumerated() {
			name = f.ForeignKey()
		}
		cols = append(cols, column{name: name, field: f})
	}
	return e, cols, nil
}

func selectList(cols []column) string {
	names := make([]string, 0, len(systemColumns)+len(cols))
	for _, c := range systemColumns {
		names = append(names, quoteIdent(c))
	}
	for _, c := range cols {
		names = append(names, quoteIdent(c.name))
	}
	return strings.Join(names, ", ")
}

func (s *Store) Insert(ctx context.Context, fqn string, rec *entity.Record) error {
	e, cols, err := s.schema(fqn)
	if err != nil {
		return err
	}
	tbl := OwnerTable(e)
	return s.trace(ctx, "db.Insert", tbl, func(ctx context.Context) error {
		now := time.Now().UTC()
		args := []any{rec.ID, int64(1), now, now}
		ph := []string{s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4)}
		for _, c := range cols {
			args = append(args, sqlValue(rec.Data[c.name]))
			ph = append(ph, s.dialect.Placeholder(len(args)))
		}
		query := fmt.Sprintf("insert into %s (%s) values (%s)", quoteIdent(tbl), selectList(cols), strings.Join(ph, ", "))
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("db: insert %s: %w", fqn, err)
		}
		rec.Version = 1
		rec.CreatedAt, rec.UpdatedAt = now, now
		return nil
	})
}

// Update: optimistic lock по version.
func (s *Store) Update(ctx context.Context, fqn string, rec *entity.Record) error {
	e, cols, err := s.schema(fqn)
	if err != nil {
		return err
	}
	tbl := OwnerTable(e)
	return s.trace(ctx, "db.Update", tbl, func(ctx context.Context) error {
		now := time.Now().UTC()
		next := rec.Version + 1
		args := []any{next, now}
		sets := []string{`"version" = ` + s.dialect.Placeholder(1), `"updated_at" = ` + s.dialect.Placeholder(2)}
		for _, c := range cols {
			args = append(args, sqlValue(rec.Data[c.name]))
			sets = append(sets, quoteIdent(c.name)+" = "+s.dialect.Placeholder(len(args)))
		}
		args = append(args, rec.ID, rec.Version)
		query := fmt.Sprintf(`update %s set %s where "id" = %s and "version" = %s`,
			quoteIdent(tbl), strings.Join(sets, ", "),
			s.dialect.Placeholder(len(args)-1), s.dialect.Placeholder(len(args)))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db: update %s: %w", fqn, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var cnt int64
			err := s.db.QueryRowContext(ctx,
				"select count(*) from "+quoteIdent(tbl)+` where "id" = `+s.dialect.Placeholder(1), rec.ID).Scan(&cnt)
			if err != nil {
				return err
			}
			if cnt == 0 {
				return entity.ErrNotFound
			}
			return entity.ErrVersionConflict
		}
		rec.Version = next
		rec.UpdatedAt = now
		return nil
	})
}

func (s *Store) Get(ctx context.Context, fqn, id string) (*entity.Record, error) {
	e, cols, err := s.schema(fqn)
	if err != nil {
		return nil, err
	}
	tbl := OwnerTable(e)
	var rec *entity.Record
	err = s.trace(ctx, "db.Get", tbl, func(ctx context.Context) error {
		query := fmt.Sprintf(`select %s from %s where "id" = %s`, selectList(cols), quoteIdent(tbl), s.dialect.Placeholder(1))
		recs, err := s.queryRecords(ctx, cols, query, id)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return entity.ErrNotFound
		}
		rec = recs[0]
		return nil
	})
	return rec, err
}

// List: все записи в порядке id (ULID монотонны, т.е. в порядке создания).
func (s *Store) List(ctx context.Context, fqn string) ([]*entity.Record, error) {
	e, cols, err := s.schema(fqn)
	if err != nil {
		return nil, err
	}
	tbl := OwnerTable(e)
	var out []*entity.Record
	err = s.trace(ctx, "db.List", tbl, func(ctx context.Context) error {
		query := fmt.Sprintf(`select %s from %s order by "id"`, selectList(cols), quoteIdent(tbl))
		out, err = s.queryRecords(ctx, cols, query)
		return err
	})
	return out, err
}

// FindByForeignKey: записи, у которых FK-колонка enum-атрибута входит в ids.
func (s *Store) FindByForeignKey(ctx context.Context, fqn, column string, ids []int64) ([]*entity.Record, error) {
	e, cols, err := s.schema(fqn)
	if err != nil {
		return nil, err
	}
	known := false
	for _, c := range cols {
		if c.field.IsEnumerated() && c.name == column {
			known = true
		}
	}
	if !known {
		return nil, fmt.Errorf("db: %s: %q is not a foreign key column", fqn, column)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	tbl := OwnerTable(e)
	var out []*entity.Record
	err = s.trace(ctx, "db.FindByForeignKey", tbl, func(ctx context.Context) error {
		args := make([]any, len(ids))
		ph := make([]string, len(ids))
		for i, id := range ids {
			args[i] = id
			ph[i] = s.dialect.Placeholder(i + 1)
		}
		query := fmt.Sprintf(`select %s from %s where %s in (%s) order by "id"`,
			selectList(cols), quoteIdent(tbl), quoteIdent(column), strings.Join(ph, ", "))
		out, err = s.queryRecords(ctx, cols, query, args...)
		return err
	})
	return out, err
}

func (s *Store) queryRecords(ctx context.Context, cols []column, query string, args ...any) ([]*entity.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Record
	for rows.Next() {
		var (
			id               string
			version          int64
			created, updated any
		)
		fieldRaw := make([]any, len(cols))
		ptrs := []any{&id, &version, &created, &updated}
		for i := range fieldRaw {
			ptrs = append(ptrs, &fieldRaw[i])
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := entity.NewRecord()
		rec.ID = id
		rec.Version = version
		rec.CreatedAt = asTime(created)
		rec.UpdatedAt = asTime(updated)
		for i, c := range cols {
			rec.Data[c.name] = fieldValue(c.field, fieldRaw[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case []byte:
		return asTime(string(t))
	case string:
		for _, l := range timeLayouts {
			if p, err := time.Parse(l, t); err == nil {
				return p.UTC()
			}
		}
	}
	return time.Time{}
}

// fieldValue приводит значение колонки к виду, который даёт entity.Model.Apply.
func fieldValue(f dsl.Field, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch f.Type {
	case "enum", "int":
		if n, ok := enum.ToInt64(v); ok {
			return n
		}
	case "float":
		switch n := v.(type) {
		case float32:
			return float64(n)
		case int64:
			return float64(n)
		}
	case "bool":
		if n, ok := v.(int64); ok {
			return n != 0
		}
	case "date":
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case "datetime":
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339)
		}
	}
	return v
}

var (
	_ enum.MutableSource = (*Store)(nil)
	_ entity.Store       = (*Store)(nil)
)
