package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"refenum/internal/api"
	"refenum/internal/config"
	"refenum/internal/db"
	"refenum/internal/dsl"
	"refenum/internal/entity"
	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/memstore"
	"refenum/internal/reference"
)

// backend: хранилище и строк справочников, и записей владельцев.
type backend interface {
	enum.MutableSource
	entity.Store
}

type app struct {
	reg     *enum.Registry
	catalog *entity.Catalog
	records backend
	enums   map[string]reference.EnumDirectory

	conn     *sql.DB
	shutdown func(context.Context) error
}

// bootstrap поднимает всё, кроме HTTP: трассировку, каталоги, хранилище,
// реестр справочников, миграции и досев.
func bootstrap(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	clog := log.With(logger.CatConfig)
	a := &app{}
	shutdown, err := setupTracing(cfg.Trace)
	if err != nil {
		return nil, err
	}
	a.shutdown = shutdown

	entities, err := loadOptional(cfg.DSLDir, dsl.LoadAllEntities)
	if err != nil {
		return nil, fmt.Errorf("load DSL: %w", err)
	}
	clog.Info(ctx, "entities loaded", "dir", cfg.DSLDir, "count", len(entities))

	a.enums, err = loadOptional(cfg.EnumsDir, reference.LoadEnumCatalog)
	if err != nil {
		return nil, fmt.Errorf("load enums: %w", err)
	}
	clog.Info(ctx, "enum catalog loaded", "dir", cfg.EnumsDir, "count", len(a.enums))

	var dialect db.Dialect
	switch cfg.DBDriver {
	case config.DriverMemory:
		a.records = memstore.New(log.With(logger.CatDB))
	default:
		dialect, err = db.DialectByName(cfg.DBDriver)
		if err != nil {
			return nil, err
		}
		a.conn, err = db.Open(dialect, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		a.records = db.NewStore(a.conn, dialect, entities, db.WithLogger(log.With(logger.CatDB)))
	}

	a.reg = enum.NewRegistry(a.records, log.With(logger.CatEnum))
	if err := reference.Define(a.reg, a.enums); err != nil {
		a.Close(ctx)
		return nil, err
	}
	for _, is := range api.SchemaLint(entities, a.reg) {
		clog.Warn(ctx, "schema issue", "entity", is.Entity, "field", is.Field, "code", is.Code, "msg", is.Message)
	}

	if cfg.AutoMigrate && a.conn != nil {
		if err := a.migrate(ctx, dialect, entities, log); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	if cfg.Seed {
		n, err := reference.Seed(ctx, a.reg, a.records, a.enums, log)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		clog.Info(ctx, "enum seed done", "inserted", n)
	}

	a.catalog, err = entity.NewCatalog(entities, a.reg, a.records, log.With(logger.CatBinding))
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// migrate создаёт таблицы всех справочников каталога и сущностей DSL.
func (a *app) migrate(ctx context.Context, d db.Dialect, entities map[string]*dsl.Entity, log *logger.Logger) error {
	ddl, err := db.GenerateDDL(d, entities, a.reg)
	if err != nil {
		return err
	}
	for n, dir := range a.enums {
		t, err := a.reg.Type(n)
		if err != nil {
			return err
		}
		ddl["000_"+t.Table()] = db.EnumTableDDL(d, t.Table(), t.NameColumn(), dir.AttrColumns()...)
	}
	return db.ApplyDDL(ctx, a.conn, ddl, log.With(logger.CatDB))
}

func (a *app) Close(ctx context.Context) {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	if a.shutdown != nil {
		_ = a.shutdown(ctx)
	}
}

// loadOptional: отсутствующий каталог: пустой результат.
func loadOptional[T any](dir string, load func(string) (map[string]T, error)) (map[string]T, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return map[string]T{}, nil
	}
	return load(dir)
}

func setupTracing(enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return nil, nil
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
