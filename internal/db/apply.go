package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"refenum/internal/logger"
)

// ApplyDDL выполняет map[ключ]sql в порядке ключей. Ожидается idempotent DDL
// (create ... if not exists).
func ApplyDDL(ctx context.Context, db *sql.DB, ddl map[string]string, log *logger.Logger) error {
	log = log.With(logger.CatDB)

	keys := make([]string, 0, len(ddl))
	for k := range ddl {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, k := range keys {
		sqlText := strings.TrimSpace(ddl[k])
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			// duplicate_object (42710) от pgx/stdlib
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "42710" {
				log.Info(ctx, "DDL skipped (already exists)", "key", k,
					"constraint", pgErr.ConstraintName, "message", strings.TrimSpace(pgErr.Message))
				continue
			}
			e := strings.ToLower(err.Error())
			if strings.Contains(e, "already exists") {
				log.Info(ctx, "DDL skipped (already exists)", "key", k, "err", err)
				continue
			}
			return fmt.Errorf("DDL apply failed (%s): %w", k, err)
		}
		log.Debug(ctx, "DDL applied", "key", k)
	}
	return nil
}
