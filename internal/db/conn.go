// Package db: SQL-хранилище справочников и записей владельцев
// (PostgreSQL через pgx, SQLite через ncruces/go-sqlite3).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"       // driver: pgx
	_ "github.com/ncruces/go-sqlite3/driver" // driver: sqlite3
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Dialect: различия драйверов: имя, плейсхолдеры, типы колонок.
type Dialect struct {
	Name   string
	Driver string

	// numbered: плейсхолдеры вида $1, $2 (postgres); иначе "?"
	numbered bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", numbered: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite3"}
)

func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("db: unknown dialect %q", name)
	}
}

// Placeholder: n-й (с единицы) параметр запроса.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind переписывает "?" в плейсхолдеры диалекта, начиная с номера from.
// Знаки внутри строковых литералов не трогает.
func (d Dialect) Rebind(q string, from int) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := from
	inStr := false
	for _, r := range q {
		switch {
		case r == '\'':
			inStr = !inStr
		case r == '?' && !inStr:
			b.WriteString(d.Placeholder(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func Open(d Dialect, url string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, url)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	if d == SQLite {
		// у :memory: своя база на каждое соединение
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
