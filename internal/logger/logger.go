// Package logger: структурированный лог поверх slog с категориями.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Category группирует сообщения по подсистемам.
type Category string

const (
	CatEnum    Category = "enum"    // загрузка/сброс кэша справочников
	CatBinding Category = "binding" // has-enumerated атрибуты владельцев
	CatDB      Category = "db"      // SQL-хранилище
	CatAPI     Category = "api"     // HTTP
	CatConfig  Category = "config"  // конфигурация и каталоги
)

type Logger struct {
	l *slog.Logger
}

// New создаёт текстовый логгер с минимальным уровнем level.
func New(w io.Writer, level slog.Level, service string) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{l: slog.New(h).With("service", service)}
}

// NewWithHandler оборачивает произвольный slog.Handler (тесты, JSON).
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{l: slog.New(h)}
}

// Discard: логгер, который ничего не пишет.
func Discard() *Logger {
	return NewWithHandler(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel понимает debug|info|warn|error, всё остальное: info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With возвращает логгер с постоянной категорией.
func (lg *Logger) With(cat Category) *Logger {
	if lg == nil {
		return Discard().With(cat)
	}
	return &Logger{l: lg.l.With("cat", string(cat))}
}

func (lg *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	lg.log(ctx, slog.LevelDebug, msg, kv...)
}

func (lg *Logger) Info(ctx context.Context, msg string, kv ...any) {
	lg.log(ctx, slog.LevelInfo, msg, kv...)
}

func (lg *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	lg.log(ctx, slog.LevelWarn, msg, kv...)
}

func (lg *Logger) Error(ctx context.Context, msg string, kv ...any) {
	lg.log(ctx, slog.LevelError, msg, kv...)
}

func (lg *Logger) log(ctx context.Context, level slog.Level, msg string, kv ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	lg.l.Log(ctx, level, msg, kv...)
}
