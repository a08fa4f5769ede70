package enum

import "context"

// Query: то, что тип просит у источника при загрузке снапшота.
type Query struct {
	Table string
	// Conditions: сырое SQL-условие с плейсхолдерами "?"; только для SQL-источников.
	Conditions string
	Args       []any
	// Where: фильтр по равенству колонок; понимают все источники.
	Where map[string]any
	// Order: "col [ASC|DESC], ...".
	Order string
}

// Source отдаёт строки справочной таблицы.
type Source interface {
	LoadRows(ctx context.Context, q Query) ([]Row, error)
}

// MutableSource дополнительно умеет добавлять и удалять строки.
type MutableSource interface {
	Source
	InsertRow(ctx context.Context, table string, row Row) (int64, error)
	DeleteRow(ctx context.Context, table string, id int64) error
}

// SourceFunc: адаптер функции к Source.
type SourceFunc func(ctx context.Context, q Query) ([]Row, error)

func (f SourceFunc) LoadRows(ctx context.Context, q Query) ([]Row, error) { return f(ctx, q) }
