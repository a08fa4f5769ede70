package binding

import (
	"context"

	"refenum/internal/enum"
)

// Op: операция, на которой не разрешилось значение.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// RetainForValidation: имя встроенного обработчика: отвергнутое значение
// сохраняется и всплывает ошибкой валидации "is invalid".
const RetainForValidation = "validation_error"

// HandlerFunc получает владельца, операцию, атрибут, FK-колонку, тип и сырое
// значение. На чтении результат возвращается вызывающему, на записи игнорируется.
type HandlerFunc[O Owner] func(ctx context.Context, owner O, op Op, attr, fk string, typ *enum.Type, value any) (any, error)

type handlerKind int

const (
	handlerNone handlerKind = iota
	handlerRetain
	handlerFunc
)

type handler[O Owner] struct {
	kind handlerKind
	name string
	fn   HandlerFunc[O]
}

func (h handler[O]) configured() bool { return h.kind != handlerNone }

func (h handler[O]) String() string {
	switch h.kind {
	case handlerRetain:
		return RetainForValidation
	case handlerFunc:
		if h.name != "" {
			return h.name
		}
		return "func"
	default:
		return "none"
	}
}
