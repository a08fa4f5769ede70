package enum

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("enum: member not found")
	ErrInvalidKeyType   = errors.New("enum: unsupported key type")
	ErrPermissionDenied = errors.New("enum: updates not permitted")
	ErrFrozen           = errors.New("enum: member is frozen")
	ErrUnknownType      = errors.New("enum: unknown enum type")
	ErrUnknownMethod    = errors.New("enum: unknown lookup failure method")
	ErrDuplicateKey     = errors.New("enum: duplicate id or name in source data")
	ErrImmutableSource  = errors.New("enum: source does not support member changes")
	ErrInvalidMember    = errors.New("enum: invalid member")
	ErrDuplicateType    = errors.New("enum: type already defined")
	ErrInvalidOptions   = errors.New("enum: invalid options")
)

// NotFoundError: строгая политика отвергла ключ.
type NotFoundError struct {
	Type string
	Key  any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("couldn't find a %s identified by (%s)", e.Type, Inspect(e.Key))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// KeyTypeError: ключ неподдерживаемого типа (ошибка программиста).
type KeyTypeError struct {
	Type string
	Op   string
	Key  any
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("%s%s: argument should be a string, Symbol, integer or %s but got a: %T",
		e.Type, e.Op, e.Type, e.Key)
}

func (e *KeyTypeError) Is(target error) bool { return target == ErrInvalidKeyType }

// PermissionDeniedError: сброс кэша без явного разрешения.
type PermissionDeniedError struct {
	Type string
	Op   string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s: %s disabled for your protection", e.Type, e.Op)
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// Inspect печатает ключ так, чтобы было видно его вид: :sym, "str", 42.
func Inspect(key any) string {
	switch k := key.(type) {
	case nil:
		return "nil"
	case Symbol:
		return ":" + string(k)
	case string:
		return fmt.Sprintf("%q", k)
	case *Instance:
		if k == nil {
			return "nil"
		}
		return fmt.Sprintf("%s(%d, %q)", k.typeName, k.id, k.name)
	default:
		return fmt.Sprintf("%v", k)
	}
}
