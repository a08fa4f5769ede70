package binding

import (
	"errors"
	"fmt"

	"refenum/internal/enum"
)

var (
	ErrInvalidArgument   = errors.New("binding: value does not resolve")
	ErrUnknownAttribute  = errors.New("binding: attribute is not enumerated")
	ErrUnknownScope      = errors.New("binding: unknown scope")
	ErrUnknownHandler    = errors.New("binding: unknown lookup failure handler")
	ErrInvalidDescriptor = errors.New("binding: invalid descriptor")
	ErrNoFinder          = errors.New("binding: owner type has no finder")
)

// ArgumentError: запись значения, которое не разрешилось, при отсутствии обработчика.
type ArgumentError struct {
	Owner string
	Attr  string
	Type  string
	Value any
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s= can't assign a %s for a value of (%s)", e.Owner, e.Attr, e.Type, enum.Inspect(e.Value))
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
