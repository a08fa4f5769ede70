package entity

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок полей
const (
	ErrRequired     = "required"
	ErrTypeMismatch = "type_mismatch"
	ErrEnumInvalid  = "enum_invalid"
	ErrReadOnly     = "readonly_field"
	ErrUnknownField = "unknown_field"
	ErrCodeNotFound = "not_found"
	ErrCodeVersion  = "version_conflict"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// Errors собирает ошибки полей; годится как binding.ErrorSink.
type Errors []FieldError

func (e *Errors) AddError(field, message string) {
	*e = append(*e, ferr(ErrEnumInvalid, field, message))
}

func (e *Errors) add(code, field, msg string) {
	*e = append(*e, ferr(code, field, msg))
}
