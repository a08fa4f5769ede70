package dsl

import "strings"

// Entity описывает структуру сущности-владельца из DSL
type Entity struct {
	Module string
	Name   string
	Fields []Field
}

// FQN: "<module>.<name>".
func (e *Entity) FQN() string { return e.Module + "." + e.Name }

// Field описывает поле сущности
type Field struct {
	Name     string
	Type     string            // string, int, float, bool, date, datetime, enum
	EnumType string            // справочный тип для enum[...]
	Options  map[string]string // required, readonly, default, fk, on_lookup_failure...
}

// IsEnumerated: поле привязано к справочнику.
func (f Field) IsEnumerated() bool { return f.Type == "enum" }

// ForeignKey: колонка, в которой хранится id члена справочника.
func (f Field) ForeignKey() string {
	if fk := strings.TrimSpace(f.Options["fk"]); fk != "" {
		return fk
	}
	return f.Name + "_id"
}

// Flag: опция-флаг ("required", "permit_empty_name").
func (f Field) Flag(name string) bool {
	return strings.EqualFold(f.Options[name], "true")
}

// Option возвращает значение опции и признак её наличия.
func (f Field) Option(name string) (string, bool) {
	v, ok := f.Options[name]
	return v, ok
}

// EnumFields: поля enum[...] в порядке объявления.
func (e *Entity) EnumFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.IsEnumerated() {
			out = append(out, f)
		}
	}
	return out
}

// Field ищет поле по имени.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
