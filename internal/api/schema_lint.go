package api

import (
	"fmt"
	"sort"
	"strings"

	"refenum/internal/binding"
	"refenum/internal/dsl"
	"refenum/internal/enum"
)

type SchemaIssue struct {
	Entity  string `json:"entity"` // FQN: module.Entity
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SchemaLint проверяет противоречия между DSL и реестром справочников.
// methods: имена обработчиков промаха, зарегистрированных у владельцев.
func SchemaLint(schemas map[string]*dsl.Entity, reg *enum.Registry, methods ...string) []SchemaIssue {
	var issues []SchemaIssue
	add := func(fqn, field, code, msg string) {
		issues = append(issues, SchemaIssue{Entity: fqn, Field: field, Code: code, Message: msg})
	}

	keys := make([]string, 0, len(schemas))
	for k := range schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, fqn := range keys {
		e := schemas[fqn]
		columns := make(map[string]string, len(e.Fields))
		for _, f := range e.Fields {
			if !f.IsEnumerated() {
				columns[f.Name] = f.Name
			}
		}
		for _, f := range e.Fields {
			// валидность on_delete
			od := strings.TrimSpace(strings.ToLower(f.Options["on_delete"]))
			switch od {
			case "", "restrict", "set_null":
			default:
				add(fqn, f.Name, "on_delete_unknown",
					fmt.Sprintf("unknown on_delete policy %q (allowed: restrict|set_null)", od))
			}
			if !f.IsEnumerated() {
				continue
			}

			if !reg.Has(f.EnumType) {
				add(fqn, f.Name, "enum_type_unknown", fmt.Sprintf("enum type %q is not declared", f.EnumType))
			}
			// required + set_null: конфликт
			if f.Flag("required") && od == "set_null" {
				add(fqn, f.Name, "required_conflicts_on_delete",
					"required enum cannot have on_delete=set_null; use restrict (or make field optional)")
			}
			fk := f.ForeignKey()
			if other, clash := columns[fk]; clash {
				add(fqn, f.Name, "fk_conflict", fmt.Sprintf("foreign key column %q is already used by %q", fk, other))
			} else {
				columns[fk] = f.Name
			}
			if h := strings.TrimSpace(f.Options["on_lookup_failure"]); h != "" && h != binding.RetainForValidation {
				known := false
				for _, m := range methods {
					if m == h {
						known = true
					}
				}
				if !known {
					add(fqn, f.Name, "handler_unknown", fmt.Sprintf("unknown on_lookup_failure handler %q", h))
				}
			}
		}
	}
	return issues
}
