package reference

import (
	"slices"
	"strings"

	"refenum/internal/enum"
)

// EnumDirectory описывает один справочный тип и, при желании, его строки
type EnumDirectory struct {
	Name             string         `yaml:"name" validate:"required"`
	Table            string         `yaml:"table,omitempty" validate:"omitempty,sqlident"`
	NameColumn       string         `yaml:"name_column,omitempty" validate:"omitempty,sqlident"`
	Order            string         `yaml:"order,omitempty" validate:"omitempty,sqlorder"`
	Where            map[string]any `yaml:"where,omitempty" validate:"omitempty,dive,keys,sqlident,endkeys"`
	OnLookupFailure  string         `yaml:"on_lookup_failure,omitempty" validate:"omitempty,oneof=none strict strict_ids strict_symbols strict_literals"`
	Freeze           *bool          `yaml:"freeze,omitempty"`
	RejectDuplicates bool           `yaml:"reject_duplicates,omitempty"`
	Items            []EnumItem     `yaml:"items,omitempty" validate:"dive"`
}

type EnumItem struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description,omitempty"`
	// nil: активен
	Active *bool `yaml:"active,omitempty"`
	// Дополнительные колонки строки
	Attrs map[string]any `yaml:"attrs,omitempty" validate:"omitempty,dive,keys,sqlident,endkeys"`
}

// Options переводит описание в декларацию enum.Type.
func (d EnumDirectory) Options() enum.Options {
	o := enum.Options{
		Table:            d.Table,
		NameColumn:       d.NameColumn,
		Order:            d.Order,
		Where:            d.Where,
		OnLookupFailure:  enum.ParsePolicy(d.OnLookupFailure),
		RejectDuplicates: d.RejectDuplicates,
	}
	if d.Freeze != nil {
		freeze := *d.Freeze
		o.FreezeMembers = func() bool { return freeze }
	}
	return o
}

// Row: строка для вставки в таблицу справочника.
func (it EnumItem) Row(nameColumn string) enum.Row {
	if strings.TrimSpace(nameColumn) == "" {
		nameColumn = "name"
	}
	r := enum.Row{}
	for k, v := range it.Attrs {
		r[k] = v
	}
	r[nameColumn] = it.Name
	if it.Description != "" {
		r["description"] = it.Description
	}
	if it.Active != nil {
		r["active"] = *it.Active
	}
	return r
}

// AttrColumns: колонки attrs всех строк каталога, кроме стандартных.
func (d EnumDirectory) AttrColumns() []string {
	std := []string{"id", "description", "active", "created_at", "updated_at", d.NameColumn, "name"}
	var out []string
	for _, it := range d.Items {
		for k := range it.Attrs {
			k = strings.ToLower(k)
			if !slices.Contains(std, k) && !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	slices.Sort(out)
	return out
}
