package entity

import (
	"fmt"
	"sort"
	"strings"

	"refenum/internal/dsl"
	"refenum/internal/enum"
	"refenum/internal/logger"
)

// Catalog: модели всех сущностей по FQN.
type Catalog struct {
	models map[string]*Model
}

// NewCatalog строит модели для схем; первая ошибка привязки прерывает сборку.
func NewCatalog(schemas map[string]*dsl.Entity, reg *enum.Registry, store Store, log *logger.Logger, opts ...ModelOption) (*Catalog, error) {
	c := &Catalog{models: make(map[string]*Model, len(schemas))}
	for fqn, s := range schemas {
		m, err := NewModel(s, reg, store, log, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fqn, err)
		}
		c.models[fqn] = m
	}
	return c, nil
}

func (c *Catalog) Model(fqn string) (*Model, bool) {
	m, ok := c.models[fqn]
	return m, ok
}

// FQNs: все сущности, по алфавиту.
func (c *Catalog) FQNs() []string {
	out := make([]string, 0, len(c.models))
	for fqn := range c.models {
		out = append(out, fqn)
	}
	sort.Strings(out)
	return out
}

// NormalizeEntityName возвращает FQN ("module.name") по паре {module, entity}.
// Если module пустой, ищет уникальную сущность с таким именем среди всех модулей.
func (c *Catalog) NormalizeEntityName(module, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	ml := strings.ToLower(strings.TrimSpace(module))
	nl := strings.ToLower(strings.TrimSpace(name))

	if ml != "" {
		if _, ok := c.models[module+"."+name]; ok {
			return module + "." + name, true
		}
		for fqn := range c.models {
			fm, fn, ok := strings.Cut(fqn, ".")
			if !ok {
				continue
			}
			if strings.ToLower(fm) == ml && strings.ToLower(fn) == nl {
				return fqn, true
			}
		}
		return "", false
	}

	var found string
	for fqn := range c.models {
		_, fn, ok := strings.Cut(fqn, ".")
		if !ok {
			continue
		}
		if strings.ToLower(fn) == nl {
			if found != "" { // неуникально
				return "", false
			}
			found = fqn
		}
	}
	return found, found != ""
}
