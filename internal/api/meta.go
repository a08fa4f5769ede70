package api

import (
	"maps"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ===== META HANDLERS =====

type metaEnum struct {
	Name            string `json:"name"`
	Table           string `json:"table"`
	NameColumn      string `json:"nameColumn"`
	OnLookupFailure string `json:"onLookupFailure"`
}

type metaEntityListItem struct {
	Module string `json:"module"`
	Entity string `json:"entity"`
}

type metaIndex struct {
	Enums    []metaEnum           `json:"enums"`
	Entities []metaEntityListItem `json:"entities"`
}

// GET /api/meta: справочные типы и сущности-владельцы.
func MetaListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := metaIndex{
			Enums:    []metaEnum{},
			Entities: []metaEntityListItem{},
		}
		for _, n := range storage.Registry.Names() {
			t, err := storage.Registry.Type(n)
			if err != nil {
				storage.fail(c, err)
				return
			}
			out.Enums = append(out.Enums, metaEnum{
				Name:            t.Name(),
				Table:           t.Table(),
				NameColumn:      t.NameColumn(),
				OnLookupFailure: t.LookupFailurePolicy().String(),
			})
		}
		for _, fqn := range storage.Catalog.FQNs() {
			mod, ent := splitFQN(fqn)
			out.Entities = append(out.Entities, metaEntityListItem{Module: mod, Entity: ent})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaField struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Enum    string            `json:"enum,omitempty"`
	FK      string            `json:"fk,omitempty"`
	Handler string            `json:"onLookupFailure,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

type metaEntity struct {
	Module string      `json:"module"`
	Entity string      `json:"entity"`
	Fields []metaField `json:"fields"`
	Scopes []string    `json:"scopes"`
}

// GET /api/meta/:module/:entity
func MetaEntityHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		fqn, m, ok := storage.model(c)
		if !ok {
			return
		}
		fields := make([]metaField, 0, len(m.Schema.Fields))
		for _, f := range m.Schema.Fields {
			mf := metaField{
				Name:    f.Name,
				Type:    strings.ToLower(f.Type),
				Options: maps.Clone(f.Options),
			}
			if b, ok := m.Owners.Binding(f.Name); ok {
				mf.Enum = b.Type().Name()
				mf.FK = b.ForeignKey()
				mf.Handler = b.Handler()
			}
			fields = append(fields, mf)
		}
		mod, ent := splitFQN(fqn)
		c.JSON(http.StatusOK, metaEntity{
			Module: mod,
			Entity: ent,
			Fields: fields,
			Scopes: m.Owners.Scopes(),
		})
	}
}

// splitFQN("module.entity") -> ("module","entity")
func splitFQN(fqn string) (string, string) {
	i := strings.IndexByte(fqn, '.')
	if i <= 0 || i >= len(fqn)-1 {
		return "", fqn
	}
	return fqn[:i], fqn[i+1:]
}
