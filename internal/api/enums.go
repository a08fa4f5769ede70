package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"refenum/internal/enum"
)

type memberJSON struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Active bool           `json:"active"`
	Attrs  map[string]any `json:"attrs"`
}

func toMember(e *enum.Instance) memberJSON {
	return memberJSON{ID: e.ID(), Name: e.Name(), Active: e.Active(), Attrs: e.Attrs()}
}

// pathKey: целое: id, иначе имя.
func pathKey(s string) any {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// GET /api/enums/:type?scope=active|inactive
func EnumListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		var (
			members []*enum.Instance
			err     error
		)
		switch strings.ToLower(c.Query("scope")) {
		case "", "all":
			members, err = t.All(ctx)
		case "active":
			members, err = t.Active(ctx)
		case "inactive":
			members, err = t.Inactive(ctx)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be active or inactive"})
			return
		}
		if err != nil {
			storage.fail(c, err)
			return
		}
		out := make([]memberJSON, 0, len(members))
		for _, e := range members {
			out = append(out, toMember(e))
		}
		c.Header("X-Total-Count", strconv.Itoa(len(out)))
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/enums/:type/names
func EnumNamesHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		names, err := t.Names(c.Request.Context())
		if err != nil {
			storage.fail(c, err)
			return
		}
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = string(n)
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/enums/:type/:key: поиск с политикой промаха типа.
func EnumLookupHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		e, err := t.Lookup(c.Request.Context(), pathKey(c.Param("key")))
		if err != nil {
			storage.fail(c, err)
			return
		}
		if e == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		c.JSON(http.StatusOK, toMember(e))
	}
}

// GET /api/enums/:type/:key/contains
func EnumContainsHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		found, err := t.Contains(c.Request.Context(), pathKey(c.Param("key")))
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"contains": found})
	}
}
