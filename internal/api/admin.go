package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"refenum/internal/enum"
)

// POST /api/admin/enums/:type/_reload: пустое окно обновления:
// снапшот сбрасывается и перечитывается при следующем обращении.
func AdminReloadHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if err := t.Update(ctx, nil); err != nil {
			storage.fail(c, err)
			return
		}
		names, err := t.Names(ctx)
		if err != nil {
			storage.fail(c, err)
			return
		}
		storage.Log.Info(ctx, "enum reloaded", "type", t.Name(), "members", len(names))
		c.JSON(http.StatusOK, gin.H{"ok": true, "type": t.Name(), "members": len(names)})
	}
}

// POST /api/admin/enums/:type/members  {"name": "...", ...колонки}
func AdminCreateMemberHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		var row map[string]any
		if err := c.ShouldBindJSON(&row); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		var created *enum.Instance
		err := t.Update(c.Request.Context(), func(ctx context.Context, t *enum.Type) error {
			var err error
			created, err = t.CreateMember(ctx, enum.Row(row))
			return err
		})
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, toMember(created))
	}
}

// DELETE /api/admin/enums/:type/members/:key
func AdminDeleteMemberHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := storage.enumType(c)
		if !ok {
			return
		}
		key := pathKey(c.Param("key"))
		err := t.Update(c.Request.Context(), func(ctx context.Context, t *enum.Type) error {
			return t.DestroyMember(ctx, key)
		})
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
