package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"refenum/internal/entity"
)

func versionConflict(c *gin.Context, current int64) {
	c.JSON(http.StatusConflict, gin.H{
		"errors": []entity.FieldError{{
			Code:    entity.ErrCodeVersion,
			Field:   "version",
			Message: fmt.Sprintf("expected version %d", current),
		}},
	})
}

func (s *Storage) render(ctx context.Context, m *entity.Model, rec *entity.Record) (map[string]any, error) {
	out, err := m.Render(ctx, rec)
	if err != nil {
		return nil, err
	}
	return flatten(out), nil
}

// POST /api/:module/:entity
func CreateHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		fqn, m, ok := storage.model(c)
		if !ok {
			return
		}
		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		ctx := c.Request.Context()

		rec := entity.NewRecord()
		rec.ID = storage.IDs.New()
		errs, err := m.Apply(ctx, rec, obj, true)
		if err != nil {
			storage.fail(c, err)
			return
		}
		if len(errs) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
			return
		}
		if err := storage.Records.Insert(ctx, fqn, rec); err != nil {
			storage.fail(c, err)
			return
		}
		out, err := storage.render(ctx, m, rec)
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusCreated, out)
	}
}

// GET /api/:module/:entity/:id
func GetOneHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		fqn, m, ok := storage.model(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		rec, err := storage.Records.Get(ctx, fqn, c.Param("id"))
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		if err != nil {
			storage.fail(c, err)
			return
		}
		out, err := storage.render(ctx, m, rec)
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusOK, out)
	}
}

// PATCH /api/:module/:entity/:id: версия из If-Match или body.version обязательна.
func UpdatePartialHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		fqn, m, ok := storage.model(c)
		if !ok {
			return
		}
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		ctx := c.Request.Context()

		// ожидаемую версию читаем до Apply: он выкидывает поле version
		expVer, okExp := getClientVersion(c, patch)

		rec, err := storage.Records.Get(ctx, fqn, c.Param("id"))
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		if err != nil {
			storage.fail(c, err)
			return
		}
		if !okExp || expVer != rec.Version {
			versionConflict(c, rec.Version)
			return
		}

		errs, err := m.Apply(ctx, rec, patch, false)
		if err != nil {
			storage.fail(c, err)
			return
		}
		if len(errs) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
			return
		}
		if err := storage.Records.Update(ctx, fqn, rec); err != nil {
			if errors.Is(err, entity.ErrVersionConflict) {
				versionConflict(c, expVer+1)
				return
			}
			storage.fail(c, err)
			return
		}
		out, err := storage.render(ctx, m, rec)
		if err != nil {
			storage.fail(c, err)
			return
		}
		c.Header("ETag", fmt.Sprintf(`"%d"`, rec.Version))
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/:module/:entity?with_status=a,b&exclude_state=IL&_sort=-title
func ListHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		fqn, m, ok := storage.model(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		lp := parseListParams(c.Request.URL.Query())

		recs, err := storage.scoped(ctx, fqn, m, lp)
		if err != nil {
			storage.fail(c, err)
			return
		}

		rows := make([]map[string]any, 0, len(recs))
		for _, rec := range recs {
			out, err := storage.render(ctx, m, rec)
			if err != nil {
				storage.fail(c, err)
				return
			}
			rows = append(rows, out)
		}
		sortRowsMultiNulls(rows, lp.Sort, lp.Nulls)

		c.Header("X-Total-Count", strconv.Itoa(len(rows)))
		c.JSON(http.StatusOK, page(rows, lp.Offset, lp.Limit))
	}
}

// scoped: все записи либо пересечение результатов скоупов запроса.
func (s *Storage) scoped(ctx context.Context, fqn string, m *entity.Model, lp ListParams) ([]*entity.Record, error) {
	if len(lp.Scopes) == 0 {
		return s.Records.List(ctx, fqn)
	}
	var out []*entity.Record
	for i, name := range lp.ScopeNames() {
		found, err := m.Owners.Scope(ctx, name, lp.Scopes[name]...)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out = found
			continue
		}
		keep := make(map[string]struct{}, len(found))
		for _, r := range found {
			keep[r.ID] = struct{}{}
		}
		narrowed := out[:0]
		for _, r := range out {
			if _, ok := keep[r.ID]; ok {
				narrowed = append(narrowed, r)
			}
		}
		out = narrowed
	}
	return out, nil
}
