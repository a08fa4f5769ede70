package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"refenum/internal/binding"
	"refenum/internal/entity"
	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/reference"
)

// Storage: всё, с чем работают обработчики: реестр справочников,
// модели сущностей и хранилище записей.
type Storage struct {
	Registry *enum.Registry
	Catalog  *entity.Catalog
	Records  entity.Store
	Enums    map[string]reference.EnumDirectory
	IDs      *entity.IDs
	Log      *logger.Logger
}

func NewStorage(reg *enum.Registry, cat *entity.Catalog, records entity.Store, log *logger.Logger) *Storage {
	return &Storage{
		Registry: reg,
		Catalog:  cat,
		Records:  records,
		Enums:    map[string]reference.EnumDirectory{},
		IDs:      entity.NewIDs(),
		Log:      log.With(logger.CatAPI),
	}
}

// model находит модель по :module/:entity; при неудаче отвечает 404.
func (s *Storage) model(c *gin.Context) (string, *entity.Model, bool) {
	fqn, ok := s.Catalog.NormalizeEntityName(c.Param("module"), c.Param("entity"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
		return "", nil, false
	}
	m, _ := s.Catalog.Model(fqn)
	return fqn, m, true
}

// enumType находит тип по :type; при неудаче отвечает 404.
func (s *Storage) enumType(c *gin.Context) (*enum.Type, bool) {
	t, err := s.Registry.Type(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enum type not found"})
		return nil, false
	}
	return t, true
}

// statusFor сопоставляет ошибку домена HTTP-статусу.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, enum.ErrNotFound),
		errors.Is(err, enum.ErrUnknownType), errors.Is(err, entity.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, enum.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, enum.ErrImmutableSource):
		return http.StatusMethodNotAllowed
	case errors.Is(err, enum.ErrInvalidMember):
		return http.StatusUnprocessableEntity
	case errors.Is(err, binding.ErrUnknownScope), errors.Is(err, enum.ErrInvalidKeyType),
		errors.Is(err, binding.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Storage) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.Log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
		c.JSON(code, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
