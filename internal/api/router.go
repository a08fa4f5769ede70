// api/router.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(storage *Storage) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(storage))
		apiGroup.GET("/meta/:module/:entity", MetaEntityHandler(storage))

		// справочники
		apiGroup.GET("/enums/:type", EnumListHandler(storage))
		apiGroup.GET("/enums/:type/names", EnumNamesHandler(storage))
		apiGroup.GET("/enums/:type/:key", EnumLookupHandler(storage))
		apiGroup.GET("/enums/:type/:key/contains", EnumContainsHandler(storage))

		admin := apiGroup.Group("/admin/enums/:type")
		admin.POST("/_reload", AdminReloadHandler(storage))
		admin.POST("/members", AdminCreateMemberHandler(storage))
		admin.DELETE("/members/:key", AdminDeleteMemberHandler(storage))

		// владельцы
		apiGroup.POST("/:module/:entity", CreateHandler(storage))
		apiGroup.GET("/:module/:entity", ListHandler(storage))
		apiGroup.GET("/:module/:entity/:id", GetOneHandler(storage))
		apiGroup.PATCH("/:module/:entity/:id", UpdatePartialHandler(storage))
	}
	return r
}

// RunServer слушает addr до отмены ctx, затем мягко останавливается.
func RunServer(ctx context.Context, addr string, storage *Storage) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(storage),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		storage.Log.Info(ctx, "http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
