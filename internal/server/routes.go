package server

import (
	"net/http"

	"github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/", routes.RootHandler)
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.POST("/process_artifact/", routes.ProcessArtifactHandler, middleware.AuthMiddleware)
	e.POST("/artifacts", routes.SubmitArtifactHandler, middleware.AuthMiddleware)
	e.GET("/runs/:id", routes.GetRunHandler, middleware.AuthMiddleware)
}
