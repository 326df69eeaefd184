package api

import (
	"github.com/crateops/objstream/internal/api/controllers"
	"github.com/crateops/objstream/internal/app"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	objCtrl := &controllers.ObjectsController{App: app}
	dlCtrl := &controllers.DownloadsController{App: app}

	// Object streaming: the key segment may contain slashes.
	e.GET("/v1/objects/:bucket/*", objCtrl.HandleGet)

	// Server-side download jobs
	e.POST("/v1/downloads", dlCtrl.HandleCreate)
	e.GET("/v1/downloads", dlCtrl.HandleList)
	e.GET("/v1/downloads/:id", dlCtrl.HandleGet)
	e.DELETE("/v1/downloads/:id", dlCtrl.HandleCancel)
}
