// Package health exposes liveness and readiness endpoints.
package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register registers health routes.
func Register(g *echo.Group) {
	g.GET("", Check)
}

// Check reports process liveness.
func Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
