package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/middleware"
	"github.com/iliyamo/fest-registration/internal/service"
)

// actorFrom reads the identity the JWT middleware stored on the context. An
// anonymous request yields the zero Actor.
func actorFrom(c echo.Context) service.Actor {
	role, _ := c.Get(middleware.KeyRole).(string)
	return service.Actor{UserID: contextUserID(c), Role: role}
}

func contextUserID(c echo.Context) uint64 {
	switch v := c.Get(middleware.KeyUserID).(type) {
	case uint64:
		return v
	case int:
		if v > 0 {
			return uint64(v)
		}
	case int64:
		if v > 0 {
			return uint64(v)
		}
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}
