package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

// Service calls get a bounded context. Certificate batches render many PDFs
// and get more room.
const (
	requestTimeout = 5 * time.Second
	batchTimeout   = 2 * time.Minute
)

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, malformed(name)
	}
	return id, nil
}

// queryID parses an optional positive id from the query string.
func queryID(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, malformed(name)
	}
	return &id, nil
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

func malformed(name string) error {
	return fmt.Errorf("%w: invalid %s", apperr.ErrMalformedInput, name)
}
