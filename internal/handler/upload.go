package handler

import (
	"fmt"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

const (
	maxImageBytes    = 5 << 20
	maxDocumentBytes = 15 << 20
)

// readUpload returns the content of the multipart file field, refusing
// anything larger than limit.
func readUpload(c echo.Context, field string, limit int64) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, apperr.Validation(apperr.MissingField, "multipart field %q is required", field)
	}
	if fh.Size > limit {
		return nil, apperr.Validation(apperr.InvalidInput, "%s exceeds %d bytes", field, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, apperr.Validation(apperr.InvalidInput, "%s exceeds %d bytes", field, limit)
	}
	return data, nil
}
