package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/domain"
	"bloomledger/internal/infrastructure/spreadsheet"
)

const maxUploadBytes = 10 << 20

// readUpload returns the rows of an uploaded xlsx "file" field.
func readUpload(c *gin.Context) ([]domain.Row, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, apperror.NewInvalidInput("file", "multipart field \"file\" is required")
	}
	if fh.Size > maxUploadBytes {
		return nil, apperror.NewInvalidInput("file", "file is too large").WithDetail("max_bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperror.NewInvalidInput("file", "file could not be opened").WithCause(err)
	}
	defer func() { _ = f.Close() }()
	return spreadsheet.ReadRows(f)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func toRows(raw []map[string]string) []domain.Row {
	rows := make([]domain.Row, len(raw))
	for i, r := range raw {
		rows[i] = domain.Row(r)
	}
	return rows
}
