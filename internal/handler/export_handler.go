package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appErrors "github.com/gfwl-hub/gfwl-hub-api/pkg/errors"
	"github.com/gfwl-hub/gfwl-hub-api/pkg/response"
)

type exportDownloader interface {
	ResolveDownload(token string) (*os.File, string, error)
}

// ExportHandler serves signed export downloads.
type ExportHandler struct {
	service exportDownloader
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportDownloader) *ExportHandler {
	return &ExportHandler{service: service}
}

// Download godoc
// @Summary Download a generated export
// @Description The token comes from the signed URL returned by the export endpoint
// @Tags Users
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing download token"))
		return
	}

	file, contentType, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read export"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+info.Name())
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
