package handler

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
	"github.com/edu-analytics/student-portal-api/pkg/response"
	"github.com/edu-analytics/student-portal-api/pkg/storage"
)

// FileHandler streams blobs referenced by signed download tokens. The
// route is unauthenticated: the HMAC signature on the token is the
// credential, which is what lets the link live inside an anchor tag.
type FileHandler struct {
	blobs  *storage.BlobStore
	signer *storage.SignedURLSigner
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(blobs *storage.BlobStore, signer *storage.SignedURLSigner) *FileHandler {
	return &FileHandler{blobs: blobs, signer: signer}
}

// Download godoc
// @Summary Download a file via a signed, time-limited token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	key, err := h.signer.Verify(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrLinkExpired.Code, appErrors.ErrLinkExpired.Status, "download link invalid or expired"))
		return
	}

	size, err := h.blobs.Stat(key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	file, err := h.blobs.Open(key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	c.DataFromReader(http.StatusOK, size, "application/octet-stream", file, nil)
}
