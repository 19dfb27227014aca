package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-analytics/student-portal-api/pkg/storage"
)

func newFileFixture(t *testing.T) (*FileHandler, *storage.SignedURLSigner) {
	t.Helper()
	blobs, err := storage.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blobs.Save("assignments/S001_essay.pdf", []byte("essay body")))
	signer := storage.NewSignedURLSigner("download-secret", 10*time.Minute)
	return NewFileHandler(blobs, signer), signer
}

func TestFileHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, signer := newFileFixture(t)

	token, _, err := signer.Sign("assignments/S001_essay.pdf")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/files/download?token="+token, nil)

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "essay body", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "S001_essay.pdf")
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
}

func TestFileHandlerDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newFileFixture(t)

	c, w := newGinContext(http.MethodGet, "/files/download", nil)

	handler.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileHandlerDownloadExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	blobs, err := storage.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, blobs.Save("assignments/S001_essay.pdf", []byte("essay body")))

	// Sign with a different secret so verification fails, which the route
	// reports the same way as an expired link.
	handler := NewFileHandler(blobs, storage.NewSignedURLSigner("secret-a", 10*time.Minute))
	token, _, err := storage.NewSignedURLSigner("secret-b", 10*time.Minute).Sign("assignments/S001_essay.pdf")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/files/download?token="+token, nil)

	handler.Download(c)
	require.Equal(t, http.StatusGone, w.Code)
}

func TestFileHandlerDownloadMissingBlob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, signer := newFileFixture(t)

	token, _, err := signer.Sign("assignments/S404_gone.pdf")
	require.NoError(t, err)

	c, w := newGinContext(http.MethodGet, "/files/download?token="+token, nil)

	handler.Download(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
