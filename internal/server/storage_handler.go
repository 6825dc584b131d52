// internal/server/storage_handler.go
package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Blob uploads are small profile images; anything bigger is rejected.
const maxUploadSize = 5 << 20

// StorageHandler keeps uploaded blobs on local disk under DataDir and
// serves them back at /storage/:bucket/:key.
type StorageHandler struct {
	dataDir string
}

func NewStorageHandler(dataDir string) *StorageHandler {
	return &StorageHandler{dataDir: dataDir}
}

// Upload handles POST /api/storage/:bucket?key=name
func (h *StorageHandler) Upload(c *gin.Context) {
	bucket := c.Param("bucket")
	key := c.Query("key")
	if !safeName(bucket) || !safeName(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket or key"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read failed"})
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "blob too large"})
		return
	}

	dir := filepath.Join(h.dataDir, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	if err := os.WriteFile(filepath.Join(dir, key), data, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url": fmt.Sprintf("/storage/%s/%s", bucket, key),
	})
}

// Serve handles GET /storage/:bucket/:key
func (h *StorageHandler) Serve(c *gin.Context) {
	bucket := c.Param("bucket")
	key := c.Param("key")
	if !safeName(bucket) || !safeName(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket or key"})
		return
	}
	c.File(filepath.Join(h.dataDir, bucket, key))
}

// safeName allows plain file names only, no separators or traversal.
func safeName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}
