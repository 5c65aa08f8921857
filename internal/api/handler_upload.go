package api

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"blackbox-backend/internal/imaging"
	"blackbox-backend/internal/mw"
	"blackbox-backend/internal/storage"
)

const (
	uploadEntity = "inventory"
	uploadColumn = "product_images"
)

var imagePathPattern = regexp.MustCompile(`^/(VM-\d+)/inventory/product_images/([^/]+)$`)

// Upload handles POST /api/upload. The image is validated, sniffed,
// downscaled when oversized and stored under the tenant's folder; the
// response carries the public URL to put on an inventory row.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
		return
	}
	if !imaging.AllowedExtension(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid file type. Allowed: png, jpg, jpeg, webp"})
		return
	}
	if fileHeader.Size > imaging.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "File too large. Maximum size is 5MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("open upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "File too large. Maximum size is 5MB"})
		return
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid file type. Allowed: png, jpg, jpeg, webp"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not decode image"})
		return
	}

	filename := uuid.NewString() + result.Ext
	objectPath := storage.ObjectPath(mw.Tenant(c), uploadEntity, uploadColumn, filename)
	publicURL, err := h.storage.Upload(c.Request.Context(), objectPath, result.Data, result.MIME)
	if err != nil {
		log.Printf("upload %s: %v", objectPath, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to store image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "path": publicURL, "message": "Image uploaded successfully"})
}

// ServeImage resolves GET /{machine}/inventory/product_images/{file}
// to the public storage URL. Registered as the no-route fallback since
// a wildcard first segment cannot coexist with the /api tree.
func (h *Handler) ServeImage(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
		return
	}
	m := imagePathPattern.FindStringSubmatch(c.Request.URL.Path)
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
		return
	}
	machineID, filename := m[1], m[2]
	if strings.Contains(filename, "..") {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
		return
	}
	objectPath := storage.ObjectPath(machineID, uploadEntity, uploadColumn, filename)
	c.Redirect(http.StatusFound, h.storage.PublicURL(objectPath))
}
