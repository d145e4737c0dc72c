package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-discuss/internal/api/middleware"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

// multipartOverhead covers boundaries and part headers around the file body.
const multipartOverhead = 64 << 10

type FileHandler struct {
	fileService service.FileService
	maxBytes    int64
}

func (h *FileHandler) List(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	files, err := h.fileService.List(c.Request.Context(), c.Param("id"), identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if files == nil {
		files = []*models.FileRecord{}
	}
	c.JSON(http.StatusOK, files)
}

// Upload stores the multipart "file" field for the project.
func (h *FileHandler) Upload(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if h.maxBytes > 0 {
		limit := h.maxBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	record, err := h.fileService.Upload(c.Request.Context(), service.UploadInput{
		ProjectID: c.Param("id"),
		Uploader:  identity,
		Name:      header.Filename,
		Size:      header.Size,
		Reader:    f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *FileHandler) Download(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	record, body, err := h.fileService.Open(c.Request.Context(), c.Param("fileId"), identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": record.Name})
	c.DataFromReader(http.StatusOK, record.Size, record.ContentType, body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *FileHandler) Delete(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), c.Param("id"), c.Param("fileId"), identity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
