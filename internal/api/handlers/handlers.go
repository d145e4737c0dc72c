package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Project      *ProjectHandler
	Message      *MessageHandler
	File         *FileHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Project:      &ProjectHandler{projectService: services.Project},
		Message:      &MessageHandler{messageService: services.Message},
		File:         &FileHandler{fileService: services.File, maxBytes: services.MaxUploadBytes},
		Notification: &NotificationHandler{ledger: services.Ledger},
	}
}

// ============================================
// Error Mapping
// ============================================

// respondError writes the status that matches a service error.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
