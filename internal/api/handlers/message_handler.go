package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-discuss/internal/api/middleware"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

// MessageHandler handles project discussion requests
type MessageHandler struct {
	messageService service.MessageService
}

// History lists the most recent messages of a project, oldest first.
func (h *MessageHandler) History(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultHistorySize)))
	messages, err := h.messageService.History(c.Request.Context(), c.Param("id"), identity.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// Send posts a message. Members subscribed to the project receive it over the socket.
func (h *MessageHandler) Send(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), service.SendMessageInput{
		ProjectID:  c.Param("id"),
		SenderID:   identity.ID,
		SenderName: identity.Username,
		Body:       req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
