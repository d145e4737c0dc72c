package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-discuss/internal/api/middleware"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

// NotificationHandler serves the join-request ledger of the caller.
type NotificationHandler struct {
	ledger service.LedgerService
}

// Request files a join request to a project lead.
func (h *NotificationHandler) Request(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.JoinRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, refreshed, err := h.ledger.Request(c.Request.Context(), service.RequestInput{
		RecipientUserID: req.RecipientUserID,
		Requester:       identity,
		ProjectID:       req.ProjectID,
		ProjectName:     req.ProjectName,
		Role:            req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if refreshed {
		status = http.StatusOK
	}
	c.JSON(status, models.RequestResponse{Notification: n, Refreshed: refreshed})
}

// List returns pending requests addressed to the caller, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	list, err := h.ledger.List(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) Accept(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	n, outcome, err := h.ledger.Accept(c.Request.Context(), identity.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := n.RequesterName + " joined " + n.ProjectName
	if outcome == models.OutcomeAlreadyMember {
		message = n.RequesterName + " is already a member of " + n.ProjectName
	}
	c.JSON(http.StatusOK, models.AcceptResponse{Outcome: outcome, Message: message, Notification: n})
}

func (h *NotificationHandler) Reject(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	n, err := h.ledger.Reject(c.Request.Context(), identity.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
