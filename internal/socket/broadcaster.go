package socket

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/logger"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// Broadcaster provides typed publish helpers over the hub. Fan-out failures
// are logged and never returned: the write that triggered them already
// succeeded.
type Broadcaster struct {
	hub *Hub
	log zerolog.Logger
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, log: logger.Component("broadcaster")}
}

func (b *Broadcaster) publish(ctx context.Context, room string, p Payload) {
	if err := b.hub.Publish(ctx, room, NewEnvelope(p)); err != nil {
		b.log.Error().Err(err).Str("room", room).Str("type", string(p.EventType())).Msg("broadcast failed")
	}
}

// ============================================
// Project room
// ============================================

func (b *Broadcaster) BroadcastMessage(ctx context.Context, msg models.Message) {
	b.publish(ctx, ProjectRoom(msg.ProjectID), MessagePayload{Message: msg})
}

func (b *Broadcaster) NotifyUploaded(ctx context.Context, file models.FileRecord, ev models.FileEvent) {
	b.publish(ctx, ProjectRoom(file.ProjectID), FileUploadedPayload{FileEvent: ev, File: file})
}

func (b *Broadcaster) NotifyDeleted(ctx context.Context, ev models.FileEvent) {
	b.publish(ctx, ProjectRoom(ev.ProjectID), FileDeletedPayload{FileEvent: ev})
}

// ============================================
// User room
// ============================================

// NotifyRequest pushes a new or refreshed join request to its recipient.
func (b *Broadcaster) NotifyRequest(ctx context.Context, n models.Notification) {
	b.publish(ctx, UserRoom(n.RecipientUserID), NotificationPayload{Notification: n})
}

// NotifyResolved tells both parties how a join request ended.
func (b *Broadcaster) NotifyResolved(ctx context.Context, n models.Notification, outcome models.AcceptOutcome) {
	p := ResolutionPayload{
		NotificationID:  n.ID,
		ProjectID:       n.ProjectID,
		RequesterUserID: n.RequesterUserID,
		State:           n.State,
		Outcome:         outcome,
	}
	b.publish(ctx, UserRoom(n.RecipientUserID), p)
	b.publish(ctx, UserRoom(n.RequesterUserID), p)
}
