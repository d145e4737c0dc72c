package socket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// EventType tags every frame sent to subscribers.
type EventType string

const (
	// Discussion events
	EventMessage      EventType = "message"
	EventFileUploaded EventType = "fileUploaded"
	EventFileDeleted  EventType = "fileDeleted"

	// Join request lifecycle
	EventNotificationRequested EventType = "notificationRequested"
	EventNotificationResolved  EventType = "notificationResolved"

	// System
	EventAck   EventType = "ack"
	EventError EventType = "error"
	EventPing  EventType = "ping"
	EventPong  EventType = "pong"
)

// Payload is implemented by every event body. The envelope type is always
// taken from the payload so the two cannot disagree.
type Payload interface {
	EventType() EventType
}

// Envelope is the wire frame: { type, payload, timestamp }.
type Envelope struct {
	Type      EventType `json:"type"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEnvelope(p Payload) Envelope {
	return Envelope{Type: p.EventType(), Payload: p, Timestamp: time.Now().UTC()}
}

type MessagePayload struct {
	models.Message
}

func (MessagePayload) EventType() EventType { return EventMessage }

type FileUploadedPayload struct {
	models.FileEvent
	File models.FileRecord `json:"file"`
}

func (FileUploadedPayload) EventType() EventType { return EventFileUploaded }

type FileDeletedPayload struct {
	models.FileEvent
}

func (FileDeletedPayload) EventType() EventType { return EventFileDeleted }

type NotificationPayload struct {
	models.Notification
}

func (NotificationPayload) EventType() EventType { return EventNotificationRequested }

type ResolutionPayload struct {
	NotificationID  string                   `json:"notificationId"`
	ProjectID       string                   `json:"projectId"`
	RequesterUserID string                   `json:"requesterUserId"`
	State           models.NotificationState `json:"state"`
	Outcome         models.AcceptOutcome     `json:"outcome,omitempty"`
}

func (ResolutionPayload) EventType() EventType { return EventNotificationResolved }

type AckPayload struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId,omitempty"`
}

func (AckPayload) EventType() EventType { return EventAck }

type ErrorPayload struct {
	Action    string `json:"action,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Message   string `json:"message"`
}

func (ErrorPayload) EventType() EventType { return EventError }

type PingPayload struct {
	Time int64 `json:"time"`
}

func (PingPayload) EventType() EventType { return EventPing }

type PongPayload struct {
	Time int64 `json:"time"`
}

func (PongPayload) EventType() EventType { return EventPong }

// RawEnvelope is an inbound frame whose payload has not been decoded yet.
type RawEnvelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func DecodeEnvelope(data []byte) (RawEnvelope, error) {
	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawEnvelope{}, err
	}
	if raw.Type == "" {
		return RawEnvelope{}, fmt.Errorf("frame without type")
	}
	return raw, nil
}

// Decode returns the concrete payload for the envelope's type.
func (r RawEnvelope) Decode() (Payload, error) {
	var p Payload
	switch r.Type {
	case EventMessage:
		p = &MessagePayload{}
	case EventFileUploaded:
		p = &FileUploadedPayload{}
	case EventFileDeleted:
		p = &FileDeletedPayload{}
	case EventNotificationRequested:
		p = &NotificationPayload{}
	case EventNotificationResolved:
		p = &ResolutionPayload{}
	case EventAck:
		p = &AckPayload{}
	case EventError:
		p = &ErrorPayload{}
	case EventPing:
		p = &PingPayload{}
	case EventPong:
		p = &PongPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", r.Type)
	}
	if len(r.Payload) > 0 && string(r.Payload) != "null" {
		if err := json.Unmarshal(r.Payload, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", r.Type, err)
		}
	}
	return p, nil
}
