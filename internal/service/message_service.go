package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
)

const (
	MaxMessageLength   = 10000
	DefaultHistorySize = 200
)

type SendMessageInput struct {
	ProjectID  string
	SenderID   string
	SenderName string
	Body       string
}

// MessageService posts and lists project discussion messages.
type MessageService interface {
	// Send persists the message and then delivers it to every connection
	// subscribed to the project, the sender's own included.
	Send(ctx context.Context, in SendMessageInput) (*models.Message, error)
	// SendAs is Send for a connected websocket user.
	SendAs(ctx context.Context, who models.Identity, projectID, body string) error
	// History returns the most recent messages in send order.
	History(ctx context.Context, projectID, viewerID string, limit int) ([]*models.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	projectRepo repository.ProjectRepository
	broadcaster *socket.Broadcaster
	locks       *keyedMutex
}

func newMessageService(
	messageRepo repository.MessageRepository,
	projectRepo repository.ProjectRepository,
	broadcaster *socket.Broadcaster,
	locks *keyedMutex,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		projectRepo: projectRepo,
		broadcaster: broadcaster,
		locks:       locks,
	}
}

func (s *messageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	body := strings.TrimSpace(in.Body)
	switch {
	case in.ProjectID == "":
		return nil, invalid("project id is required")
	case in.SenderID == "":
		return nil, invalid("sender id is required")
	case body == "":
		return nil, invalid("message body is empty")
	case utf8.RuneCountInString(body) > MaxMessageLength:
		return nil, invalid("message body exceeds %d characters", MaxMessageLength)
	}

	if _, err := requireMember(ctx, s.projectRepo, in.ProjectID, in.SenderID); err != nil {
		return nil, err
	}

	senderName := strings.TrimSpace(in.SenderName)
	if senderName == "" {
		senderName = in.SenderID
	}

	unlock := s.locks.Lock(in.ProjectID)
	defer unlock()

	msg := &models.Message{
		ID:         uuid.New().String(),
		ProjectID:  in.ProjectID,
		SenderID:   in.SenderID,
		SenderName: senderName,
		Body:       body,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, upstream("persist message", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(ctx, *msg)
	}
	return msg, nil
}

func (s *messageService) SendAs(ctx context.Context, who models.Identity, projectID, body string) error {
	_, err := s.Send(ctx, SendMessageInput{
		ProjectID:  projectID,
		SenderID:   who.ID,
		SenderName: who.Username,
		Body:       body,
	})
	return err
}

func (s *messageService) History(ctx context.Context, projectID, viewerID string, limit int) ([]*models.Message, error) {
	if _, err := requireMember(ctx, s.projectRepo, projectID, viewerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultHistorySize {
		limit = DefaultHistorySize
	}

	messages, err := s.messageRepo.ListByProject(ctx, projectID, limit)
	if err != nil {
		return nil, upstream("list messages", err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}
