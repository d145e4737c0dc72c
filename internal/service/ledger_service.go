package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
)

type RequestInput struct {
	RecipientUserID string
	Requester       models.Identity
	ProjectID       string
	ProjectName     string
	Role            string
}

// LedgerService keeps pending join requests addressed to project leads.
type LedgerService interface {
	// Request files a join request. A request already pending for the same
	// requester and project is refreshed and refreshed is true.
	Request(ctx context.Context, in RequestInput) (n *models.Notification, refreshed bool, err error)
	// List returns the recipient's pending requests, newest first.
	List(ctx context.Context, recipientID string) ([]*models.Notification, error)
	// Accept resolves the request and adds the requester to the project.
	// If adding fails the request goes back to pending.
	Accept(ctx context.Context, recipientID, id string) (*models.Notification, models.AcceptOutcome, error)
	Reject(ctx context.Context, recipientID, id string) (*models.Notification, error)
	// Purge drops resolved requests older than olderThan.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

type ledgerService struct {
	notificationRepo repository.NotificationRepository
	projectRepo      repository.ProjectRepository
	broadcaster      *socket.Broadcaster
}

func NewLedgerService(
	notificationRepo repository.NotificationRepository,
	projectRepo repository.ProjectRepository,
	broadcaster *socket.Broadcaster,
) LedgerService {
	return &ledgerService{
		notificationRepo: notificationRepo,
		projectRepo:      projectRepo,
		broadcaster:      broadcaster,
	}
}

func (s *ledgerService) Request(ctx context.Context, in RequestInput) (*models.Notification, bool, error) {
	role := strings.TrimSpace(in.Role)
	requesterName := strings.TrimSpace(in.Requester.Username)
	switch {
	case in.RecipientUserID == "":
		return nil, false, invalid("recipient is required")
	case in.Requester.ID == "":
		return nil, false, invalid("requester is required")
	case requesterName == "":
		return nil, false, invalid("requester name is required")
	case in.ProjectID == "":
		return nil, false, invalid("project id is required")
	case role == "":
		return nil, false, invalid("role is required")
	case in.RecipientUserID == in.Requester.ID:
		return nil, false, invalid("cannot send a join request to yourself")
	}

	project, err := s.projectRepo.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, false, upstream("load project", err)
	}
	if project == nil {
		return nil, false, ErrNotFound
	}
	if project.TeamLeadID != in.RecipientUserID {
		return nil, false, invalid("recipient does not lead project %s", project.ID)
	}
	if len(project.Roles) > 0 && !containsFold(project.Roles, role) {
		return nil, false, invalid("role %q is not open on this project", role)
	}
	if project.HasMember(in.Requester.ID) {
		return nil, false, invalid("already a member of project %s", project.ID)
	}

	projectName := strings.TrimSpace(in.ProjectName)
	if projectName == "" {
		projectName = project.Name
	}

	n := &models.Notification{
		RecipientUserID: in.RecipientUserID,
		RequesterUserID: in.Requester.ID,
		RequesterName:   requesterName,
		ProjectID:       in.ProjectID,
		ProjectName:     projectName,
		Role:            role,
		Timestamp:       time.Now().UTC(),
	}
	refreshed, err := s.notificationRepo.Upsert(ctx, n)
	if err != nil {
		return nil, false, upstream("record join request", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.NotifyRequest(ctx, *n)
	}
	return n, refreshed, nil
}

func (s *ledgerService) List(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	if recipientID == "" {
		return nil, invalid("recipient is required")
	}
	list, err := s.notificationRepo.ListPending(ctx, recipientID)
	if err != nil {
		return nil, upstream("list join requests", err)
	}
	models.SortNewestFirst(list)
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

func (s *ledgerService) Accept(ctx context.Context, recipientID, id string) (*models.Notification, models.AcceptOutcome, error) {
	n, err := s.notificationRepo.Resolve(ctx, id, recipientID, models.StateAccepted)
	if err != nil {
		return nil, "", upstream("resolve join request", err)
	}
	if n == nil {
		return nil, "", ErrNotFound
	}

	outcome, err := s.addRequester(ctx, n)
	if err != nil {
		s.reopen(ctx, n)
		return nil, "", err
	}

	if s.broadcaster != nil {
		s.broadcaster.NotifyResolved(ctx, *n, outcome)
	}
	return n, outcome, nil
}

func (s *ledgerService) addRequester(ctx context.Context, n *models.Notification) (models.AcceptOutcome, error) {
	member, err := s.projectRepo.IsTeamMember(ctx, n.ProjectID, n.RequesterUserID)
	if err != nil {
		return "", upstream("check membership", err)
	}
	if member {
		return models.OutcomeAlreadyMember, nil
	}

	added, err := s.projectRepo.AddTeamMember(ctx, n.ProjectID, models.TeamMember{
		UserID:   n.RequesterUserID,
		Username: n.RequesterName,
		Role:     n.Role,
		JoinedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrProjectNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", upstream("add team member", err)
	}
	if !added {
		return models.OutcomeAlreadyMember, nil
	}
	return models.OutcomeAdded, nil
}

// reopen puts an accepted request back to pending after the membership
// write failed. It runs even if the caller's context was cancelled.
func (s *ledgerService) reopen(ctx context.Context, n *models.Notification) {
	err := s.notificationRepo.Reopen(context.WithoutCancel(ctx), n.ID)
	if err == nil {
		n.State = models.StatePending
		return
	}
	log.Error().Err(err).Str("notification", n.ID).Msg("failed to reopen join request")
}

func (s *ledgerService) Reject(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	n, err := s.notificationRepo.Resolve(ctx, id, recipientID, models.StateRejected)
	if err != nil {
		return nil, upstream("resolve join request", err)
	}
	if n == nil {
		return nil, ErrNotFound
	}
	if s.broadcaster != nil {
		s.broadcaster.NotifyResolved(ctx, *n, "")
	}
	return n, nil
}

func (s *ledgerService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.notificationRepo.PurgeResolved(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, upstream("purge join requests", err)
	}
	return n, nil
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
