// internal/seed/seed.go
package seed

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/repository"
)

const (
	WebProjectID    = "ora-web"
	MobileProjectID = "ora-mobile"
)

// Users are the people the demo data is built around. Tokens for them can be
// minted with auth.Issuer in development.
var Users = []models.Identity{
	{ID: "marga", Username: "Marga Ghale", Email: "marga.ghale@oratechnologies.io"},
	{ID: "bipin", Username: "Bipin Dhimal", Email: "bipin.dhimal@oratechnologies.io"},
	{ID: "kritim", Username: "Kritim Kafle", Email: "kritim.kafle@oratechnologies.io"},
	{ID: "prerak", Username: "Prerak Khadka", Email: "prerak.khadka@oratechnologies.io"},
}

// SeedData creates two projects with some history and one pending join
// request. It does nothing when the web project already exists.
func SeedData(ctx context.Context, repos *repository.Repositories) error {
	existing, err := repos.ProjectRepo.FindByID(ctx, WebProjectID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Info().Msg("[Seed] data already exists, skipping")
		return nil
	}

	marga, bipin, kritim, prerak := Users[0], Users[1], Users[2], Users[3]
	now := time.Now().UTC()

	// ============================================
	// SCENARIO 1: Marga leads the web project, Bipin and Kritim work on it
	// ============================================
	web := &models.Project{
		ID:         WebProjectID,
		Name:       "ORA Web Platform",
		TeamLeadID: marga.ID,
		Roles:      []string{"frontend", "backend", "qa"},
		TaskColumns: []models.TaskColumn{
			{ID: "todo", Title: "To Do", TaskIDs: []string{"WEB-3", "WEB-4"}},
			{ID: "in-progress", Title: "In Progress", TaskIDs: []string{"WEB-2"}},
			{ID: "done", Title: "Done", TaskIDs: []string{"WEB-1"}},
		},
		TeamMembers: []models.TeamMember{
			{UserID: bipin.ID, Username: bipin.Username, Role: "backend", JoinedAt: now.Add(-72 * time.Hour)},
			{UserID: kritim.ID, Username: kritim.Username, Role: "frontend", JoinedAt: now.Add(-48 * time.Hour)},
		},
		CreatedAt: now.Add(-96 * time.Hour),
	}
	if err := repos.ProjectRepo.Create(ctx, web); err != nil {
		return err
	}

	// ============================================
	// SCENARIO 2: Bipin leads mobile on his own
	// ============================================
	mobile := &models.Project{
		ID:          MobileProjectID,
		Name:        "ORA Mobile",
		TeamLeadID:  bipin.ID,
		Roles:       []string{"ios", "android"},
		TaskColumns: []models.TaskColumn{{ID: "backlog", Title: "Backlog", TaskIDs: []string{"MOB-1"}}},
		CreatedAt:   now.Add(-24 * time.Hour),
	}
	if err := repos.ProjectRepo.Create(ctx, mobile); err != nil {
		return err
	}

	history := []struct {
		who  models.Identity
		body string
	}{
		{marga, "Kickoff is Monday, please review the API draft before then."},
		{bipin, "Draft looks good. I'll take the auth endpoints."},
		{kritim, "I can start on the dashboard once the endpoints are stubbed."},
	}
	for i, h := range history {
		msg := &models.Message{
			ProjectID:  web.ID,
			SenderID:   h.who.ID,
			SenderName: h.who.Username,
			Body:       h.body,
			Timestamp:  now.Add(time.Duration(i-len(history)) * time.Hour),
		}
		if err := repos.MessageRepo.Create(ctx, msg); err != nil {
			return err
		}
	}

	// ============================================
	// SCENARIO 3: Prerak (contractor) asks Marga to join as QA
	// ============================================
	if _, err := repos.NotificationRepo.Upsert(ctx, &models.Notification{
		RecipientUserID: marga.ID,
		RequesterUserID: prerak.ID,
		RequesterName:   prerak.Username,
		ProjectID:       web.ID,
		ProjectName:     web.Name,
		Role:            "qa",
		Timestamp:       now.Add(-30 * time.Minute),
	}); err != nil {
		return err
	}

	log.Info().Int("projects", 2).Int("messages", len(history)).Msg("[Seed] demo data created")
	return nil
}
