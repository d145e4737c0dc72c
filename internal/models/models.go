package models

import (
	"sort"
	"time"
)

// ============================================
// Identity
// ============================================

// Identity is the current actor as carried in the access token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ============================================
// Discussion
// ============================================

// Message is a chat message posted to a project channel. Never mutated after creation.
type Message struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
}

// FileRecord describes a file stored for a project.
type FileRecord struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Name         string    `json:"name"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	ObjectKey    string    `json:"-"`
	UploaderID   string    `json:"uploaderId"`
	UploaderName string    `json:"uploaderName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type FileEventKind string

const (
	FileUploaded FileEventKind = "uploaded"
	FileDeleted  FileEventKind = "deleted"
)

// FileEvent is broadcast once, after the underlying store action committed.
type FileEvent struct {
	Kind         FileEventKind     `json:"kind"`
	FileID       string            `json:"fileId"`
	ProjectID    string            `json:"projectId"`
	UploaderName string            `json:"uploaderName,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ============================================
// Join requests
// ============================================

type NotificationState string

const (
	StatePending  NotificationState = "pending"
	StateAccepted NotificationState = "accepted"
	StateRejected NotificationState = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s NotificationState) IsTerminal() bool {
	return s == StateAccepted || s == StateRejected
}

// Notification is a request by RequesterUserID to join ProjectID with Role,
// addressed to RecipientUserID (usually the project lead).
type Notification struct {
	ID              string            `json:"id"`
	RecipientUserID string            `json:"recipientUserId"`
	RequesterUserID string            `json:"requesterUserId"`
	RequesterName   string            `json:"requesterName"`
	ProjectID       string            `json:"projectId"`
	ProjectName     string            `json:"projectName"`
	Role            string            `json:"role"`
	Timestamp       time.Time         `json:"timestamp"`
	State           NotificationState `json:"state"`
}

// SortNewestFirst orders by timestamp descending, then ID descending.
func SortNewestFirst(list []*Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].ID > list[j].ID
		}
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}

type AcceptOutcome string

const (
	OutcomeAdded         AcceptOutcome = "added"
	OutcomeAlreadyMember AcceptOutcome = "already_member"
)

// ============================================
// Projects (external store contract)
// ============================================

type TeamMember struct {
	UserID   string    `json:"userId" db:"user_id"`
	Username string    `json:"username" db:"username"`
	Role     string    `json:"role" db:"role"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

// TaskColumn is one kanban column; TaskIDs keeps board order.
type TaskColumn struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	TeamLeadID  string       `json:"teamLeadId"`
	Roles       []string     `json:"roles"`
	TaskColumns []TaskColumn `json:"taskColumns"`
	TeamMembers []TeamMember `json:"teamMembers"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// HasMember reports whether userID leads or belongs to the project.
func (p *Project) HasMember(userID string) bool {
	if p == nil || userID == "" {
		return false
	}
	if p.TeamLeadID == userID {
		return true
	}
	for _, m := range p.TeamMembers {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
