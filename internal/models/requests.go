package models

// Request models

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

type JoinRequestRequest struct {
	RecipientUserID string `json:"recipientUserId" binding:"required"`
	ProjectID       string `json:"projectId" binding:"required"`
	ProjectName     string `json:"projectName"`
	Role            string `json:"role" binding:"required"`
}

type PatchColumnsRequest struct {
	Columns []TaskColumn `json:"columns" binding:"required"`
}

// Response models

type AcceptResponse struct {
	Outcome      AcceptOutcome `json:"outcome"`
	Message      string        `json:"message"`
	Notification *Notification `json:"notification"`
}

type RequestResponse struct {
	Notification *Notification `json:"notification"`
	Refreshed    bool          `json:"refreshed"`
}
