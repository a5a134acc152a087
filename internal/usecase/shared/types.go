package shared

import "time"

const (
	LedgerStatusProcessing = "processing"
	LedgerStatusCompleted  = "completed"
)

type LedgerRecord struct {
	Key        string
	OriginID   string
	Kind       string
	Status     string
	ExternalID string
	Revision   string
	ExpiresAt  time.Time
}

func (r *LedgerRecord) IsCompleted() bool {
	return r != nil && r.Status == LedgerStatusCompleted
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Caller identifies who issued a command.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
