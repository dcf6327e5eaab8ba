package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusUsed    InviteStatus = "used"
)

// Invite is a single-use signup capability. It is marked used on redemption
// and never deleted afterwards.
type Invite struct {
	Code              uuid.UUID        `json:"code"`
	InvitingCompanyID uuid.UUID        `json:"inviting_company_id"`
	TargetCompanyID   uuid.UUID        `json:"target_company_id"`
	Email             string           `json:"email"`
	Name              string           `json:"name"`
	ContactName       string           `json:"contact_name"`
	Role              RelationshipRole `json:"role"`
	Tags              []string         `json:"tags"`
	Notes             *string          `json:"notes,omitempty"`
	Status            InviteStatus     `json:"status"`
	UsedAt            *time.Time       `json:"used_at,omitempty"`
	UsedBy            *uuid.UUID       `json:"used_by,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (i *Invite) IsUsed() bool {
	return i.Status == InviteStatusUsed
}

func (i *Invite) MatchesEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(i.Email), strings.TrimSpace(email))
}
