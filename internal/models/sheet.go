package models

import (
	"time"

	"github.com/google/uuid"
)

type SheetStatus string

const (
	SheetStatusDraft      SheetStatus = "draft"
	SheetStatusSent       SheetStatus = "sent"
	SheetStatusInProgress SheetStatus = "inProgress"
	SheetStatusCompleted  SheetStatus = "completed"
)

var sheetTransitions = map[SheetStatus]SheetStatus{
	SheetStatusDraft:      SheetStatusSent,
	SheetStatusSent:       SheetStatusInProgress,
	SheetStatusInProgress: SheetStatusCompleted,
}

// CanTransitionTo reports whether next is the single forward step from s.
func (s SheetStatus) CanTransitionTo(next SheetStatus) bool {
	n, ok := sheetTransitions[s]
	return ok && n == next
}

type ProductSheet struct {
	ID             uuid.UUID   `json:"id"`
	CompanyID      uuid.UUID   `json:"company_id"`
	SupplierID     uuid.UUID   `json:"supplier_id"`
	TemplateID     *uuid.UUID  `json:"template_id,omitempty"`
	Name           string      `json:"name"`
	SelectedTags   []string    `json:"selected_tags"`
	Status         SheetStatus `json:"status"`
	DueDate        *time.Time  `json:"due_date,omitempty"`
	AccessToken    string      `json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	SentAt         *time.Time  `json:"sent_at,omitempty"`
	SubmittedAt    *time.Time  `json:"submitted_at,omitempty"`
	ReminderSentAt *time.Time  `json:"reminder_sent_at,omitempty"`
}

// CompanyProduct indexes a sheet under the requesting company.
type CompanyProduct struct {
	CompanyID      uuid.UUID `json:"company_id"`
	ProductSheetID uuid.UUID `json:"product_sheet_id"`
	AddedAt        time.Time `json:"added_at"`
}
