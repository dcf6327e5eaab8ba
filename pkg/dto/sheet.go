package dto

import (
	"encoding/json"
	"time"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/google/uuid"
)

type CreateSheetRequest struct {
	Name       string     `json:"name"`
	SupplierID uuid.UUID  `json:"supplier_id"`
	Tags       []string   `json:"tags"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

type UpdateSheetRequest struct {
	Name    *string    `json:"name,omitempty"`
	Tags    []string   `json:"tags,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type SheetResponse struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"company_id"`
	SupplierID   uuid.UUID  `json:"supplier_id"`
	TemplateID   *uuid.UUID `json:"template_id,omitempty"`
	Name         string     `json:"name"`
	SelectedTags []string   `json:"selected_tags"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AccessURL    string     `json:"access_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

type OpenSheetResponse struct {
	Sheet    SheetResponse                 `json:"sheet"`
	Response *models.QuestionnaireResponse `json:"response"`
}

type AutosaveRequest struct {
	ResponseID uuid.UUID       `json:"response_id"`
	SectionID  uuid.UUID       `json:"section_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	FileURLs   []string        `json:"file_urls,omitempty"`
}

type SubmitRequest struct {
	ResponseID uuid.UUID `json:"response_id"`
}
