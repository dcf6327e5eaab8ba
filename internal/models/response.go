package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ResponseStatus string

const (
	ResponseStatusPending    ResponseStatus = "pending"
	ResponseStatusInProgress ResponseStatus = "inProgress"
	ResponseStatusCompleted  ResponseStatus = "completed"
)

type QuestionResponse struct {
	QuestionID uuid.UUID       `json:"question_id"`
	Required   bool            `json:"required"`
	Value      json.RawMessage `json:"value"`
	FileURLs   []string        `json:"file_urls,omitempty"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
	UpdatedBy  *uuid.UUID      `json:"updated_by,omitempty"`
}

// Answered reports whether the entry holds a value other than null or an
// empty string.
func (q *QuestionResponse) Answered() bool {
	v := bytes.TrimSpace(q.Value)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte(`""`)) {
		return len(q.FileURLs) > 0
	}
	return true
}

type SectionResponse struct {
	SectionID   uuid.UUID          `json:"section_id"`
	Responses   []QuestionResponse `json:"responses"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// QuestionnaireResponse is the authoritative answer state for one
// (product sheet, supplier) pair.
type QuestionnaireResponse struct {
	ID             uuid.UUID         `json:"id"`
	TemplateID     *uuid.UUID        `json:"template_id,omitempty"`
	ProductSheetID uuid.UUID         `json:"product_sheet_id"`
	SupplierID     uuid.UUID         `json:"supplier_id"`
	Sections       []SectionResponse `json:"sections"`
	Status         ResponseStatus    `json:"status"`
	CompletionRate float64           `json:"completion_rate"`
	Version        int               `json:"version"`
	StartedAt      time.Time         `json:"started_at"`
	LastUpdated    time.Time         `json:"last_updated"`
	SubmittedAt    *time.Time        `json:"submitted_at,omitempty"`
	SubmittedBy    *uuid.UUID        `json:"submitted_by,omitempty"`
}

// Upsert merges a single answer into the response. A missing question entry
// is appended to its section, and a missing section is appended as well.
func (r *QuestionnaireResponse) Upsert(sectionID, questionID uuid.UUID, value json.RawMessage, fileURLs []string, userID uuid.UUID, at time.Time) {
	entry := QuestionResponse{
		QuestionID: questionID,
		Value:      value,
		FileURLs:   fileURLs,
		UpdatedAt:  &at,
		UpdatedBy:  &userID,
	}

	for si := range r.Sections {
		section := &r.Sections[si]
		if section.SectionID != sectionID {
			continue
		}
		for qi := range section.Responses {
			if section.Responses[qi].QuestionID == questionID {
				entry.Required = section.Responses[qi].Required
				section.Responses[qi] = entry
				return
			}
		}
		section.Responses = append(section.Responses, entry)
		return
	}

	r.Sections = append(r.Sections, SectionResponse{
		SectionID: sectionID,
		Responses: []QuestionResponse{entry},
	})
}

// ComputeCompletionRate returns answered/total*100 across every section, or
// 0 for a response with no question entries.
func (r *QuestionnaireResponse) ComputeCompletionRate() float64 {
	var total, answered int
	for _, s := range r.Sections {
		for i := range s.Responses {
			total++
			if s.Responses[i].Answered() {
				answered++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total) * 100
}

// MissingRequired lists required questions that have no answer yet.
func (r *QuestionnaireResponse) MissingRequired() []uuid.UUID {
	var missing []uuid.UUID
	for _, s := range r.Sections {
		for i := range s.Responses {
			if s.Responses[i].Required && !s.Responses[i].Answered() {
				missing = append(missing, s.Responses[i].QuestionID)
			}
		}
	}
	return missing
}

// ResponseDraft is one entry of the append-only autosave log.
type ResponseDraft struct {
	ID         uuid.UUID       `json:"id"`
	ResponseID uuid.UUID       `json:"response_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	FileURLs   []string        `json:"file_urls,omitempty"`
	SavedBy    *uuid.UUID      `json:"saved_by,omitempty"`
	SavedAt    time.Time       `json:"saved_at"`
}

// SupplierAnswer is an answer collected while an invited company signs up.
type SupplierAnswer struct {
	ID         uuid.UUID       `json:"id"`
	CompanyID  uuid.UUID       `json:"company_id"`
	InviteCode uuid.UUID       `json:"invite_code"`
	QuestionID uuid.UUID       `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
}
