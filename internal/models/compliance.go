package models

import (
	"time"

	"github.com/google/uuid"
)

type FindingSeverity string

const (
	SeverityLow    FindingSeverity = "low"
	SeverityMedium FindingSeverity = "medium"
	SeverityHigh   FindingSeverity = "high"
)

// ComplianceRecord is one scored assessment of a supplier in a category.
type ComplianceRecord struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"company_id"`
	Category   string    `json:"category"`
	Score      int       `json:"score"`
	RecordedBy uuid.UUID `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Finding struct {
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Severity       FindingSeverity `json:"severity"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// ComplianceReport scores a supplier's completed questionnaires per
// question tag.
type ComplianceReport struct {
	ID             uuid.UUID      `json:"id"`
	CompanyID      uuid.UUID      `json:"company_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	OverallScore   int            `json:"overall_score"`
	CategoryScores map[string]int `json:"category_scores"`
	Findings       []Finding      `json:"findings"`
	SheetsAnalyzed []uuid.UUID    `json:"sheets_analyzed"`
}

// ComplianceHistory is a supplier's current score and its records, newest
// first. Score is nil until the first record is added.
type ComplianceHistory struct {
	CompanyID uuid.UUID          `json:"company_id"`
	Score     *int               `json:"score"`
	Records   []ComplianceRecord `json:"records"`
}
