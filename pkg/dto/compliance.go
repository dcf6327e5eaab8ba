package dto

import (
	"time"

	"github.com/google/uuid"
)

type ComplianceRecordRequest struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// ComplianceRecordResponse echoes the stored record along with the
// supplier's recomputed compliance score.
type ComplianceRecordResponse struct {
	ID              uuid.UUID `json:"id"`
	Category        string    `json:"category"`
	Score           int       `json:"score"`
	RecordedAt      time.Time `json:"recorded_at"`
	ComplianceScore int       `json:"compliance_score"`
}

// ComplianceReportRequest limits the report to SheetIDs. Empty means every
// completed questionnaire of the supplier.
type ComplianceReportRequest struct {
	SheetIDs []uuid.UUID `json:"sheet_ids"`
}
