package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const complianceRecordColumns = `id, company_id, category, score, recorded_by, recorded_at`

// The compliance score is the rounded mean of this many latest records.
const complianceWindow = 3

// Answered questions count fully, unanswered ones count half.
const (
	answeredScore   = 100
	unansweredScore = 50
)

type ComplianceRecordInput struct {
	Category string `validate:"required,max=100"`
	Score    int    `validate:"min=0,max=100"`
}

func scanComplianceRecord(row scanner) (*models.ComplianceRecord, error) {
	var r models.ComplianceRecord
	if err := row.Scan(&r.ID, &r.CompanyID, &r.Category, &r.Score, &r.RecordedBy, &r.RecordedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

type ComplianceService struct {
	db  *database.DB
	log logrus.FieldLogger
}

func NewComplianceService(db *database.DB, log logrus.FieldLogger) *ComplianceService {
	return &ComplianceService{db: db, log: log}
}

// checkSupplier reports ErrCompanyNotFound unless supplierID is one of
// requesterID's suppliers.
func (s *ComplianceService) checkSupplier(ctx context.Context, requesterID, supplierID uuid.UUID) error {
	var linked bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT $2 = ANY(suppliers) FROM companies WHERE id = $1
	`, requesterID, supplierID).Scan(&linked)
	if err != nil {
		return notFound(err, ErrCompanyNotFound, "check supplier")
	}
	if !linked {
		return ErrCompanyNotFound
	}
	return nil
}

// AddRecord stores a scored record for one of the requester's suppliers and
// recomputes the supplier's compliance score. The supplier row is locked so
// concurrent records see each other.
func (s *ComplianceService) AddRecord(ctx context.Context, requesterID, supplierID uuid.UUID, in ComplianceRecordInput, recordedBy uuid.UUID) (*models.ComplianceRecord, int, error) {
	if err := validation.Struct(in); err != nil {
		return nil, 0, err
	}
	if err := s.checkSupplier(ctx, requesterID, supplierID); err != nil {
		return nil, 0, err
	}

	var (
		record *models.ComplianceRecord
		score  int
	)
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM companies WHERE id = $1 FOR UPDATE`, supplierID).Scan(&locked)
		if err != nil {
			return notFound(err, ErrCompanyNotFound, "lock supplier")
		}

		record, err = scanComplianceRecord(tx.QueryRow(ctx, `
			INSERT INTO compliance_records (company_id, category, score, recorded_by, recorded_at)
			VALUES ($1, $2, $3, $4, clock_timestamp())
			RETURNING `+complianceRecordColumns,
			supplierID, in.Category, in.Score, recordedBy,
		))
		if err != nil {
			return fmt.Errorf("failed to create compliance record: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT score FROM compliance_records
			WHERE company_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		`, supplierID, complianceWindow)
		if err != nil {
			return fmt.Errorf("failed to load recent compliance records: %w", err)
		}
		recent, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return fmt.Errorf("failed to scan compliance score: %w", err)
		}
		score = meanScore(recent)

		_, err = tx.Exec(ctx, `
			UPDATE companies SET compliance_score = $2, updated_at = NOW() WHERE id = $1
		`, supplierID, score)
		if err != nil {
			return fmt.Errorf("failed to update compliance score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.WithFields(logrus.Fields{
		"company_id": supplierID,
		"category":   in.Category,
		"score":      score,
	}).Info("compliance record added")
	return record, score, nil
}

// meanScore is the rounded mean of scores, or zero for none. Halves
// round up.
func meanScore(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

// History returns a supplier's score and records, newest first. from and to
// bound recorded_at inclusively when set. A company may read its own history.
func (s *ComplianceService) History(ctx context.Context, requesterID, supplierID uuid.UUID, from, to *time.Time) (*models.ComplianceHistory, error) {
	if requesterID != supplierID {
		if err := s.checkSupplier(ctx, requesterID, supplierID); err != nil {
			return nil, err
		}
	}

	history := &models.ComplianceHistory{CompanyID: supplierID, Records: []models.ComplianceRecord{}}
	err := s.db.Pool.QueryRow(ctx, `SELECT compliance_score FROM companies WHERE id = $1`, supplierID).Scan(&history.Score)
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound, "get compliance score")
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+complianceRecordColumns+` FROM compliance_records
		WHERE company_id = $1
		  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
		ORDER BY recorded_at DESC
	`, supplierID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanComplianceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compliance record: %w", err)
		}
		history.Records = append(history.Records, *r)
	}
	return history, rows.Err()
}

type reportQuestion struct {
	Text string
	Tags []string
}

// Report scores the supplier's completed questionnaires per question tag and
// stores the result. sheetIDs narrows the analysis when non-empty. Questions
// outside the question bank carry no tags and are skipped.
func (s *ComplianceService) Report(ctx context.Context, requesterID, supplierID uuid.UUID, sheetIDs []uuid.UUID) (*models.ComplianceReport, error) {
	if err := s.checkSupplier(ctx, requesterID, supplierID); err != nil {
		return nil, err
	}
	if sheetIDs == nil {
		sheetIDs = []uuid.UUID{}
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+responseColumns+` FROM questionnaire_responses
		WHERE supplier_id = $1 AND status = $2
		  AND (cardinality($3::uuid[]) = 0 OR product_sheet_id = ANY($3))
		ORDER BY submitted_at
	`, supplierID, models.ResponseStatusCompleted, sheetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed responses: %w", err)
	}
	var responses []models.QuestionnaireResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list completed responses: %w", err)
	}

	questions, err := s.reportQuestions(ctx, responses)
	if err != nil {
		return nil, err
	}

	report := scoreResponses(responses, questions)
	report.CompanyID = supplierID

	categories, err := json.Marshal(report.CategoryScores)
	if err != nil {
		return nil, fmt.Errorf("failed to encode category scores: %w", err)
	}
	findings, err := json.Marshal(report.Findings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode findings: %w", err)
	}

	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO compliance_reports (company_id, overall_score, category_scores, findings, sheets_analyzed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, generated_at
	`, supplierID, report.OverallScore, categories, findings, report.SheetsAnalyzed).Scan(&report.ID, &report.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store compliance report: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"company_id": supplierID,
		"score":      report.OverallScore,
	}).Info("compliance report generated")
	return report, nil
}

func (s *ComplianceService) reportQuestions(ctx context.Context, responses []models.QuestionnaireResponse) (map[uuid.UUID]reportQuestion, error) {
	ids := []uuid.UUID{}
	for _, r := range responses {
		for _, sec := range r.Sections {
			for _, q := range sec.Responses {
				ids = append(ids, q.QuestionID)
			}
		}
	}
	out := map[uuid.UUID]reportQuestion{}
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT id, text, tags FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load report questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id uuid.UUID
			q  reportQuestion
		)
		if err := rows.Scan(&id, &q.Text, &q.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan report question: %w", err)
		}
		out[id] = q
	}
	return out, rows.Err()
}

// scoreResponses averages per-tag answer scores into category scores and
// averages the categories into the overall score.
func scoreResponses(responses []models.QuestionnaireResponse, questions map[uuid.UUID]reportQuestion) *models.ComplianceReport {
	type tally struct{ total, count int }
	tallies := map[string]*tally{}
	report := &models.ComplianceReport{
		CategoryScores: map[string]int{},
		Findings:       []models.Finding{},
		SheetsAnalyzed: []uuid.UUID{},
	}

	seen := map[uuid.UUID]bool{}
	for _, r := range responses {
		if !seen[r.ProductSheetID] {
			seen[r.ProductSheetID] = true
			report.SheetsAnalyzed = append(report.SheetsAnalyzed, r.ProductSheetID)
		}
		for _, sec := range r.Sections {
			for _, answer := range sec.Responses {
				q, ok := questions[answer.QuestionID]
				if !ok {
					continue
				}
				for _, tag := range q.Tags {
					t, ok := tallies[tag]
					if !ok {
						t = &tally{}
						tallies[tag] = t
					}
					t.count++
					if answer.Answered() {
						t.total += answeredScore
						continue
					}
					t.total += unansweredScore
					report.Findings = append(report.Findings, models.Finding{
						Category:       tag,
						Description:    fmt.Sprintf("Question %q was left unanswered", q.Text),
						Severity:       models.SeverityMedium,
						Recommendation: "Ask the supplier to complete the answer in the next questionnaire",
					})
				}
			}
		}
	}

	scores := make([]int, 0, len(tallies))
	for tag, t := range tallies {
		score := int(math.Round(float64(t.total) / float64(t.count)))
		report.CategoryScores[tag] = score
		scores = append(scores, score)
	}
	report.OverallScore = meanScore(scores)
	return report
}
