package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/metrics"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const responseColumns = `id, template_id, product_sheet_id, supplier_id, sections, status, completion_rate, version, started_at, last_updated, submitted_at, submitted_by`

const draftColumns = `id, response_id, question_id, value, file_urls, saved_by, saved_at`

const (
	maxSaveAttempts  = 3
	defaultDraftPage = 50
)

// Events published to response subscribers.
const (
	EventDraftSaved = "draft_saved"
	EventSubmitted  = "submitted"
)

// Publisher fans response events out to live subscribers.
type Publisher interface {
	Publish(topic uuid.UUID, event string, payload any)
}

// Flusher runs any pending debounced saves for a response.
type Flusher interface {
	FlushResponse(ctx context.Context, responseID uuid.UUID)
}

func scanResponse(row scanner) (*models.QuestionnaireResponse, error) {
	var (
		r        models.QuestionnaireResponse
		sections []byte
	)
	err := row.Scan(&r.ID, &r.TemplateID, &r.ProductSheetID, &r.SupplierID, &sections, &r.Status,
		&r.CompletionRate, &r.Version, &r.StartedAt, &r.LastUpdated, &r.SubmittedAt, &r.SubmittedBy)
	if err != nil {
		return nil, err
	}
	if err := unmarshalSections(sections, &r.Sections); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanDraft(row scanner) (*models.ResponseDraft, error) {
	var d models.ResponseDraft
	var value []byte
	if err := row.Scan(&d.ID, &d.ResponseID, &d.QuestionID, &value, &d.FileURLs, &d.SavedBy, &d.SavedAt); err != nil {
		return nil, err
	}
	d.Value = value
	return &d, nil
}

// SaveInput is a single debounced answer.
type SaveInput struct {
	ResponseID uuid.UUID
	SectionID  uuid.UUID
	QuestionID uuid.UUID
	Value      json.RawMessage
	FileURLs   []string
	UserID     uuid.UUID
}

// DraftSaved is the payload of EventDraftSaved.
type DraftSaved struct {
	ResponseID     uuid.UUID `json:"response_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	CompletionRate float64   `json:"completion_rate"`
	Version        int       `json:"version"`
}

type ResponseService struct {
	db        *database.DB
	sender    email.Sender
	publisher Publisher
	flusher   Flusher
	notifier  Notifier
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	baseURL   string
}

func NewResponseService(db *database.DB, sender email.Sender, publisher Publisher, m *metrics.Metrics, log logrus.FieldLogger, baseURL string) *ResponseService {
	return &ResponseService{
		db:        db,
		sender:    sender,
		publisher: publisher,
		metrics:   m,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// UseFlusher lets Submit drain pending autosaves first. The autosaver is
// built on top of this service, so it is attached after construction.
func (s *ResponseService) UseFlusher(f Flusher) {
	s.flusher = f
}

// UseNotifier records a questionnaireSubmitted notification for the
// requesting company on every submission.
func (s *ResponseService) UseNotifier(n Notifier) {
	s.notifier = n
}

// Start creates the response for a (sheet, supplier) pair with one null
// entry per applicable question. An existing response is returned as is.
func (s *ResponseService) Start(ctx context.Context, sheetID, supplierID uuid.UUID, templateID *uuid.UUID) (*models.QuestionnaireResponse, error) {
	sheet, err := getSheet(ctx, s.db.Pool, sheetID)
	if err != nil {
		return nil, err
	}

	var sections []models.SectionResponse
	if templateID != nil {
		tmpl, err := scanTemplate(s.db.Pool.QueryRow(ctx, `
			SELECT `+templateColumns+` FROM questionnaire_templates WHERE id = $1
		`, *templateID))
		if err != nil {
			return nil, notFound(err, ErrTemplateNotFound, "get template")
		}
		sections = sectionsFromTemplate(tmpl.FilterByTags(sheet.SelectedTags))
	} else {
		questions, err := questionsByTags(ctx, s.db.Pool, sheet.SelectedTags)
		if err != nil {
			return nil, err
		}
		sections = sectionsFromBank(questions)
	}

	raw, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sections: %w", err)
	}

	resp, err := scanResponse(s.db.Pool.QueryRow(ctx, `
		INSERT INTO questionnaire_responses (template_id, product_sheet_id, supplier_id, sections, status, completion_rate)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (product_sheet_id, supplier_id) DO NOTHING
		RETURNING `+responseColumns,
		templateID, sheetID, supplierID, raw, models.ResponseStatusInProgress,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return s.GetForSheet(ctx, sheetID, supplierID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create response: %w", err)
	}

	s.log.WithFields(logrus.Fields{"response_id": resp.ID, "sheet_id": sheetID}).Info("response started")
	return resp, nil
}

func sectionsFromTemplate(sections []models.Section) []models.SectionResponse {
	out := make([]models.SectionResponse, 0, len(sections))
	for _, sec := range sections {
		sr := models.SectionResponse{SectionID: sec.ID, Responses: make([]models.QuestionResponse, 0, len(sec.Questions))}
		for _, q := range sec.Questions {
			sr.Responses = append(sr.Responses, emptyAnswer(q))
		}
		out = append(out, sr)
	}
	return out
}

// sectionsFromBank groups bank questions by their section, keeping the
// order they arrive in. Unsectioned questions share the nil section.
func sectionsFromBank(questions []models.Question) []models.SectionResponse {
	out := []models.SectionResponse{}
	index := map[uuid.UUID]int{}
	for _, q := range questions {
		var sid uuid.UUID
		if q.SectionID != nil {
			sid = *q.SectionID
		}
		i, ok := index[sid]
		if !ok {
			i = len(out)
			index[sid] = i
			out = append(out, models.SectionResponse{SectionID: sid, Responses: []models.QuestionResponse{}})
		}
		out[i].Responses = append(out[i].Responses, emptyAnswer(q))
	}
	return out
}

func emptyAnswer(q models.Question) models.QuestionResponse {
	return models.QuestionResponse{QuestionID: q.ID, Required: q.Required, Value: json.RawMessage("null")}
}

func (s *ResponseService) Get(ctx context.Context, id uuid.UUID) (*models.QuestionnaireResponse, error) {
	resp, err := scanResponse(s.db.Pool.QueryRow(ctx, `
		SELECT `+responseColumns+` FROM questionnaire_responses WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrResponseNotFound, "get response")
	}
	return resp, nil
}

func (s *ResponseService) GetForSheet(ctx context.Context, sheetID, supplierID uuid.UUID) (*models.QuestionnaireResponse, error) {
	resp, err := scanResponse(s.db.Pool.QueryRow(ctx, `
		SELECT `+responseColumns+` FROM questionnaire_responses
		WHERE product_sheet_id = $1 AND supplier_id = $2
	`, sheetID, supplierID))
	if err != nil {
		return nil, notFound(err, ErrResponseNotFound, "get response for sheet")
	}
	return resp, nil
}

// ListDrafts returns the newest autosave entries first.
func (s *ResponseService) ListDrafts(ctx context.Context, responseID uuid.UUID, limit int) ([]models.ResponseDraft, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultDraftPage
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+draftColumns+` FROM response_drafts
		WHERE response_id = $1
		ORDER BY saved_at DESC
		LIMIT $2
	`, responseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []models.ResponseDraft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

// SaveQuestionResponse appends a draft entry and merges the answer into the
// response with a version compare-and-set, retrying on concurrent writes.
// Completed responses are rejected before anything is written.
func (s *ResponseService) SaveQuestionResponse(ctx context.Context, in SaveInput) (*models.QuestionnaireResponse, error) {
	if len(in.Value) == 0 {
		in.Value = json.RawMessage("null")
	}
	if in.FileURLs == nil {
		in.FileURLs = []string{}
	}
	log := s.log.WithFields(logrus.Fields{"response_id": in.ResponseID, "question_id": in.QuestionID})

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		resp, err := s.Get(ctx, in.ResponseID)
		if err != nil {
			return nil, err
		}
		if resp.Status == models.ResponseStatusCompleted {
			return nil, ErrInvalidTransition
		}

		// The draft trail gets one row per save, not one per attempt.
		if attempt == 1 {
			_, err = s.db.Pool.Exec(ctx, `
				INSERT INTO response_drafts (response_id, question_id, value, file_urls, saved_by)
				VALUES ($1, $2, $3, $4, $5)
			`, in.ResponseID, in.QuestionID, []byte(in.Value), in.FileURLs, in.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to append draft: %w", err)
			}
		}

		now := time.Now()
		resp.Upsert(in.SectionID, in.QuestionID, in.Value, in.FileURLs, in.UserID, now)
		resp.CompletionRate = resp.ComputeCompletionRate()

		raw, err := json.Marshal(resp.Sections)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sections: %w", err)
		}

		tag, err := s.db.Pool.Exec(ctx, `
			UPDATE questionnaire_responses
			SET sections = $3, completion_rate = $4, version = version + 1, last_updated = NOW()
			WHERE id = $1 AND version = $2
		`, in.ResponseID, resp.Version, raw, resp.CompletionRate)
		if err != nil {
			return nil, fmt.Errorf("failed to save response: %w", err)
		}
		if tag.RowsAffected() == 1 {
			resp.Version++
			resp.LastUpdated = now
			s.metrics.AutosaveSaved()
			s.publish(resp.ID, EventDraftSaved, DraftSaved{
				ResponseID:     resp.ID,
				QuestionID:     in.QuestionID,
				CompletionRate: resp.CompletionRate,
				Version:        resp.Version,
			})
			return resp, nil
		}

		s.metrics.AutosaveRetried()
		log.WithField("attempt", attempt).Debug("response version moved, retrying")
	}

	log.Warn("giving up on autosave after repeated version conflicts")
	return nil, ErrVersionConflict
}

// Submit completes the response and its sheet in one transaction. The
// requesting company is then notified; a failed notification is logged and
// does not undo the submission.
func (s *ResponseService) Submit(ctx context.Context, responseID, sheetID uuid.UUID, token string, userID uuid.UUID) (*models.QuestionnaireResponse, error) {
	sheet, err := getSheet(ctx, s.db.Pool, sheetID)
	if err != nil {
		return nil, err
	}
	if err := checkAccessToken(sheet, token); err != nil {
		return nil, err
	}
	if !sheet.Status.CanTransitionTo(models.SheetStatusCompleted) {
		return nil, ErrInvalidTransition
	}

	if s.flusher != nil {
		s.flusher.FlushResponse(ctx, responseID)
	}

	resp, err := s.Get(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if resp.ProductSheetID != sheetID {
		return nil, ErrResponseNotFound
	}
	if missing := resp.MissingRequired(); len(missing) > 0 {
		verr := &validation.Error{}
		for _, id := range missing {
			verr.Fields = append(verr.Fields, validation.FieldError{
				Field:   "responses." + id.String(),
				Tag:     "required",
				Message: "question " + id.String() + " is required",
			})
		}
		return nil, verr
	}

	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		completed, err := scanResponse(tx.QueryRow(ctx, `
			UPDATE questionnaire_responses
			SET status = $2, submitted_at = NOW(), submitted_by = $3, version = version + 1, last_updated = NOW()
			WHERE id = $1 AND version = $4
			RETURNING `+responseColumns,
			responseID, models.ResponseStatusCompleted, userID, resp.Version,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to complete response: %w", err)
		}
		resp = completed

		tag, err := tx.Exec(ctx, `
			UPDATE product_sheets SET status = $2, submitted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = $3
		`, sheetID, models.SheetStatusCompleted, models.SheetStatusInProgress)
		if err != nil {
			return fmt.Errorf("failed to complete product sheet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SheetTransition(string(models.SheetStatusCompleted))
	s.publish(resp.ID, EventSubmitted, resp)
	notify(ctx, s.notifier, s.log, NewNotification{
		CompanyID:      sheet.CompanyID,
		Type:           models.NotificationQuestionnaireSubmitted,
		SupplierID:     sheet.SupplierID,
		ProductSheetID: &sheet.ID,
	})
	s.notifySubmitted(ctx, sheet)
	return resp, nil
}

func (s *ResponseService) notifySubmitted(ctx context.Context, sheet *models.ProductSheet) {
	log := s.log.WithField("sheet_id", sheet.ID)

	requester, err := companyContact(ctx, s.db.Pool, sheet.CompanyID)
	if err != nil {
		log.WithError(err).Warn("failed to load requester for submission email")
		return
	}
	supplier, err := companyContact(ctx, s.db.Pool, sheet.SupplierID)
	if err != nil {
		log.WithError(err).Warn("failed to load supplier for submission email")
		return
	}

	err = s.sender.Send(ctx, email.Message{
		To:       requester.Email,
		Template: email.TemplateSheetSubmitted,
		Data: email.Data{
			ContactName:  requester.ContactName,
			CompanyName:  requester.Name,
			SupplierName: supplier.Name,
			SheetName:    sheet.Name,
			AccessURL:    fmt.Sprintf("%s/sheets/%s", s.baseURL, sheet.ID),
		},
	})
	s.metrics.Email(string(email.TemplateSheetSubmitted), err)
	if err != nil {
		log.WithError(err).Warn("submission email failed")
		return
	}
	log.Info("product sheet submitted")
}

func (s *ResponseService) publish(topic uuid.UUID, event string, payload any) {
	if s.publisher != nil {
		s.publisher.Publish(topic, event, payload)
	}
}
