package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
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

const sheetColumns = `id, company_id, supplier_id, template_id, name, selected_tags, status, due_date, access_token, created_at, updated_at, sent_at, submitted_at, reminder_sent_at`

const accessTokenBytes = 32

const dueDateLayout = "January 2, 2006"

func scanSheet(row scanner) (*models.ProductSheet, error) {
	var p models.ProductSheet
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.SupplierID, &p.TemplateID, &p.Name, &p.SelectedTags, &p.Status,
		&p.DueDate, &p.AccessToken, &p.CreatedAt, &p.UpdatedAt, &p.SentAt, &p.SubmittedAt, &p.ReminderSentAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func getSheet(ctx context.Context, q queryRower, id uuid.UUID) (*models.ProductSheet, error) {
	sheet, err := scanSheet(q.QueryRow(ctx, `
		SELECT `+sheetColumns+` FROM product_sheets WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrSheetNotFound, "get product sheet")
	}
	return sheet, nil
}

// checkAccessToken compares in constant time so the token cannot be guessed
// byte by byte.
func checkAccessToken(sheet *models.ProductSheet, token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(sheet.AccessToken), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

func generateAccessToken() (string, error) {
	b := make([]byte, accessTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type contact struct {
	Name        string
	ContactName string
	Email       string
}

func companyContact(ctx context.Context, q queryRower, id uuid.UUID) (*contact, error) {
	var c contact
	err := q.QueryRow(ctx, `
		SELECT name, contact_name, email FROM companies WHERE id = $1
	`, id).Scan(&c.Name, &c.ContactName, &c.Email)
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound, "get company contact")
	}
	return &c, nil
}

func formatDueDate(d *time.Time) string {
	if d == nil {
		return "No due date"
	}
	return d.Format(dueDateLayout)
}

type CreateSheetInput struct {
	Name       string    `validate:"required"`
	SupplierID uuid.UUID `validate:"required"`
	Tags       []string  `validate:"min=1"`
	TemplateID *uuid.UUID
	DueDate    *time.Time
}

type UpdateSheetInput struct {
	Name    *string
	Tags    []string
	DueDate *time.Time
}

type SheetService struct {
	db        *database.DB
	sender    email.Sender
	notifier  Notifier
	responses *ResponseService
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	baseURL   string
}

func NewSheetService(db *database.DB, sender email.Sender, responses *ResponseService, m *metrics.Metrics, log logrus.FieldLogger, baseURL string) *SheetService {
	return &SheetService{
		db:        db,
		sender:    sender,
		responses: responses,
		metrics:   m,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// UseNotifier records a questionnaireAssigned notification for the supplier
// of every sent sheet.
func (s *SheetService) UseNotifier(n Notifier) {
	s.notifier = n
}

// SheetURL is the supplier's capability link for a sheet.
func (s *SheetService) SheetURL(id uuid.UUID, token string) string {
	return fmt.Sprintf("%s/sheets/%s?token=%s", s.baseURL, id, url.QueryEscape(token))
}

func (s *SheetService) Create(ctx context.Context, companyID uuid.UUID, in CreateSheetInput) (*models.ProductSheet, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM companies WHERE id = $1)`, in.SupplierID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check supplier: %w", err)
	}
	if !exists {
		return nil, ErrCompanyNotFound
	}

	token, err := generateAccessToken()
	if err != nil {
		return nil, err
	}

	var sheet *models.ProductSheet
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		sheet, err = scanSheet(tx.QueryRow(ctx, `
			INSERT INTO product_sheets (company_id, supplier_id, template_id, name, selected_tags, status, due_date, access_token)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+sheetColumns,
			companyID, in.SupplierID, in.TemplateID, in.Name, in.Tags, models.SheetStatusDraft, in.DueDate, token,
		))
		if err != nil {
			return fmt.Errorf("failed to create product sheet: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO company_products (company_id, product_sheet_id)
			VALUES ($1, $2)
		`, companyID, sheet.ID)
		if err != nil {
			return fmt.Errorf("failed to index product sheet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SheetTransition(string(models.SheetStatusDraft))
	s.log.WithFields(logrus.Fields{"sheet_id": sheet.ID, "company_id": companyID}).Info("product sheet created")
	return sheet, nil
}

func (s *SheetService) Get(ctx context.Context, id uuid.UUID) (*models.ProductSheet, error) {
	return getSheet(ctx, s.db.Pool, id)
}

// GetOwned returns a sheet only to the company that requested it.
func (s *SheetService) GetOwned(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error) {
	sheet, err := getSheet(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}
	if sheet.CompanyID != companyID {
		return nil, ErrSheetNotFound
	}
	return sheet, nil
}

// List returns the sheets indexed under companyID.
func (s *SheetService) List(ctx context.Context, companyID uuid.UUID) ([]models.ProductSheet, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+sheetColumns+` FROM product_sheets
		WHERE id IN (SELECT product_sheet_id FROM company_products WHERE company_id = $1)
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product sheets: %w", err)
	}
	return collectSheets(rows)
}

// ListSupplierSheets returns the sheets sent to supplierID. Drafts are not
// visible to the supplier.
func (s *SheetService) ListSupplierSheets(ctx context.Context, supplierID uuid.UUID) ([]models.ProductSheet, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+sheetColumns+` FROM product_sheets
		WHERE supplier_id = $1 AND status <> $2
		ORDER BY created_at DESC
	`, supplierID, models.SheetStatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier sheets: %w", err)
	}
	return collectSheets(rows)
}

func collectSheets(rows pgx.Rows) ([]models.ProductSheet, error) {
	defer rows.Close()

	sheets := []models.ProductSheet{}
	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product sheet: %w", err)
		}
		sheets = append(sheets, *sheet)
	}
	return sheets, rows.Err()
}

// Update edits a draft sheet. Sent sheets are frozen.
func (s *SheetService) Update(ctx context.Context, id, companyID uuid.UUID, in UpdateSheetInput) (*models.ProductSheet, error) {
	if in.Name == nil && in.Tags == nil && in.DueDate == nil {
		return nil, ErrNoFieldsToUpdate
	}
	if in.Tags != nil && len(in.Tags) == 0 {
		return nil, validation.New("tags", "min", "tags must have at least 1 entries or characters")
	}

	sheet, err := scanSheet(s.db.Pool.QueryRow(ctx, `
		UPDATE product_sheets
		SET name = COALESCE($3, name),
		    selected_tags = COALESCE($4, selected_tags),
		    due_date = COALESCE($5, due_date),
		    updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $6
		RETURNING `+sheetColumns,
		id, companyID, in.Name, in.Tags, in.DueDate, models.SheetStatusDraft,
	))
	if err == nil {
		return sheet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update product sheet: %w", err)
	}

	if _, err := s.GetOwned(ctx, id, companyID); err != nil {
		return nil, err
	}
	return nil, ErrInvalidTransition
}

// Send moves the sheet from draft to sent and emails the supplier its
// capability link. The transition is claimed before the email goes out so
// only one of two concurrent sends delivers; a failed email puts the sheet
// back in draft.
func (s *SheetService) Send(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error) {
	sheet, err := s.GetOwned(ctx, id, companyID)
	if err != nil {
		return nil, err
	}
	if !sheet.Status.CanTransitionTo(models.SheetStatusSent) {
		return nil, ErrInvalidTransition
	}

	supplier, err := companyContact(ctx, s.db.Pool, sheet.SupplierID)
	if err != nil {
		return nil, err
	}
	requester, err := companyContact(ctx, s.db.Pool, sheet.CompanyID)
	if err != nil {
		return nil, err
	}

	sent, err := s.advance(ctx, id, models.SheetStatusDraft, models.SheetStatusSent, "sent_at = NOW(),")
	if err != nil {
		return nil, err
	}

	err = s.sender.Send(ctx, email.Message{
		To:       supplier.Email,
		Template: email.TemplateSheetCreated,
		Data: email.Data{
			ContactName:  supplier.ContactName,
			CompanyName:  requester.Name,
			SupplierName: supplier.Name,
			SheetName:    sheet.Name,
			DueDate:      formatDueDate(sheet.DueDate),
			AccessURL:    s.SheetURL(sheet.ID, sheet.AccessToken),
		},
	})
	s.metrics.Email(string(email.TemplateSheetCreated), err)
	if err != nil {
		s.log.WithError(err).WithField("sheet_id", id).Warn("sheet email failed")
		s.revertSend(ctx, id)
		return nil, deliveryError(err)
	}

	s.log.WithFields(logrus.Fields{"sheet_id": id, "supplier_id": sheet.SupplierID}).Info("product sheet sent")

	notify(ctx, s.notifier, s.log, NewNotification{
		CompanyID:      sheet.SupplierID,
		Type:           models.NotificationQuestionnaireAssigned,
		SupplierID:     sheet.SupplierID,
		ProductSheetID: &sent.ID,
	})
	return sent, nil
}

// revertSend puts a claimed sheet back in draft. It runs on a fresh context
// so a cancelled request still releases the claim.
func (s *SheetService) revertSend(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, `
		UPDATE product_sheets SET status = $2, sent_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, models.SheetStatusDraft, models.SheetStatusSent)
	if err != nil {
		s.log.WithError(err).WithField("sheet_id", id).Error("failed to return sheet to draft")
	}
}

// advance performs a compare-and-set status change. Losing the race reports
// ErrInvalidTransition.
func (s *SheetService) advance(ctx context.Context, id uuid.UUID, from, to models.SheetStatus, extra string) (*models.ProductSheet, error) {
	sheet, err := scanSheet(s.db.Pool.QueryRow(ctx, `
		UPDATE product_sheets SET status = $2, `+extra+` updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING `+sheetColumns,
		id, to, from,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to update product sheet status: %w", err)
	}
	s.metrics.SheetTransition(string(to))
	return sheet, nil
}

// OpenSheet is the supplier's entry point. The first open moves a sent sheet
// to inProgress and creates the questionnaire response.
func (s *SheetService) OpenSheet(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, *models.QuestionnaireResponse, error) {
	sheet, err := getSheet(ctx, s.db.Pool, id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAccessToken(sheet, token); err != nil {
		return nil, nil, err
	}

	switch sheet.Status {
	case models.SheetStatusDraft:
		return nil, nil, ErrInvalidTransition
	case models.SheetStatusSent:
		opened, err := s.advance(ctx, id, models.SheetStatusSent, models.SheetStatusInProgress, "")
		switch {
		case err == nil:
			sheet = opened
		case errors.Is(err, ErrInvalidTransition):
			// opened concurrently
			if sheet, err = getSheet(ctx, s.db.Pool, id); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}
	}

	resp, err := s.responses.GetForSheet(ctx, sheet.ID, sheet.SupplierID)
	if errors.Is(err, ErrResponseNotFound) {
		resp, err = s.responses.Start(ctx, sheet.ID, sheet.SupplierID, sheet.TemplateID)
	}
	if err != nil {
		return nil, nil, err
	}
	return sheet, resp, nil
}

// Authorize checks a supplier capability token without changing state.
func (s *SheetService) Authorize(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, error) {
	sheet, err := getSheet(ctx, s.db.Pool, id)
	if err != nil {
		return nil, err
	}
	if err := checkAccessToken(sheet, token); err != nil {
		return nil, err
	}
	return sheet, nil
}

// Delete removes a sheet with its index record, response and drafts.
// Deleting a missing sheet succeeds.
func (s *SheetService) Delete(ctx context.Context, id, companyID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var owner uuid.UUID
		err := tx.QueryRow(ctx, `SELECT company_id FROM product_sheets WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock product sheet: %w", err)
		}
		if owner != companyID {
			return ErrSheetNotFound
		}

		stmts := []string{
			`DELETE FROM response_drafts WHERE response_id IN (SELECT id FROM questionnaire_responses WHERE product_sheet_id = $1)`,
			`DELETE FROM questionnaire_responses WHERE product_sheet_id = $1`,
			`DELETE FROM company_products WHERE product_sheet_id = $1`,
			`DELETE FROM product_sheets WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete product sheet: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithField("sheet_id", id).Info("product sheet deleted")
	return nil
}

// SendDueReminders emails suppliers whose open sheets fall due within window
// and have not been reminded yet. It returns the number of reminders sent.
func (s *SheetService) SendDueReminders(ctx context.Context, window time.Duration) (int, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+sheetColumns+` FROM product_sheets
		WHERE status IN ($1, $2)
		  AND due_date IS NOT NULL AND due_date <= $3
		  AND reminder_sent_at IS NULL
		ORDER BY due_date
	`, models.SheetStatusSent, models.SheetStatusInProgress, time.Now().Add(window))
	if err != nil {
		return 0, fmt.Errorf("failed to query due sheets: %w", err)
	}
	sheets, err := collectSheets(rows)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range sheets {
		sheet := &sheets[i]
		log := s.log.WithField("sheet_id", sheet.ID)
		if err := s.remind(ctx, sheet); err != nil {
			log.WithError(err).Warn("failed to send reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *SheetService) remind(ctx context.Context, sheet *models.ProductSheet) error {
	supplier, err := companyContact(ctx, s.db.Pool, sheet.SupplierID)
	if err != nil {
		return err
	}
	requester, err := companyContact(ctx, s.db.Pool, sheet.CompanyID)
	if err != nil {
		return err
	}

	err = s.sender.Send(ctx, email.Message{
		To:       supplier.Email,
		Template: email.TemplateSheetReminder,
		Data: email.Data{
			ContactName:  supplier.ContactName,
			CompanyName:  requester.Name,
			SupplierName: supplier.Name,
			SheetName:    sheet.Name,
			DueDate:      formatDueDate(sheet.DueDate),
			AccessURL:    s.SheetURL(sheet.ID, sheet.AccessToken),
		},
	})
	s.metrics.Email(string(email.TemplateSheetReminder), err)
	if err != nil {
		return deliveryError(err)
	}

	_, err = s.db.Pool.Exec(ctx, `UPDATE product_sheets SET reminder_sent_at = NOW() WHERE id = $1`, sheet.ID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
