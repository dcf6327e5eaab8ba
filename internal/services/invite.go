package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/metrics"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const inviteColumns = `code, inviting_company_id, target_company_id, email, name, contact_name, role, tags, notes, status, used_at, used_by, created_at`

func scanInvite(row scanner) (*models.Invite, error) {
	var i models.Invite
	err := row.Scan(
		&i.Code, &i.InvitingCompanyID, &i.TargetCompanyID, &i.Email, &i.Name, &i.ContactName,
		&i.Role, &i.Tags, &i.Notes, &i.Status, &i.UsedAt, &i.UsedBy, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

type InviteRequest struct {
	Name           string   `validate:"required"`
	ContactName    string   `validate:"required"`
	PrimaryContact string   `validate:"required,email"`
	Tags           []string
	Notes          *string
}

type InviteResult struct {
	InviteCode      uuid.UUID
	TargetCompanyID uuid.UUID
}

type RedeemInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Name     string `validate:"required"`
}

type AnswerInput struct {
	QuestionID uuid.UUID
	Value      []byte
}

type InviteService struct {
	db       *database.DB
	sender   email.Sender
	notifier Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	baseURL  string
}

func NewInviteService(db *database.DB, sender email.Sender, m *metrics.Metrics, log logrus.FieldLogger, baseURL string) *InviteService {
	return &InviteService{
		db:      db,
		sender:  sender,
		metrics: m,
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// UseNotifier records supplierInvited and supplierJoined notifications for
// the inviting company.
func (s *InviteService) UseNotifier(n Notifier) {
	s.notifier = n
}

// InviteURL is the signup link embedded in invitation emails.
func (s *InviteService) InviteURL(code uuid.UUID) string {
	return fmt.Sprintf("%s/signup?invite=%s", s.baseURL, code)
}

// InviteEntity creates the invite and the invitee's placeholder company,
// links the placeholder to the inviter and emails the signup link. When the
// email cannot be sent everything the transaction wrote is removed again and
// the delivery error is returned.
func (s *InviteService) InviteEntity(ctx context.Context, req InviteRequest, invitingCompanyID uuid.UUID, role models.RelationshipRole) (*InviteResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, validation.New("role", "oneof", "role must be supplier or customer")
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	var inviterName string
	err := s.db.Pool.QueryRow(ctx, `SELECT name FROM companies WHERE id = $1`, invitingCompanyID).Scan(&inviterName)
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound, "get inviting company")
	}

	result := &InviteResult{InviteCode: uuid.New(), TargetCompanyID: uuid.New()}
	log := s.log.WithFields(logrus.Fields{
		"invite_code":         result.InviteCode,
		"target_company_id":   result.TargetCompanyID,
		"inviting_company_id": invitingCompanyID,
		"role":                role,
	})

	// The placeholder already points back at the inviter.
	suppliers, customers := []uuid.UUID{}, []uuid.UUID{}
	if role == models.RoleSupplier {
		customers = []uuid.UUID{invitingCompanyID}
	} else {
		suppliers = []uuid.UUID{invitingCompanyID}
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO companies (id, name, contact_name, email, status, tags, notes, suppliers, customers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, result.TargetCompanyID, req.Name, req.ContactName, req.PrimaryContact,
		models.CompanyStatusPendingInvitation, req.Tags, req.Notes, suppliers, customers)
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder company: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO invites (code, inviting_company_id, target_company_id, email, name, contact_name, role, tags, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, result.InviteCode, invitingCompanyID, result.TargetCompanyID, req.PrimaryContact,
		req.Name, req.ContactName, role, req.Tags, req.Notes, models.InviteStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if err := addRelation(ctx, tx, invitingCompanyID, result.TargetCompanyID, role); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	tmpl := email.InvitationTemplate(string(role))
	err = s.sender.Send(ctx, email.Message{
		To:       req.PrimaryContact,
		Template: tmpl,
		Data: email.Data{
			ContactName: req.ContactName,
			CompanyName: inviterName,
			AccessURL:   s.InviteURL(result.InviteCode),
		},
	})
	s.metrics.Email(string(tmpl), err)
	if err != nil {
		log.WithError(err).Warn("invitation email failed, removing invite")
		sendErr := deliveryError(err)

		if cerr := s.compensate(context.WithoutCancel(ctx), result, invitingCompanyID, role); cerr != nil {
			log.WithError(cerr).Error("failed to remove invite after email failure")
			s.metrics.Invite(string(role), "compensation_failed")
			return nil, errors.Join(sendErr, cerr)
		}
		s.metrics.Invite(string(role), "compensated")
		return nil, sendErr
	}

	_, err = s.db.Pool.Exec(ctx, `
		UPDATE companies SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, result.TargetCompanyID, models.CompanyStatusInvitationSent, models.CompanyStatusPendingInvitation)
	if err != nil {
		log.WithError(err).Warn("failed to mark invitation sent")
	}

	s.metrics.Invite(string(role), "sent")
	log.Info("invitation sent")

	if role == models.RoleSupplier {
		notify(ctx, s.notifier, log, NewNotification{
			CompanyID:  invitingCompanyID,
			Type:       models.NotificationSupplierInvited,
			SupplierID: result.TargetCompanyID,
		})
	}
	return result, nil
}

func (s *InviteService) compensate(ctx context.Context, result *InviteResult, invitingCompanyID uuid.UUID, role models.RelationshipRole) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin compensation: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM invites WHERE code = $1`, result.InviteCode); err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if err := removeRelation(ctx, tx, invitingCompanyID, result.TargetCompanyID, role); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM companies WHERE id = $1`, result.TargetCompanyID); err != nil {
		return fmt.Errorf("failed to delete placeholder company: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit compensation: %w", err)
	}
	return nil
}

func (s *InviteService) GetInviteData(ctx context.Context, code uuid.UUID) (*models.Invite, error) {
	invite, err := scanInvite(s.db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM invites WHERE code = $1
	`, code))
	if err != nil {
		return nil, notFound(err, ErrInviteNotFound, "get invite")
	}
	return invite, nil
}

func (s *InviteService) ListPending(ctx context.Context, invitingCompanyID uuid.UUID) ([]models.Invite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE inviting_company_id = $1 AND status = $2
		ORDER BY created_at DESC
	`, invitingCompanyID, models.InviteStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	invites := []models.Invite{}
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *invite)
	}
	return invites, rows.Err()
}

// Resend emails a pending invite again. Nothing is rolled back on failure.
func (s *InviteService) Resend(ctx context.Context, code, invitingCompanyID uuid.UUID) error {
	invite, err := s.GetInviteData(ctx, code)
	if err != nil {
		return err
	}
	if invite.InvitingCompanyID != invitingCompanyID {
		return ErrInviteNotFound
	}
	if invite.IsUsed() {
		return ErrInviteUsed
	}

	var inviterName string
	if err := s.db.Pool.QueryRow(ctx, `SELECT name FROM companies WHERE id = $1`, invitingCompanyID).Scan(&inviterName); err != nil {
		return notFound(err, ErrCompanyNotFound, "get inviting company")
	}

	tmpl := email.InvitationTemplate(string(invite.Role))
	err = s.sender.Send(ctx, email.Message{
		To:       invite.Email,
		Template: tmpl,
		Data: email.Data{
			ContactName: invite.ContactName,
			CompanyName: inviterName,
			AccessURL:   s.InviteURL(invite.Code),
		},
	})
	s.metrics.Email(string(tmpl), err)
	if err != nil {
		return deliveryError(err)
	}
	return nil
}

// RedeemInvite turns a pending invite into a user of the placeholder
// company. The signup email must match the invited address.
func (s *InviteService) RedeemInvite(ctx context.Context, code uuid.UUID, in RedeemInput, answers []AnswerInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	invite, err := s.GetInviteData(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.IsUsed() {
		return nil, ErrInviteUsed
	}
	if !invite.MatchesEmail(in.Email) {
		return nil, ErrEmailMismatch
	}

	if err := s.checkRequiredAnswers(ctx, invite.Tags, answers); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := insertUser(ctx, tx, strings.TrimSpace(in.Email), in.Name, hash, invite.TargetCompanyID, models.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invites SET status = $2, used_at = NOW(), used_by = $3
		WHERE code = $1 AND status = $4
	`, code, models.InviteStatusUsed, user.ID, models.InviteStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invite used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInviteUsed
	}

	_, err = tx.Exec(ctx, `
		UPDATE companies SET status = $2, registered_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, invite.TargetCompanyID, models.CompanyStatusRegistered)
	if err != nil {
		return nil, fmt.Errorf("failed to register company: %w", err)
	}

	for _, a := range answers {
		_, err = tx.Exec(ctx, `
			INSERT INTO supplier_answers (company_id, invite_code, question_id, value)
			VALUES ($1, $2, $3, $4)
		`, invite.TargetCompanyID, code, a.QuestionID, a.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to save supplier answer: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"invite_code": code,
		"company_id":  invite.TargetCompanyID,
		"user_id":     user.ID,
	}).Info("invite redeemed")

	if invite.Role == models.RoleSupplier {
		notify(ctx, s.notifier, s.log, NewNotification{
			CompanyID:  invite.InvitingCompanyID,
			Type:       models.NotificationSupplierJoined,
			SupplierID: invite.TargetCompanyID,
		})
	}
	return user, nil
}

// SignupQuestions returns the question-bank questions that apply to the
// invite's tags.
func (s *InviteService) SignupQuestions(ctx context.Context, code uuid.UUID) ([]models.Question, error) {
	invite, err := s.GetInviteData(ctx, code)
	if err != nil {
		return nil, err
	}
	return questionsByTags(ctx, s.db.Pool, invite.Tags)
}

func (s *InviteService) checkRequiredAnswers(ctx context.Context, tags []string, answers []AnswerInput) error {
	if len(tags) == 0 {
		return nil
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id FROM questions WHERE required AND tags && $1
	`, tags)
	if err != nil {
		return fmt.Errorf("failed to load required questions: %w", err)
	}
	required, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("failed to load required questions: %w", err)
	}

	answered := make(map[uuid.UUID]bool, len(answers))
	for _, a := range answers {
		qr := models.QuestionResponse{Value: a.Value}
		answered[a.QuestionID] = qr.Answered()
	}

	verr := &validation.Error{}
	for _, id := range required {
		if !answered[id] {
			verr.Fields = append(verr.Fields, validation.FieldError{
				Field:   "answers." + id.String(),
				Tag:     "required",
				Message: "question " + id.String() + " is required",
			})
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
