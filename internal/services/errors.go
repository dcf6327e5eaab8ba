package services

import (
	"errors"
	"fmt"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is the parent of every not-found error below.
var ErrNotFound = errors.New("not found")

var (
	ErrCompanyNotFound         = fmt.Errorf("company %w", ErrNotFound)
	ErrInviteNotFound          = fmt.Errorf("invite %w", ErrNotFound)
	ErrSheetNotFound           = fmt.Errorf("product sheet %w", ErrNotFound)
	ErrTemplateNotFound        = fmt.Errorf("template %w", ErrNotFound)
	ErrTemplateVersionNotFound = fmt.Errorf("template version %w", ErrNotFound)
	ErrSectionNotFound         = fmt.Errorf("template section %w", ErrNotFound)
	ErrResponseNotFound        = fmt.Errorf("questionnaire response %w", ErrNotFound)
	ErrTagNotFound             = fmt.Errorf("tag %w", ErrNotFound)
	ErrQuestionNotFound        = fmt.Errorf("question %w", ErrNotFound)
	ErrUserNotFound            = fmt.Errorf("user %w", ErrNotFound)
	ErrNotificationNotFound    = fmt.Errorf("notification %w", ErrNotFound)
)

var (
	ErrEmailMismatch      = errors.New("signup email does not match the invited address")
	ErrInviteUsed         = errors.New("invite has already been used")
	ErrInvalidTransition  = errors.New("invalid product sheet status transition")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrVersionConflict    = errors.New("version conflict: response has been modified")
	ErrEmailDelivery      = errors.New("failed to deliver email")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
)

// notFound maps pgx.ErrNoRows to the given sentinel and wraps anything else.
func notFound(err, sentinel error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// deliveryError tags collaborator failures so callers can tell them apart
// from store failures while keeping the email package's cause reachable.
func deliveryError(err error) error {
	if errors.Is(err, email.ErrConfigurationMissing) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
}
