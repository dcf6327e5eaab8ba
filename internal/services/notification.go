package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const notificationColumns = `id, company_id, type, supplier_id, product_sheet_id, read, created_at, read_at`

// EventNotification is published on the recipient company's topic.
const EventNotification = "notification"

const defaultNotificationPage = 50

// Notifier records in-app notifications. Callers treat it as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n NewNotification) (*models.Notification, error)
}

// NewNotification addresses a notification to CompanyID.
type NewNotification struct {
	CompanyID      uuid.UUID
	Type           models.NotificationType
	SupplierID     uuid.UUID
	ProductSheetID *uuid.UUID
}

func scanNotification(row scanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.CompanyID, &n.Type, &n.SupplierID, &n.ProductSheetID, &n.Read, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type NotificationService struct {
	db        *database.DB
	publisher Publisher
	log       logrus.FieldLogger
}

func NewNotificationService(db *database.DB, publisher Publisher, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{db: db, publisher: publisher, log: log}
}

// Notify stores n as unread and pushes it to the recipient's live streams.
func (s *NotificationService) Notify(ctx context.Context, n NewNotification) (*models.Notification, error) {
	if !n.Type.Valid() {
		return nil, validation.New("type", "oneof", "unknown notification type "+string(n.Type))
	}
	if n.Type.AboutSheet() && n.ProductSheetID == nil {
		return nil, validation.New("product_sheet_id", "required", "product sheet is required for "+string(n.Type))
	}

	notification, err := scanNotification(s.db.Pool.QueryRow(ctx, `
		INSERT INTO notifications (company_id, type, supplier_id, product_sheet_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		n.CompanyID, n.Type, n.SupplierID, n.ProductSheetID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(n.CompanyID, EventNotification, notification)
	}
	s.log.WithFields(logrus.Fields{
		"notification_id": notification.ID,
		"company_id":      n.CompanyID,
		"type":            n.Type,
	}).Debug("notification recorded")
	return notification, nil
}

// ListUnread returns the company's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationPage
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE company_id = $1 AND NOT read
		ORDER BY created_at DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one of the company's notifications as read. Marking it
// again keeps the first read time.
func (s *NotificationService) MarkRead(ctx context.Context, id, companyID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND company_id = $2
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead clears the company's unread list and reports how many
// notifications it touched.
func (s *NotificationService) MarkAllRead(ctx context.Context, companyID uuid.UUID) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE, read_at = NOW()
		WHERE company_id = $1 AND NOT read
	`, companyID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// notify records n through notifier when one is attached. A failure is
// logged and never fails the caller's operation.
func notify(ctx context.Context, notifier Notifier, log logrus.FieldLogger, n NewNotification) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Notify(ctx, n); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"company_id": n.CompanyID,
			"type":       n.Type,
		}).Warn("failed to record notification")
	}
}
