package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationQuestionnaireAssigned  NotificationType = "questionnaireAssigned"
	NotificationQuestionnaireSubmitted NotificationType = "questionnaireSubmitted"
	NotificationSupplierInvited        NotificationType = "supplierInvited"
	NotificationSupplierJoined         NotificationType = "supplierJoined"
)

// Notification is an in-app message addressed to a company. Questionnaire
// notifications carry the product sheet they are about.
type Notification struct {
	ID             uuid.UUID        `json:"id"`
	CompanyID      uuid.UUID        `json:"company_id"`
	Type           NotificationType `json:"type"`
	SupplierID     uuid.UUID        `json:"supplier_id"`
	ProductSheetID *uuid.UUID       `json:"product_sheet_id,omitempty"`
	Read           bool             `json:"read"`
	CreatedAt      time.Time        `json:"created_at"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
}

// AboutSheet reports whether the notification type refers to a product sheet.
func (t NotificationType) AboutSheet() bool {
	return t == NotificationQuestionnaireAssigned || t == NotificationQuestionnaireSubmitted
}

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationQuestionnaireAssigned, NotificationQuestionnaireSubmitted,
		NotificationSupplierInvited, NotificationSupplierJoined:
		return true
	}
	return false
}
