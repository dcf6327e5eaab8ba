// Package email renders and delivers the transactional emails the
// questionnaire workflows send.
package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

type Template string

const (
	TemplateSupplierInvitation Template = "SUPPLIER_INVITATION"
	TemplateCustomerInvitation Template = "CUSTOMER_INVITATION"
	TemplateSheetCreated       Template = "SHEET_CREATED"
	TemplateSheetReminder      Template = "SHEET_REMINDER"
	TemplateSheetSubmitted     Template = "SHEET_SUBMITTED"
)

var (
	ErrConfigurationMissing = errors.New("email configuration is missing")
	ErrDelivery             = errors.New("email delivery failed")
	ErrInvalidRecipient     = errors.New("invalid recipient email address")
	ErrUnknownTemplate      = errors.New("invalid email template")
	ErrMissingData          = errors.New("missing required email data")
)

var recipientPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Data holds the values templates are parameterised with.
type Data struct {
	ContactName  string `json:"contactName,omitempty"`
	CompanyName  string `json:"companyName,omitempty"`
	SupplierName string `json:"supplierName,omitempty"`
	SheetName    string `json:"sheetName,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
	AccessURL    string `json:"accessUrl,omitempty"`
}

type Message struct {
	To       string   `json:"to"`
	Template Template `json:"template"`
	Data     Data     `json:"data"`
}

// Sender delivers a message. Implementations return once the send has been
// accepted, not once it has been delivered.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate applies the checks the delivery function performs server side.
func (m Message) Validate() error {
	if m.To == "" || m.Template == "" || m.Data == (Data{}) {
		return ErrMissingData
	}
	if _, ok := templates[m.Template]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, m.Template)
	}
	if !recipientPattern.MatchString(m.To) {
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, m.To)
	}
	return nil
}

// InvitationTemplate picks the invitation email for the invitee's role.
func InvitationTemplate(role string) Template {
	if role == "customer" {
		return TemplateCustomerInvitation
	}
	return TemplateSupplierInvitation
}

type unconfigured struct{}

func (unconfigured) Send(context.Context, Message) error {
	return ErrConfigurationMissing
}
