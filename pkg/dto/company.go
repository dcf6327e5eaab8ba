package dto

import (
	"time"

	"github.com/google/uuid"
)

type CompanyResponse struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	ContactName  string      `json:"contact_name"`
	Email        string      `json:"email"`
	Status       string      `json:"status"`
	Tags         []string    `json:"tags"`
	Suppliers    []uuid.UUID `json:"suppliers"`
	Customers    []uuid.UUID `json:"customers"`
	Notes        *string     `json:"notes,omitempty"`
	RegisteredAt *time.Time  `json:"registered_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type UpdateCompanyRequest struct {
	Name        *string  `json:"name,omitempty"`
	ContactName *string  `json:"contact_name,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

// LinkRequest relates the caller's company to CompanyID. Role is the role
// CompanyID plays for the caller: "supplier" or "customer".
type LinkRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
	Role      string    `json:"role"`
}
