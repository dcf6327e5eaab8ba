package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type CompanyStatus string

const (
	CompanyStatusPendingInvitation CompanyStatus = "pending_invitation"
	CompanyStatusInvitationSent    CompanyStatus = "invitation_sent"
	CompanyStatusRegistered        CompanyStatus = "registered"
	CompanyStatusActive            CompanyStatus = "active"
	CompanyStatusInactive          CompanyStatus = "inactive"
)

func (s CompanyStatus) Valid() bool {
	switch s {
	case CompanyStatusPendingInvitation, CompanyStatusInvitationSent,
		CompanyStatusRegistered, CompanyStatusActive, CompanyStatusInactive:
		return true
	}
	return false
}

// RelationshipRole is the role the counterpart plays for the company that
// holds the relationship entry.
type RelationshipRole string

const (
	RoleSupplier RelationshipRole = "supplier"
	RoleCustomer RelationshipRole = "customer"
)

func (r RelationshipRole) Valid() bool {
	return r == RoleSupplier || r == RoleCustomer
}

// Inverse returns the role the holder plays for the counterpart.
func (r RelationshipRole) Inverse() RelationshipRole {
	if r == RoleSupplier {
		return RoleCustomer
	}
	return RoleSupplier
}

// Column is the companies array a counterpart of this role is stored in.
func (r RelationshipRole) Column() string {
	if r == RoleSupplier {
		return "suppliers"
	}
	return "customers"
}

// Company is the root aggregate. A company is a supplier or customer only by
// appearing in another company's Suppliers or Customers array.
type Company struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	ContactName  string        `json:"contact_name"`
	Email        string        `json:"email"`
	Status       CompanyStatus `json:"status"`
	Tags         []string      `json:"tags"`
	Suppliers    []uuid.UUID   `json:"suppliers"`
	Customers    []uuid.UUID   `json:"customers"`
	Notes        *string       `json:"notes,omitempty"`
	RegisteredAt *time.Time    `json:"registered_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (c *Company) Related(role RelationshipRole) []uuid.UUID {
	if role == RoleSupplier {
		return c.Suppliers
	}
	return c.Customers
}

func (c *Company) HasRelation(role RelationshipRole, id uuid.UUID) bool {
	return slices.Contains(c.Related(role), id)
}
