package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plain-text password of every fixture user.
const FixturePassword = "password123"

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateCompany creates an active company with default values
func (f *Fixtures) CreateCompany(t *testing.T, opts ...CompanyOption) *models.Company {
	t.Helper()
	f.counter++

	company := &models.Company{
		Name:        fmt.Sprintf("Test Company %d", f.counter),
		ContactName: fmt.Sprintf("Contact %d", f.counter),
		Email:       fmt.Sprintf("company%d@example.com", f.counter),
		Status:      models.CompanyStatusActive,
		Tags:        []string{},
	}

	for _, opt := range opts {
		opt(company)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO companies (name, contact_name, email, status, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, suppliers, customers, created_at, updated_at
	`, company.Name, company.ContactName, company.Email, company.Status, company.Tags).Scan(
		&company.ID, &company.Suppliers, &company.Customers, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create company: %v", err)
	}

	return company
}

// CompanyOption configures a test company
type CompanyOption func(*models.Company)

// WithCompanyName sets the company's name
func WithCompanyName(name string) CompanyOption {
	return func(c *models.Company) {
		c.Name = name
	}
}

// WithCompanyTags sets the company's tags
func WithCompanyTags(tags ...string) CompanyOption {
	return func(c *models.Company) {
		c.Tags = tags
	}
}

// CreateUser creates a user in company whose password is FixturePassword
func (f *Fixtures) CreateUser(t *testing.T, company *models.Company, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email:     fmt.Sprintf("user%d@example.com", f.counter),
		Name:      fmt.Sprintf("Test User %d", f.counter),
		CompanyID: company.ID,
		Role:      models.UserRoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	err = f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, company_id, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, password_hash, created_at, updated_at
	`, user.Email, user.Name, string(hash), user.CompanyID, user.Role).Scan(
		&user.ID, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// AsAdmin gives the user the admin role
func AsAdmin() UserOption {
	return func(u *models.User) {
		u.Role = models.UserRoleAdmin
	}
}

// CreateTemplate stores a template with one section holding questions
func (f *Fixtures) CreateTemplate(t *testing.T, createdBy uuid.UUID, questions ...models.Question) *models.Template {
	t.Helper()
	f.counter++

	for i := range questions {
		if questions[i].ID == uuid.Nil {
			questions[i].ID = uuid.New()
		}
		if questions[i].Tags == nil {
			questions[i].Tags = []string{}
		}
	}

	tmpl := &models.Template{
		Title: fmt.Sprintf("Test Template %d", f.counter),
		Sections: []models.Section{{
			ID:        uuid.New(),
			Title:     "General",
			Questions: questions,
		}},
		Tags:      []string{},
		CreatedBy: createdBy,
		Version:   1,
	}

	sections, err := json.Marshal(tmpl.Sections)
	if err != nil {
		t.Fatalf("failed to marshal sections: %v", err)
	}

	ctx := context.Background()
	err = f.db.Pool.QueryRow(ctx, `
		INSERT INTO questionnaire_templates (title, sections, tags, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, tmpl.Title, sections, tmpl.Tags, tmpl.CreatedBy).Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	return tmpl
}

// CreateSheet stores a sheet owned by customer and addressed to supplier
func (f *Fixtures) CreateSheet(t *testing.T, customer, supplier *models.Company, opts ...SheetOption) *models.ProductSheet {
	t.Helper()
	f.counter++

	sheet := &models.ProductSheet{
		CompanyID:    customer.ID,
		SupplierID:   supplier.ID,
		Name:         fmt.Sprintf("Test Sheet %d", f.counter),
		SelectedTags: []string{"general"},
		Status:       models.SheetStatusDraft,
		AccessToken:  fmt.Sprintf("fixture-token-%d-%s", f.counter, uuid.NewString()),
	}

	for _, opt := range opts {
		opt(sheet)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO product_sheets (company_id, supplier_id, template_id, name, selected_tags, status, due_date, access_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, sheet.CompanyID, sheet.SupplierID, sheet.TemplateID, sheet.Name, sheet.SelectedTags,
		sheet.Status, sheet.DueDate, sheet.AccessToken,
	).Scan(&sheet.ID, &sheet.CreatedAt, &sheet.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}

	return sheet
}

// SheetOption configures a test sheet
type SheetOption func(*models.ProductSheet)

// WithTemplate points the sheet at a template
func WithTemplate(tmpl *models.Template) SheetOption {
	return func(s *models.ProductSheet) {
		s.TemplateID = &tmpl.ID
	}
}

// WithStatus sets the sheet's status
func WithStatus(status models.SheetStatus) SheetOption {
	return func(s *models.ProductSheet) {
		s.Status = status
	}
}

// WithDueDate sets the sheet's due date
func WithDueDate(due time.Time) SheetOption {
	return func(s *models.ProductSheet) {
		s.DueDate = &due
	}
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
