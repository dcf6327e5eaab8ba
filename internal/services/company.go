package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

const companyColumns = `id, name, contact_name, email, status, tags, suppliers, customers, notes, registered_at, created_at, updated_at`

const searchLimit = 5

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func scanCompany(row scanner) (*models.Company, error) {
	var c models.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.ContactName, &c.Email, &c.Status, &c.Tags,
		&c.Suppliers, &c.Customers, &c.Notes, &c.RegisteredAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type CreateCompanyInput struct {
	Name        string   `validate:"required"`
	ContactName string   `validate:"required"`
	Email       string   `validate:"required,email"`
	Tags        []string
	Notes       *string
	Status      models.CompanyStatus
}

type UpdateCompanyInput struct {
	Name        *string
	ContactName *string
	Notes       *string
	Tags        []string
	Status      *models.CompanyStatus
}

type CompanyService struct {
	db  *database.DB
	log logrus.FieldLogger
}

func NewCompanyService(db *database.DB, log logrus.FieldLogger) *CompanyService {
	return &CompanyService{db: db, log: log}
}

func (s *CompanyService) Create(ctx context.Context, in CreateCompanyInput) (*models.Company, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.CompanyStatusActive
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	company, err := scanCompany(s.db.Pool.QueryRow(ctx, `
		INSERT INTO companies (name, contact_name, email, status, tags, notes, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING `+companyColumns,
		in.Name, in.ContactName, in.Email, in.Status, in.Tags, in.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := scanCompany(s.db.Pool.QueryRow(ctx, `
		SELECT `+companyColumns+` FROM companies WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound, "get company")
	}
	return company, nil
}

func (s *CompanyService) Update(ctx context.Context, id uuid.UUID, in UpdateCompanyInput) (*models.Company, error) {
	if in.Name == nil && in.ContactName == nil && in.Notes == nil && in.Tags == nil && in.Status == nil {
		return nil, ErrNoFieldsToUpdate
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, validation.New("status", "oneof", "status is not a known company status")
	}

	company, err := scanCompany(s.db.Pool.QueryRow(ctx, `
		UPDATE companies
		SET name = COALESCE($2, name),
		    contact_name = COALESCE($3, contact_name),
		    notes = COALESCE($4, notes),
		    tags = COALESCE($5, tags),
		    status = COALESCE($6, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+companyColumns,
		id, in.Name, in.ContactName, in.Notes, in.Tags, in.Status,
	))
	if err != nil {
		return nil, notFound(err, ErrCompanyNotFound, "update company")
	}
	return company, nil
}

// SearchByName runs an anchored prefix query limited to five rows, then
// keeps the rows whose name contains term case-insensitively.
func (s *CompanyService) SearchByName(ctx context.Context, term string) ([]models.Company, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Company{}, nil
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE name LIKE $1 ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, likePrefix(term), searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(term)
	companies := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		if strings.Contains(strings.ToLower(c.Name), needle) {
			companies = append(companies, *c)
		}
	}
	return companies, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns term into a LIKE pattern matching names that start with it.
func likePrefix(term string) string {
	return likeEscaper.Replace(term) + "%"
}

// ListRelated returns the companies stored in companyID's suppliers or
// customers array.
func (s *CompanyService) ListRelated(ctx context.Context, companyID uuid.UUID, role models.RelationshipRole) ([]models.Company, error) {
	if !role.Valid() {
		return nil, validation.New("role", "oneof", "role must be supplier or customer")
	}

	rows, err := s.db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM companies
		WHERE id = ANY(SELECT unnest(%s) FROM companies WHERE id = $1)
		ORDER BY name
	`, companyColumns, role.Column()), companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", role.Column(), err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// LinkCompanies records counterpart as a role of holder and holder as the
// inverse role of counterpart, in one transaction. Re-linking is a no-op.
func (s *CompanyService) LinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	if err := checkPair(holderID, counterpartID, role); err != nil {
		return err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := addRelation(ctx, tx, holderID, counterpartID, role); err != nil {
		return err
	}
	if err := addRelation(ctx, tx, counterpartID, holderID, role.Inverse()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"company_id":     holderID,
		"counterpart_id": counterpartID,
		"role":           role,
	}).Info("companies linked")
	return nil
}

// UnlinkCompanies is the inverse of LinkCompanies. Missing entries and
// missing companies are ignored.
func (s *CompanyService) UnlinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	if err := checkPair(holderID, counterpartID, role); err != nil {
		return err
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := removeRelation(ctx, tx, holderID, counterpartID, role); err != nil {
		return err
	}
	if err := removeRelation(ctx, tx, counterpartID, holderID, role.Inverse()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a company and retracts its id from every relationship
// array in the same transaction.
func (s *CompanyService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE companies
		SET suppliers = array_remove(suppliers, $1),
		    customers = array_remove(customers, $1),
		    updated_at = NOW()
		WHERE $1 = ANY(suppliers) OR $1 = ANY(customers)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to retract company from relationships: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithField("company_id", id).Info("company deleted")
	return nil
}

func checkPair(a, b uuid.UUID, role models.RelationshipRole) error {
	if !role.Valid() {
		return validation.New("role", "oneof", "role must be supplier or customer")
	}
	if a == b {
		return validation.New("company_id", "ne", "a company cannot be related to itself")
	}
	return nil
}

func addRelation(ctx context.Context, q execer, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	tag, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE companies
		SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END,
		    updated_at = NOW()
		WHERE id = $1
	`, role.Column()), holderID, counterpartID)
	if err != nil {
		return fmt.Errorf("failed to add %s entry: %w", role, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func removeRelation(ctx context.Context, q execer, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
		UPDATE companies SET %[1]s = array_remove(%[1]s, $2), updated_at = NOW()
		WHERE id = $1
	`, role.Column()), holderID, counterpartID)
	if err != nil {
		return fmt.Errorf("failed to remove %s entry: %w", role, err)
	}
	return nil
}
