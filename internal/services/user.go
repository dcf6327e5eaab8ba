package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, email, name, password_hash, company_id, role, created_at, updated_at`

const uniqueViolation = "23505"

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CompanyID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func insertUser(ctx context.Context, q queryRower, email, name, passwordHash string, companyID uuid.UUID, role string) (*models.User, error) {
	user, err := scanUser(q.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, company_id, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		strings.ToLower(email), name, passwordHash, companyID, role,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

type SignupInput struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8"`
	Name        string `validate:"required"`
	CompanyName string `validate:"required"`
}

type UserService struct {
	db  *database.DB
	log logrus.FieldLogger
}

func NewUserService(db *database.DB, log logrus.FieldLogger) *UserService {
	return &UserService{db: db, log: log}
}

// Signup registers a company that was not invited, with the signing-up user
// as its admin.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
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

	var companyID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO companies (name, contact_name, email, status, registered_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, in.CompanyName, in.Name, in.Email, models.CompanyStatusActive).Scan(&companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	user, err := insertUser(ctx, tx, in.Email, in.Name, hash, companyID, models.UserRoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "company_id": companyID}).Info("company signed up")
	return user, nil
}

// Authenticate returns the user for a matching email and password. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "get user")
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "get user")
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		name, id,
	))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "update user")
	}
	return user, nil
}

// SetRole changes a user's company role. Used by the admin CLI.
func (s *UserService) SetRole(ctx context.Context, email, role string) (*models.User, error) {
	if role != models.UserRoleAdmin && role != models.UserRoleUser {
		return nil, validation.New("role", "oneof", "role must be admin or user")
	}
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE email = $2
		RETURNING `+userColumns,
		role, strings.ToLower(strings.TrimSpace(email)),
	))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "set user role")
	}
	return user, nil
}
