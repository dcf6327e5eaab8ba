package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(user *models.User) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

// CompanyServiceInterface defines the methods used by handlers from CompanyService
type CompanyServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, id uuid.UUID, in services.UpdateCompanyInput) (*models.Company, error)
	SearchByName(ctx context.Context, term string) ([]models.Company, error)
	ListRelated(ctx context.Context, companyID uuid.UUID, role models.RelationshipRole) ([]models.Company, error)
	LinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error
	UnlinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InviteServiceInterface defines the methods used by handlers from InviteService
type InviteServiceInterface interface {
	InviteEntity(ctx context.Context, req services.InviteRequest, invitingCompanyID uuid.UUID, role models.RelationshipRole) (*services.InviteResult, error)
	GetInviteData(ctx context.Context, code uuid.UUID) (*models.Invite, error)
	ListPending(ctx context.Context, invitingCompanyID uuid.UUID) ([]models.Invite, error)
	Resend(ctx context.Context, code, invitingCompanyID uuid.UUID) error
	RedeemInvite(ctx context.Context, code uuid.UUID, in services.RedeemInput, answers []services.AnswerInput) (*models.User, error)
	SignupQuestions(ctx context.Context, code uuid.UUID) ([]models.Question, error)
}

// SheetServiceInterface defines the methods used by handlers from SheetService
type SheetServiceInterface interface {
	Create(ctx context.Context, companyID uuid.UUID, in services.CreateSheetInput) (*models.ProductSheet, error)
	GetOwned(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error)
	List(ctx context.Context, companyID uuid.UUID) ([]models.ProductSheet, error)
	ListSupplierSheets(ctx context.Context, supplierID uuid.UUID) ([]models.ProductSheet, error)
	Update(ctx context.Context, id, companyID uuid.UUID, in services.UpdateSheetInput) (*models.ProductSheet, error)
	Send(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error)
	Delete(ctx context.Context, id, companyID uuid.UUID) error
	OpenSheet(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, *models.QuestionnaireResponse, error)
	Authorize(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, error)
	SheetURL(id uuid.UUID, token string) string
}

// ResponseServiceInterface defines the methods used by handlers from ResponseService
type ResponseServiceInterface interface {
	GetForSheet(ctx context.Context, sheetID, supplierID uuid.UUID) (*models.QuestionnaireResponse, error)
	ListDrafts(ctx context.Context, responseID uuid.UUID, limit int) ([]models.ResponseDraft, error)
	Submit(ctx context.Context, responseID, sheetID uuid.UUID, token string, userID uuid.UUID) (*models.QuestionnaireResponse, error)
}

// AutosaverInterface defines the methods used by handlers from autosave.Debouncer
type AutosaverInterface interface {
	UpdateQuestionResponse(in services.SaveInput)
}

// HubInterface defines the methods used by handlers from the SSE hub
type HubInterface interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}

// TemplateServiceInterface defines the methods used by handlers from TemplateService
type TemplateServiceInterface interface {
	Create(ctx context.Context, in services.CreateTemplateInput, userID uuid.UUID) (*models.Template, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
	List(ctx context.Context, includeArchived bool) ([]models.Template, error)
	ListByTags(ctx context.Context, tags []string, includeArchived bool) ([]models.Template, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, id uuid.UUID, upd services.TemplateUpdate, change string, userID uuid.UUID) (*models.Template, error)
	AddQuestionToSection(ctx context.Context, templateID, sectionID uuid.UUID, q models.Question, userID uuid.UUID) (*models.Template, error)
	GetVersion(ctx context.Context, templateID uuid.UUID, version int) (*models.TemplateVersion, error)
	ListVersions(ctx context.Context, templateID uuid.UUID) ([]models.TemplateVersion, error)
}

// QuestionServiceInterface defines the methods used by handlers from QuestionService
type QuestionServiceInterface interface {
	CreateTag(ctx context.Context, in services.TagInput) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	UpdateTag(ctx context.Context, id uuid.UUID, in services.TagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error

	CreateSection(ctx context.Context, in services.SectionInput) (*models.QuestionSection, error)
	ListSections(ctx context.Context) ([]models.QuestionSection, error)
	UpdateSection(ctx context.Context, id uuid.UUID, in services.SectionInput) (*models.QuestionSection, error)
	DeleteSection(ctx context.Context, id uuid.UUID) error

	CreateQuestion(ctx context.Context, in services.QuestionInput) (*models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	GetQuestionsByTags(ctx context.Context, tags []string) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, id uuid.UUID, in services.QuestionInput) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

// NotificationServiceInterface defines the methods used by handlers from NotificationService
type NotificationServiceInterface interface {
	ListUnread(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, companyID uuid.UUID) error
	MarkAllRead(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// ComplianceServiceInterface defines the methods used by handlers from ComplianceService
type ComplianceServiceInterface interface {
	AddRecord(ctx context.Context, requesterID, supplierID uuid.UUID, in services.ComplianceRecordInput, recordedBy uuid.UUID) (*models.ComplianceRecord, int, error)
	History(ctx context.Context, requesterID, supplierID uuid.UUID, from, to *time.Time) (*models.ComplianceHistory, error)
	Report(ctx context.Context, requesterID, supplierID uuid.UUID, sheetIDs []uuid.UUID) (*models.ComplianceReport, error)
}
