package testutil

import (
	"context"
	"time"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, in services.SignupInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockCompanyService mocks the CompanyService
type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockCompanyService) Update(ctx context.Context, id uuid.UUID, in services.UpdateCompanyInput) (*models.Company, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockCompanyService) SearchByName(ctx context.Context, term string) ([]models.Company, error) {
	args := m.Called(ctx, term)
	return args.Get(0).([]models.Company), args.Error(1)
}

func (m *MockCompanyService) ListRelated(ctx context.Context, companyID uuid.UUID, role models.RelationshipRole) ([]models.Company, error) {
	args := m.Called(ctx, companyID, role)
	return args.Get(0).([]models.Company), args.Error(1)
}

func (m *MockCompanyService) LinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	args := m.Called(ctx, holderID, counterpartID, role)
	return args.Error(0)
}

func (m *MockCompanyService) UnlinkCompanies(ctx context.Context, holderID, counterpartID uuid.UUID, role models.RelationshipRole) error {
	args := m.Called(ctx, holderID, counterpartID, role)
	return args.Error(0)
}

func (m *MockCompanyService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInviteService mocks the InviteService
type MockInviteService struct {
	mock.Mock
}

func (m *MockInviteService) InviteEntity(ctx context.Context, req services.InviteRequest, invitingCompanyID uuid.UUID, role models.RelationshipRole) (*services.InviteResult, error) {
	args := m.Called(ctx, req, invitingCompanyID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InviteResult), args.Error(1)
}

func (m *MockInviteService) GetInviteData(ctx context.Context, code uuid.UUID) (*models.Invite, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invite), args.Error(1)
}

func (m *MockInviteService) ListPending(ctx context.Context, invitingCompanyID uuid.UUID) ([]models.Invite, error) {
	args := m.Called(ctx, invitingCompanyID)
	return args.Get(0).([]models.Invite), args.Error(1)
}

func (m *MockInviteService) Resend(ctx context.Context, code, invitingCompanyID uuid.UUID) error {
	args := m.Called(ctx, code, invitingCompanyID)
	return args.Error(0)
}

func (m *MockInviteService) RedeemInvite(ctx context.Context, code uuid.UUID, in services.RedeemInput, answers []services.AnswerInput) (*models.User, error) {
	args := m.Called(ctx, code, in, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockInviteService) SignupQuestions(ctx context.Context, code uuid.UUID) ([]models.Question, error) {
	args := m.Called(ctx, code)
	return args.Get(0).([]models.Question), args.Error(1)
}

// MockSheetService mocks the SheetService
type MockSheetService struct {
	mock.Mock
}

func (m *MockSheetService) Create(ctx context.Context, companyID uuid.UUID, in services.CreateSheetInput) (*models.ProductSheet, error) {
	args := m.Called(ctx, companyID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) GetOwned(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error) {
	args := m.Called(ctx, id, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) List(ctx context.Context, companyID uuid.UUID) ([]models.ProductSheet, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) ListSupplierSheets(ctx context.Context, supplierID uuid.UUID) ([]models.ProductSheet, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) Update(ctx context.Context, id, companyID uuid.UUID, in services.UpdateSheetInput) (*models.ProductSheet, error) {
	args := m.Called(ctx, id, companyID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) Send(ctx context.Context, id, companyID uuid.UUID) (*models.ProductSheet, error) {
	args := m.Called(ctx, id, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSheet), args.Error(1)
}

func (m *MockSheetService) Delete(ctx context.Context, id, companyID uuid.UUID) error {
	args := m.Called(ctx, id, companyID)
	return args.Error(0)
}

func (m *MockSheetService) OpenSheet(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, *models.QuestionnaireResponse, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	resp, _ := args.Get(1).(*models.QuestionnaireResponse)
	return args.Get(0).(*models.ProductSheet), resp, args.Error(2)
}

func (m *MockSheetService) Authorize(ctx context.Context, id uuid.UUID, token string) (*models.ProductSheet, error) {
	args := m.Called(ctx, id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductSheet), args.Error(1)
}

// SheetURL is not recorded; it mirrors the service's link format.
func (m *MockSheetService) SheetURL(id uuid.UUID, token string) string {
	return "http://localhost:5173/sheets/" + id.String() + "?token=" + token
}

// MockResponseService mocks the ResponseService
type MockResponseService struct {
	mock.Mock
}

func (m *MockResponseService) GetForSheet(ctx context.Context, sheetID, supplierID uuid.UUID) (*models.QuestionnaireResponse, error) {
	args := m.Called(ctx, sheetID, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionnaireResponse), args.Error(1)
}

func (m *MockResponseService) ListDrafts(ctx context.Context, responseID uuid.UUID, limit int) ([]models.ResponseDraft, error) {
	args := m.Called(ctx, responseID, limit)
	return args.Get(0).([]models.ResponseDraft), args.Error(1)
}

func (m *MockResponseService) Submit(ctx context.Context, responseID, sheetID uuid.UUID, token string, userID uuid.UUID) (*models.QuestionnaireResponse, error) {
	args := m.Called(ctx, responseID, sheetID, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionnaireResponse), args.Error(1)
}

// MockAutosaver mocks the autosave debouncer
type MockAutosaver struct {
	mock.Mock
}

func (m *MockAutosaver) UpdateQuestionResponse(in services.SaveInput) {
	m.Called(in)
}

// MockSSEHub mocks the SSE hub
type MockSSEHub struct {
	mock.Mock
}

func (m *MockSSEHub) Register(client *sse.Client) {
	m.Called(client)
}

func (m *MockSSEHub) Unregister(client *sse.Client) {
	m.Called(client)
}

// MockTemplateService mocks the TemplateService
type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Create(ctx context.Context, in services.CreateTemplateInput, userID uuid.UUID) (*models.Template, error) {
	args := m.Called(ctx, in, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockTemplateService) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockTemplateService) List(ctx context.Context, includeArchived bool) ([]models.Template, error) {
	args := m.Called(ctx, includeArchived)
	return args.Get(0).([]models.Template), args.Error(1)
}

func (m *MockTemplateService) ListByTags(ctx context.Context, tags []string, includeArchived bool) ([]models.Template, error) {
	args := m.Called(ctx, tags, includeArchived)
	return args.Get(0).([]models.Template), args.Error(1)
}

func (m *MockTemplateService) Archive(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTemplateService) Update(ctx context.Context, id uuid.UUID, upd services.TemplateUpdate, change string, userID uuid.UUID) (*models.Template, error) {
	args := m.Called(ctx, id, upd, change, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockTemplateService) AddQuestionToSection(ctx context.Context, templateID, sectionID uuid.UUID, q models.Question, userID uuid.UUID) (*models.Template, error) {
	args := m.Called(ctx, templateID, sectionID, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

func (m *MockTemplateService) GetVersion(ctx context.Context, templateID uuid.UUID, version int) (*models.TemplateVersion, error) {
	args := m.Called(ctx, templateID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TemplateVersion), args.Error(1)
}

func (m *MockTemplateService) ListVersions(ctx context.Context, templateID uuid.UUID) ([]models.TemplateVersion, error) {
	args := m.Called(ctx, templateID)
	return args.Get(0).([]models.TemplateVersion), args.Error(1)
}

// MockQuestionService mocks the QuestionService
type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) CreateTag(ctx context.Context, in services.TagInput) (*models.Tag, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *MockQuestionService) ListTags(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockQuestionService) UpdateTag(ctx context.Context, id uuid.UUID, in services.TagInput) (*models.Tag, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *MockQuestionService) DeleteTag(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionService) CreateSection(ctx context.Context, in services.SectionInput) (*models.QuestionSection, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionSection), args.Error(1)
}

func (m *MockQuestionService) ListSections(ctx context.Context) ([]models.QuestionSection, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.QuestionSection), args.Error(1)
}

func (m *MockQuestionService) UpdateSection(ctx context.Context, id uuid.UUID, in services.SectionInput) (*models.QuestionSection, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionSection), args.Error(1)
}

func (m *MockQuestionService) DeleteSection(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionService) CreateQuestion(ctx context.Context, in services.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) ListQuestions(ctx context.Context) ([]models.Question, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionService) GetQuestionsByTags(ctx context.Context, tags []string) ([]models.Question, error) {
	args := m.Called(ctx, tags)
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionService) UpdateQuestion(ctx context.Context, id uuid.UUID, in services.QuestionInput) (*models.Question, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(user *models.User) (*services.TokenPair, error) {
	args := m.Called(user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockNotificationService mocks the NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListUnread(ctx context.Context, companyID uuid.UUID, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, companyID, limit)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id, companyID uuid.UUID) error {
	args := m.Called(ctx, id, companyID)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, companyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(int64), args.Error(1)
}

// MockComplianceService mocks the ComplianceService
type MockComplianceService struct {
	mock.Mock
}

func (m *MockComplianceService) AddRecord(ctx context.Context, requesterID, supplierID uuid.UUID, in services.ComplianceRecordInput, recordedBy uuid.UUID) (*models.ComplianceRecord, int, error) {
	args := m.Called(ctx, requesterID, supplierID, in, recordedBy)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*models.ComplianceRecord), args.Int(1), args.Error(2)
}

func (m *MockComplianceService) History(ctx context.Context, requesterID, supplierID uuid.UUID, from, to *time.Time) (*models.ComplianceHistory, error) {
	args := m.Called(ctx, requesterID, supplierID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplianceHistory), args.Error(1)
}

func (m *MockComplianceService) Report(ctx context.Context, requesterID, supplierID uuid.UUID, sheetIDs []uuid.UUID) (*models.ComplianceReport, error) {
	args := m.Called(ctx, requesterID, supplierID, sheetIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplianceReport), args.Error(1)
}
