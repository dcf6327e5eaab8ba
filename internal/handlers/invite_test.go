package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/testutil"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type inviteTest struct {
	invites *testutil.MockInviteService
	tokens  *testutil.MockTokenService
	jwt     *testutil.MockJWTService
	app     http.Handler
}

func setupInviteTest(t *testing.T) *inviteTest {
	t.Helper()
	it := &inviteTest{
		invites: new(testutil.MockInviteService),
		tokens:  new(testutil.MockTokenService),
		jwt:     new(testutil.MockJWTService),
	}
	handler := NewInviteHandler(it.invites, it.tokens, it.jwt, logger.Discard())

	app := drift.New()
	app.Use(driftmw.BodyParser())

	public := app.Group("/invites")
	public.Get("/:code", handler.Get)
	public.Get("/:code/questions", handler.Questions)
	public.Post("/:code/redeem", handler.Redeem)

	company := app.Group("/company")
	company.Use(middleware.Auth(testutil.TestJWTService()))
	company.Post("/invites", handler.Create)
	company.Get("/invites", handler.ListPending)
	company.Post("/invites/:code/resend", handler.Resend)

	it.app = app
	return it
}

func TestInviteHandler_Create_Success(t *testing.T) {
	it := setupInviteTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	result := &services.InviteResult{InviteCode: uuid.New(), TargetCompanyID: uuid.New()}

	it.invites.On("InviteEntity", mock.Anything, services.InviteRequest{
		Name:           "Bolt Supply",
		ContactName:    "Jordan",
		PrimaryContact: "jordan@bolt.test",
		Tags:           []string{"steel"},
	}, user.CompanyID, models.RoleSupplier).Return(result, nil)

	rec := serve(t, it.app, http.MethodPost, "/company/invites", dto.CreateInviteRequest{
		Name:           "Bolt Supply",
		ContactName:    "Jordan",
		PrimaryContact: "jordan@bolt.test",
		Role:           "supplier",
		Tags:           []string{"steel"},
	}, user)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.CreateInviteResponse
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, result.InviteCode, response.InviteCode)
	assert.Equal(t, result.TargetCompanyID, response.TargetCompanyID)

	it.invites.AssertExpectations(t)
}

func TestInviteHandler_Create_EmailFailure(t *testing.T) {
	it := setupInviteTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	it.invites.On("InviteEntity", mock.Anything, mock.Anything, user.CompanyID, models.RoleCustomer).
		Return(nil, fmt.Errorf("%w: smtp timeout", services.ErrEmailDelivery))

	rec := serve(t, it.app, http.MethodPost, "/company/invites", dto.CreateInviteRequest{
		Name:           "Retail Co",
		ContactName:    "Sam",
		PrimaryContact: "sam@retail.test",
		Role:           "customer",
	}, user)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to send email")
}

func TestInviteHandler_Create_EmailNotConfigured(t *testing.T) {
	it := setupInviteTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	it.invites.On("InviteEntity", mock.Anything, mock.Anything, user.CompanyID, models.RoleSupplier).
		Return(nil, email.ErrConfigurationMissing)

	rec := serve(t, it.app, http.MethodPost, "/company/invites", dto.CreateInviteRequest{Role: "supplier"}, user)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInviteHandler_Create_NotAuthenticated(t *testing.T) {
	it := setupInviteTest(t)

	rec := serve(t, it.app, http.MethodPost, "/company/invites", dto.CreateInviteRequest{}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	it.invites.AssertNotCalled(t, "InviteEntity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInviteHandler_ListPending(t *testing.T) {
	it := setupInviteTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	it.invites.On("ListPending", mock.Anything, user.CompanyID).Return([]models.Invite{{
		Code:              uuid.New(),
		InvitingCompanyID: user.CompanyID,
		Name:              "Bolt Supply",
		Role:              models.RoleSupplier,
		Status:            models.InviteStatusPending,
		Tags:              []string{},
	}}, nil)

	rec := serve(t, it.app, http.MethodGet, "/company/invites", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.InviteResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 1)
	assert.Equal(t, "supplier", response[0].Role)
	assert.Equal(t, "pending", response[0].Status)
}

func TestInviteHandler_Resend_Used(t *testing.T) {
	it := setupInviteTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	code := uuid.New()
	it.invites.On("Resend", mock.Anything, code, user.CompanyID).Return(services.ErrInviteUsed)

	rec := serve(t, it.app, http.MethodPost, "/company/invites/"+code.String()+"/resend", nil, user)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been used")
}

func TestInviteHandler_Get_Public(t *testing.T) {
	it := setupInviteTest(t)

	code := uuid.New()
	it.invites.On("GetInviteData", mock.Anything, code).Return(&models.Invite{
		Code:      code,
		Name:      "Bolt Supply",
		Email:     "jordan@bolt.test",
		Role:      models.RoleSupplier,
		Status:    models.InviteStatusPending,
		CreatedAt: time.Now(),
	}, nil)

	rec := serve(t, it.app, http.MethodGet, "/invites/"+code.String(), nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"email": "jordan@bolt.test", "status": "pending"})
}

func TestInviteHandler_Get_InvalidCode(t *testing.T) {
	it := setupInviteTest(t)

	rec := serve(t, it.app, http.MethodGet, "/invites/abc", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid invite id")
}

func TestInviteHandler_Get_NotFound(t *testing.T) {
	it := setupInviteTest(t)

	code := uuid.New()
	it.invites.On("GetInviteData", mock.Anything, code).Return(nil, services.ErrInviteNotFound)

	rec := serve(t, it.app, http.MethodGet, "/invites/"+code.String(), nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "invite not found")
}

func TestInviteHandler_Questions(t *testing.T) {
	it := setupInviteTest(t)

	code := uuid.New()
	it.invites.On("SignupQuestions", mock.Anything, code).Return([]models.Question{
		{ID: uuid.New(), Text: "ISO 9001 certified?", Type: models.QuestionTypeBoolean, Required: true, Tags: []string{"steel"}},
	}, nil)

	rec := serve(t, it.app, http.MethodGet, "/invites/"+code.String()+"/questions", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ISO 9001 certified?")
}

func TestInviteHandler_Redeem_Success(t *testing.T) {
	it := setupInviteTest(t)

	code := uuid.New()
	questionID := uuid.New()
	user := testutil.TestUser(models.UserRoleUser)

	it.invites.On("RedeemInvite", mock.Anything, code, services.RedeemInput{
		Email:    "jordan@bolt.test",
		Password: "password123",
		Name:     "Jordan",
	}, mock.MatchedBy(func(answers []services.AnswerInput) bool {
		return len(answers) == 1 && answers[0].QuestionID == questionID && string(answers[0].Value) == "true"
	})).Return(user, nil)
	it.jwt.On("GenerateTokenPair", user).Return(testTokenPair(), nil)
	it.jwt.On("RefreshExpiry").Return(24 * time.Hour)
	it.tokens.On("StoreRefreshToken", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

	rec := serve(t, it.app, http.MethodPost, "/invites/"+code.String()+"/redeem", dto.RedeemInviteRequest{
		Email:    "jordan@bolt.test",
		Password: "password123",
		Name:     "Jordan",
		Answers:  []dto.AnswerRequest{{QuestionID: questionID, Value: json.RawMessage("true")}},
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "access-token-123")

	it.invites.AssertExpectations(t)
	it.tokens.AssertExpectations(t)
}

func TestInviteHandler_Redeem_EmailMismatch(t *testing.T) {
	it := setupInviteTest(t)

	code := uuid.New()
	it.invites.On("RedeemInvite", mock.Anything, code, mock.Anything, mock.Anything).Return(nil, services.ErrEmailMismatch)

	rec := serve(t, it.app, http.MethodPost, "/invites/"+code.String()+"/redeem", dto.RedeemInviteRequest{
		Email:    "someone@else.test",
		Password: "password123",
		Name:     "Someone",
	}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not match")
	it.jwt.AssertNotCalled(t, "GenerateTokenPair", mock.Anything)
}
