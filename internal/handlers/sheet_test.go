package handlers

import (
	"net/http"
	"testing"
	"time"

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

func setupSheetTest(t *testing.T) (*testutil.MockSheetService, *testutil.MockResponseService, http.Handler) {
	t.Helper()
	mockSheetService := new(testutil.MockSheetService)
	mockResponseService := new(testutil.MockResponseService)
	handler := NewSheetHandler(mockSheetService, mockResponseService, logger.Discard())

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))
	app.Post("/sheets", handler.Create)
	app.Get("/sheets", handler.List)
	app.Get("/sheets/:id", handler.Get)
	app.Patch("/sheets/:id", handler.Update)
	app.Delete("/sheets/:id", handler.Delete)
	app.Post("/sheets/:id/send", handler.Send)
	app.Get("/sheets/:id/response", handler.GetResponse)

	return mockSheetService, mockResponseService, app
}

func testSheet(companyID uuid.UUID, status models.SheetStatus) *models.ProductSheet {
	return &models.ProductSheet{
		ID:           uuid.New(),
		CompanyID:    companyID,
		SupplierID:   uuid.New(),
		Name:         "M8 hex bolts",
		SelectedTags: []string{"steel"},
		Status:       status,
		AccessToken:  "secret-token",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestSheetHandler_Create_Success(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	sheet := testSheet(user.CompanyID, models.SheetStatusDraft)

	mockSheetService.On("Create", mock.Anything, user.CompanyID, services.CreateSheetInput{
		Name:       sheet.Name,
		SupplierID: sheet.SupplierID,
		Tags:       []string{"steel"},
	}).Return(sheet, nil)

	rec := serve(t, app, http.MethodPost, "/sheets", dto.CreateSheetRequest{
		Name:       sheet.Name,
		SupplierID: sheet.SupplierID,
		Tags:       []string{"steel"},
	}, user)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.SheetResponse
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, sheet.ID, response.ID)
	assert.Equal(t, "draft", response.Status)
	assert.Contains(t, response.AccessURL, "token=secret-token")
	assert.NotContains(t, rec.Body.String(), `"access_token"`)

	mockSheetService.AssertExpectations(t)
}

func TestSheetHandler_Create_SupplierNotLinked(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockSheetService.On("Create", mock.Anything, user.CompanyID, mock.Anything).Return(nil, services.ErrCompanyNotFound)

	rec := serve(t, app, http.MethodPost, "/sheets", dto.CreateSheetRequest{
		Name:       "Bolts",
		SupplierID: uuid.New(),
		Tags:       []string{"steel"},
	}, user)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSheetHandler_List_Owned(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockSheetService.On("List", mock.Anything, user.CompanyID).Return([]models.ProductSheet{
		*testSheet(user.CompanyID, models.SheetStatusSent),
	}, nil)

	rec := serve(t, app, http.MethodGet, "/sheets", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.SheetResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 1)
	assert.NotEmpty(t, response[0].AccessURL)
	mockSheetService.AssertNotCalled(t, "ListSupplierSheets", mock.Anything, mock.Anything)
}

func TestSheetHandler_List_Incoming(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	incoming := testSheet(uuid.New(), models.SheetStatusInProgress)
	incoming.SupplierID = user.CompanyID
	mockSheetService.On("ListSupplierSheets", mock.Anything, user.CompanyID).Return([]models.ProductSheet{*incoming}, nil)

	rec := serve(t, app, http.MethodGet, "/sheets?view=incoming", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.SheetResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 1)
	assert.Empty(t, response[0].AccessURL)
	assert.Equal(t, "inProgress", response[0].Status)
}

func TestSheetHandler_Get_NotOwned(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	id := uuid.New()
	mockSheetService.On("GetOwned", mock.Anything, id, user.CompanyID).Return(nil, services.ErrSheetNotFound)

	rec := serve(t, app, http.MethodGet, "/sheets/"+id.String(), nil, user)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "product sheet not found")
}

func TestSheetHandler_Update(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	sheet := testSheet(user.CompanyID, models.SheetStatusDraft)
	sheet.Name = "M10 hex bolts"
	name := "M10 hex bolts"

	mockSheetService.On("Update", mock.Anything, sheet.ID, user.CompanyID, services.UpdateSheetInput{Name: &name}).Return(sheet, nil)

	rec := serve(t, app, http.MethodPatch, "/sheets/"+sheet.ID.String(), dto.UpdateSheetRequest{Name: &name}, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "M10 hex bolts")
	mockSheetService.AssertExpectations(t)
}

func TestSheetHandler_Send_Success(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	sheet := testSheet(user.CompanyID, models.SheetStatusSent)
	mockSheetService.On("Send", mock.Anything, sheet.ID, user.CompanyID).Return(sheet, nil)

	rec := serve(t, app, http.MethodPost, "/sheets/"+sheet.ID.String()+"/send", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"status": "sent"})
}

func TestSheetHandler_Send_InvalidTransition(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	id := uuid.New()
	mockSheetService.On("Send", mock.Anything, id, user.CompanyID).Return(nil, services.ErrInvalidTransition)

	rec := serve(t, app, http.MethodPost, "/sheets/"+id.String()+"/send", nil, user)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid product sheet status transition")
}

func TestSheetHandler_Delete(t *testing.T) {
	mockSheetService, _, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	id := uuid.New()
	mockSheetService.On("Delete", mock.Anything, id, user.CompanyID).Return(nil)

	rec := serve(t, app, http.MethodDelete, "/sheets/"+id.String(), nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "product sheet deleted")
	mockSheetService.AssertExpectations(t)
}

func TestSheetHandler_GetResponse(t *testing.T) {
	mockSheetService, mockResponseService, app := setupSheetTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	sheet := testSheet(user.CompanyID, models.SheetStatusCompleted)
	resp := &models.QuestionnaireResponse{
		ID:             uuid.New(),
		ProductSheetID: sheet.ID,
		SupplierID:     sheet.SupplierID,
		Status:         models.ResponseStatusCompleted,
		CompletionRate: 100,
		Version:        4,
	}

	mockSheetService.On("GetOwned", mock.Anything, sheet.ID, user.CompanyID).Return(sheet, nil)
	mockResponseService.On("GetForSheet", mock.Anything, sheet.ID, sheet.SupplierID).Return(resp, nil)

	rec := serve(t, app, http.MethodGet, "/sheets/"+sheet.ID.String()+"/response", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"status": "completed", "completion_rate": float64(100)})
	mockResponseService.AssertExpectations(t)
}

func TestSheetHandler_NotAuthenticated(t *testing.T) {
	_, _, app := setupSheetTest(t)

	rec := serve(t, app, http.MethodGet, "/sheets", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
