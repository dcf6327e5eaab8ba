package handlers

import (
	"net/http"
	"testing"

	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/testutil"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCompanyTest(t *testing.T) (*testutil.MockCompanyService, http.Handler) {
	t.Helper()
	mockCompanyService := new(testutil.MockCompanyService)
	handler := NewCompanyHandler(mockCompanyService, logger.Discard())

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))
	app.Get("/companies", handler.Search)
	app.Get("/companies/:id", handler.Get)
	app.Delete("/companies/:id", handler.Delete)
	app.Get("/company", handler.GetMine)
	app.Patch("/company", handler.UpdateMine)
	app.Get("/company/suppliers", handler.ListSuppliers)
	app.Get("/company/customers", handler.ListCustomers)
	app.Post("/company/links", handler.Link)
	app.Delete("/company/links/:companyId", handler.Unlink)

	return mockCompanyService, app
}

func TestCompanyHandler_Search(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockCompanyService.On("SearchByName", mock.Anything, "acme").Return([]models.Company{
		{ID: uuid.New(), Name: "Acme Metals"},
		{ID: uuid.New(), Name: "Acme Plastics"},
	}, nil)

	rec := serve(t, app, http.MethodGet, "/companies?q=acme", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.CompanyResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 2)
	assert.Equal(t, "Acme Metals", response[0].Name)
}

func TestCompanyHandler_Get_InvalidID(t *testing.T) {
	_, app := setupCompanyTest(t)

	rec := serve(t, app, http.MethodGet, "/companies/not-a-uuid", nil, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid company id")
}

func TestCompanyHandler_Get_NotFound(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	id := uuid.New()
	mockCompanyService.On("GetByID", mock.Anything, id).Return(nil, services.ErrCompanyNotFound)

	rec := serve(t, app, http.MethodGet, "/companies/"+id.String(), nil, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "company not found")
}

func TestCompanyHandler_GetMine(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockCompanyService.On("GetByID", mock.Anything, user.CompanyID).
		Return(&models.Company{ID: user.CompanyID, Name: "Acme", Status: models.CompanyStatusActive}, nil)

	rec := serve(t, app, http.MethodGet, "/company", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"name": "Acme", "status": "active"})
}

func TestCompanyHandler_UpdateMine_InvalidStatus(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	status := "bogus"
	mockCompanyService.On("Update", mock.Anything, user.CompanyID, mock.MatchedBy(func(in services.UpdateCompanyInput) bool {
		return in.Status != nil && *in.Status == models.CompanyStatus("bogus")
	})).Return(nil, validation.New("status", "oneof", "status is not a known company status"))

	rec := serve(t, app, http.MethodPatch, "/company", dto.UpdateCompanyRequest{Status: &status}, user)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status is not a known company status")
}

func TestCompanyHandler_ListSuppliers(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockCompanyService.On("ListRelated", mock.Anything, user.CompanyID, models.RoleSupplier).
		Return([]models.Company{{ID: uuid.New(), Name: "Bolt Supply"}}, nil)

	rec := serve(t, app, http.MethodGet, "/company/suppliers", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bolt Supply")
	mockCompanyService.AssertExpectations(t)
}

func TestCompanyHandler_ListCustomers(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockCompanyService.On("ListRelated", mock.Anything, user.CompanyID, models.RoleCustomer).
		Return([]models.Company{}, nil)

	rec := serve(t, app, http.MethodGet, "/company/customers", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCompanyHandler_Link(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	supplierID := uuid.New()
	mockCompanyService.On("LinkCompanies", mock.Anything, user.CompanyID, supplierID, models.RoleSupplier).Return(nil)

	rec := serve(t, app, http.MethodPost, "/company/links", dto.LinkRequest{CompanyID: supplierID, Role: "supplier"}, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companies linked")
	mockCompanyService.AssertExpectations(t)
}

func TestCompanyHandler_Link_Self(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	mockCompanyService.On("LinkCompanies", mock.Anything, user.CompanyID, user.CompanyID, models.RoleCustomer).
		Return(validation.New("company_id", "ne", "a company cannot be related to itself"))

	rec := serve(t, app, http.MethodPost, "/company/links", dto.LinkRequest{CompanyID: user.CompanyID, Role: "customer"}, user)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be related to itself")
}

func TestCompanyHandler_Unlink(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	user := testutil.TestUser(models.UserRoleUser)
	customerID := uuid.New()
	mockCompanyService.On("UnlinkCompanies", mock.Anything, user.CompanyID, customerID, models.RoleCustomer).Return(nil)

	rec := serve(t, app, http.MethodDelete, "/company/links/"+customerID.String()+"?role=customer", nil, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companies unlinked")
	mockCompanyService.AssertExpectations(t)
}

func TestCompanyHandler_Delete_Admin(t *testing.T) {
	mockCompanyService, app := setupCompanyTest(t)

	admin := testutil.TestUser(models.UserRoleAdmin)
	mockCompanyService.On("Delete", mock.Anything, admin.CompanyID).Return(nil)

	rec := serve(t, app, http.MethodDelete, "/companies/"+admin.CompanyID.String(), nil, admin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "company deleted")
	mockCompanyService.AssertExpectations(t)
}

func TestCompanyHandler_Delete_Forbidden(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		target func(u *models.User) uuid.UUID
	}{
		{"non admin", models.UserRoleUser, func(u *models.User) uuid.UUID { return u.CompanyID }},
		{"other company", models.UserRoleAdmin, func(*models.User) uuid.UUID { return uuid.New() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCompanyService, app := setupCompanyTest(t)
			user := testutil.TestUser(tt.role)

			rec := serve(t, app, http.MethodDelete, "/companies/"+tt.target(user).String(), nil, user)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			mockCompanyService.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		})
	}
}
