package handlers

import (
	"net/http"
	"testing"

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

func setupTemplateTest(t *testing.T) (*testutil.MockTemplateService, http.Handler) {
	t.Helper()
	mockTemplateService := new(testutil.MockTemplateService)
	handler := NewTemplateHandler(mockTemplateService, logger.Discard())

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))

	templates := app.Group("/templates")
	templates.Get("", handler.List)
	templates.Get("/:id", handler.Get)
	templates.Get("/:id/versions", handler.ListVersions)
	templates.Get("/:id/versions/:version", handler.GetVersion)

	admin := app.Group("/templates")
	admin.Use(middleware.RequireAdmin())
	admin.Post("", handler.Create)
	admin.Patch("/:id", handler.Update)
	admin.Delete("/:id", handler.Archive)
	admin.Post("/:id/sections/:sectionId/questions", handler.AddQuestion)

	return mockTemplateService, app
}

func TestTemplateHandler_List(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	mockTemplateService.On("List", mock.Anything, false).Return([]models.Template{{ID: uuid.New(), Title: "Steel"}}, nil)

	rec := serve(t, app, http.MethodGet, "/templates", nil, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Steel")
	mockTemplateService.AssertNotCalled(t, "ListByTags", mock.Anything, mock.Anything, mock.Anything)
}

func TestTemplateHandler_List_ByTags(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	mockTemplateService.On("ListByTags", mock.Anything, []string{"steel", "rohs"}, true).Return([]models.Template{}, nil)

	rec := serve(t, app, http.MethodGet, "/templates?tags=steel,%20rohs,&include_archived=true", nil, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusOK, rec.Code)
	mockTemplateService.AssertExpectations(t)
}

func TestTemplateHandler_Create_RequiresAdmin(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	rec := serve(t, app, http.MethodPost, "/templates", dto.CreateTemplateRequest{Title: "Steel"}, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin role required")
	mockTemplateService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestTemplateHandler_Create_Admin(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	admin := testutil.TestUser(models.UserRoleAdmin)
	created := &models.Template{ID: uuid.New(), Title: "Steel", Version: 1, CreatedBy: admin.ID}
	mockTemplateService.On("Create", mock.Anything, services.CreateTemplateInput{
		Title: "Steel",
		Tags:  []string{"steel"},
	}, admin.ID).Return(created, nil)

	rec := serve(t, app, http.MethodPost, "/templates", dto.CreateTemplateRequest{Title: "Steel", Tags: []string{"steel"}}, admin)

	assert.Equal(t, http.StatusCreated, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"title": "Steel", "version": float64(1)})
	mockTemplateService.AssertExpectations(t)
}

func TestTemplateHandler_Update_RecordsChange(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	admin := testutil.TestUser(models.UserRoleAdmin)
	id := uuid.New()
	title := "Steel v2"
	mockTemplateService.On("Update", mock.Anything, id, services.TemplateUpdate{Title: &title}, "renamed", admin.ID).
		Return(&models.Template{ID: id, Title: title, Version: 2}, nil)

	rec := serve(t, app, http.MethodPatch, "/templates/"+id.String(), dto.UpdateTemplateRequest{Title: &title, Change: "renamed"}, admin)

	assert.Equal(t, http.StatusOK, rec.Code)
	testutil.AssertJSON(t, rec, map[string]any{"version": float64(2)})
}

func TestTemplateHandler_Archive(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	id := uuid.New()
	mockTemplateService.On("Archive", mock.Anything, id).Return(nil)

	rec := serve(t, app, http.MethodDelete, "/templates/"+id.String(), nil, testutil.TestUser(models.UserRoleAdmin))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "template archived")
}

func TestTemplateHandler_AddQuestion_SectionMissing(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	admin := testutil.TestUser(models.UserRoleAdmin)
	id, sectionID := uuid.New(), uuid.New()
	mockTemplateService.On("AddQuestionToSection", mock.Anything, id, sectionID, mock.AnythingOfType("models.Question"), admin.ID).
		Return(nil, services.ErrSectionNotFound)

	rec := serve(t, app, http.MethodPost, "/templates/"+id.String()+"/sections/"+sectionID.String()+"/questions",
		dto.AddQuestionRequest{Question: models.Question{Text: "Grade?", Type: models.QuestionTypeShortText}}, admin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "template section not found")
}

func TestTemplateHandler_ListVersions(t *testing.T) {
	mockTemplateService, app := setupTemplateTest(t)

	id := uuid.New()
	mockTemplateService.On("ListVersions", mock.Anything, id).Return([]models.TemplateVersion{
		{TemplateID: id, Version: 2, Changes: []string{"renamed"}},
		{TemplateID: id, Version: 1, Changes: []string{}},
	}, nil)

	rec := serve(t, app, http.MethodGet, "/templates/"+id.String()+"/versions", nil, testutil.TestUser(models.UserRoleUser))

	assert.Equal(t, http.StatusOK, rec.Code)

	var versions []models.TemplateVersion
	testutil.ParseJSON(t, rec, &versions)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
}

func TestTemplateHandler_GetVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		setup   func(m *testutil.MockTemplateService, id uuid.UUID)
		status  int
	}{
		{
			name:    "found",
			version: "1",
			setup: func(m *testutil.MockTemplateService, id uuid.UUID) {
				m.On("GetVersion", mock.Anything, id, 1).Return(&models.TemplateVersion{TemplateID: id, Version: 1}, nil)
			},
			status: http.StatusOK,
		},
		{
			name:    "missing",
			version: "9",
			setup: func(m *testutil.MockTemplateService, id uuid.UUID) {
				m.On("GetVersion", mock.Anything, id, 9).Return(nil, services.ErrTemplateVersionNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name:    "not a number",
			version: "latest",
			setup:   func(*testutil.MockTemplateService, uuid.UUID) {},
			status:  http.StatusBadRequest,
		},
		{
			name:    "zero",
			version: "0",
			setup:   func(*testutil.MockTemplateService, uuid.UUID) {},
			status:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTemplateService, app := setupTemplateTest(t)
			id := uuid.New()
			tt.setup(mockTemplateService, id)

			rec := serve(t, app, http.MethodGet, "/templates/"+id.String()+"/versions/"+tt.version, nil, testutil.TestUser(models.UserRoleUser))

			assert.Equal(t, tt.status, rec.Code)
			mockTemplateService.AssertExpectations(t)
		})
	}
}
