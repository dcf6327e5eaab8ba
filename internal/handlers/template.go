package handlers

import (
	"net/http"
	"strconv"

	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type TemplateHandler struct {
	templateService TemplateServiceInterface
	log             logrus.FieldLogger
}

func NewTemplateHandler(templateService TemplateServiceInterface, log logrus.FieldLogger) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, log: log}
}

// List accepts ?tags=a,b and ?include_archived=true.
func (h *TemplateHandler) List(c *drift.Context) {
	ctx := c.Request.Context()
	includeArchived := queryBool(c, "include_archived")

	if tags := queryList(c, "tags"); len(tags) > 0 {
		templates, err := h.templateService.ListByTags(ctx, tags, includeArchived)
		if err != nil {
			respondError(c, h.log, err, "list templates")
			return
		}
		_ = c.JSON(http.StatusOK, templates)
		return
	}

	templates, err := h.templateService.List(ctx, includeArchived)
	if err != nil {
		respondError(c, h.log, err, "list templates")
		return
	}
	_ = c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) Create(c *drift.Context) {
	var req dto.CreateTemplateRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	template, err := h.templateService.Create(c.Request.Context(), services.CreateTemplateInput{
		Title:       req.Title,
		Description: req.Description,
		Sections:    req.Sections,
		Tags:        req.Tags,
	}, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err, "create template")
		return
	}
	_ = c.JSON(http.StatusCreated, template)
}

func (h *TemplateHandler) Get(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	template, err := h.templateService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "get template")
		return
	}
	_ = c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) Update(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	var req dto.UpdateTemplateRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	template, err := h.templateService.Update(c.Request.Context(), id, services.TemplateUpdate{
		Title:       req.Title,
		Description: req.Description,
		Sections:    req.Sections,
		Tags:        req.Tags,
	}, req.Change, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err, "update template")
		return
	}
	_ = c.JSON(http.StatusOK, template)
}

// Archive is the template DELETE route. Templates are never hard deleted
// because product sheets and responses keep referring to them.
func (h *TemplateHandler) Archive(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	if err := h.templateService.Archive(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "archive template")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "template archived"})
}

func (h *TemplateHandler) AddQuestion(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}
	sectionID, ok := paramID(c, "sectionId", "section")
	if !ok {
		return
	}

	var req dto.AddQuestionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	template, err := h.templateService.AddQuestionToSection(c.Request.Context(), id, sectionID, req.Question, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err, "add question to template")
		return
	}
	_ = c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) ListVersions(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	versions, err := h.templateService.ListVersions(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "list template versions")
		return
	}
	_ = c.JSON(http.StatusOK, versions)
}

func (h *TemplateHandler) GetVersion(c *drift.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		c.BadRequest("invalid template version")
		return
	}

	v, err := h.templateService.GetVersion(c.Request.Context(), id, version)
	if err != nil {
		respondError(c, h.log, err, "get template version")
		return
	}
	_ = c.JSON(http.StatusOK, v)
}
