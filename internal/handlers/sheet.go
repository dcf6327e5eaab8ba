package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type SheetHandler struct {
	sheetService    SheetServiceInterface
	responseService ResponseServiceInterface
	log             logrus.FieldLogger
}

func NewSheetHandler(sheetService SheetServiceInterface, responseService ResponseServiceInterface, log logrus.FieldLogger) *SheetHandler {
	return &SheetHandler{
		sheetService:    sheetService,
		responseService: responseService,
		log:             log,
	}
}

// toSheetResponse maps a sheet for the wire. accessURL is only set for the
// requesting company; suppliers already hold the link.
func toSheetResponse(s *models.ProductSheet, accessURL string) dto.SheetResponse {
	return dto.SheetResponse{
		ID:           s.ID,
		CompanyID:    s.CompanyID,
		SupplierID:   s.SupplierID,
		TemplateID:   s.TemplateID,
		Name:         s.Name,
		SelectedTags: s.SelectedTags,
		Status:       string(s.Status),
		DueDate:      s.DueDate,
		AccessURL:    accessURL,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		SentAt:       s.SentAt,
		SubmittedAt:  s.SubmittedAt,
	}
}

func (h *SheetHandler) owned(s *models.ProductSheet) dto.SheetResponse {
	return toSheetResponse(s, h.sheetService.SheetURL(s.ID, s.AccessToken))
}

func (h *SheetHandler) Create(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	var req dto.CreateSheetRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	sheet, err := h.sheetService.Create(c.Request.Context(), companyID, services.CreateSheetInput{
		Name:       req.Name,
		SupplierID: req.SupplierID,
		Tags:       req.Tags,
		TemplateID: req.TemplateID,
		DueDate:    req.DueDate,
	})
	if err != nil {
		respondError(c, h.log, err, "create product sheet")
		return
	}
	_ = c.JSON(http.StatusCreated, h.owned(sheet))
}

// List returns the caller's requested sheets, or with ?view=incoming the
// sheets other companies sent to the caller as supplier.
func (h *SheetHandler) List(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if c.QueryParam("view") == "incoming" {
		sheets, err := h.sheetService.ListSupplierSheets(ctx, companyID)
		if err != nil {
			respondError(c, h.log, err, "list product sheets")
			return
		}
		response := make([]dto.SheetResponse, len(sheets))
		for i := range sheets {
			response[i] = toSheetResponse(&sheets[i], "")
		}
		_ = c.JSON(http.StatusOK, response)
		return
	}

	sheets, err := h.sheetService.List(ctx, companyID)
	if err != nil {
		respondError(c, h.log, err, "list product sheets")
		return
	}
	response := make([]dto.SheetResponse, len(sheets))
	for i := range sheets {
		response[i] = h.owned(&sheets[i])
	}
	_ = c.JSON(http.StatusOK, response)
}

func (h *SheetHandler) Get(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	sheet, err := h.sheetService.GetOwned(c.Request.Context(), id, companyID)
	if err != nil {
		respondError(c, h.log, err, "get product sheet")
		return
	}
	_ = c.JSON(http.StatusOK, h.owned(sheet))
}

func (h *SheetHandler) Update(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	var req dto.UpdateSheetRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	sheet, err := h.sheetService.Update(c.Request.Context(), id, companyID, services.UpdateSheetInput{
		Name:    req.Name,
		Tags:    req.Tags,
		DueDate: req.DueDate,
	})
	if err != nil {
		respondError(c, h.log, err, "update product sheet")
		return
	}
	_ = c.JSON(http.StatusOK, h.owned(sheet))
}

func (h *SheetHandler) Send(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	sheet, err := h.sheetService.Send(c.Request.Context(), id, companyID)
	if err != nil {
		respondError(c, h.log, err, "send product sheet")
		return
	}
	_ = c.JSON(http.StatusOK, h.owned(sheet))
}

func (h *SheetHandler) Delete(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	if err := h.sheetService.Delete(c.Request.Context(), id, companyID); err != nil {
		respondError(c, h.log, err, "delete product sheet")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "product sheet deleted"})
}

// GetResponse lets the requesting company read the supplier's answers.
func (h *SheetHandler) GetResponse(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	ctx := c.Request.Context()

	sheet, err := h.sheetService.GetOwned(ctx, id, companyID)
	if err != nil {
		respondError(c, h.log, err, "get product sheet")
		return
	}

	resp, err := h.responseService.GetForSheet(ctx, sheet.ID, sheet.SupplierID)
	if err != nil {
		respondError(c, h.log, err, "get questionnaire response")
		return
	}
	_ = c.JSON(http.StatusOK, resp)
}
