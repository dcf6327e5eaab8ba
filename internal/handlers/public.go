package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

const defaultDraftLimit = 50

// PublicSheetHandler serves the supplier side of a product sheet. Every
// route is authorised by the sheet's access token in the ?token= query
// parameter rather than by a session.
type PublicSheetHandler struct {
	sheetService    SheetServiceInterface
	responseService ResponseServiceInterface
	autosaver       AutosaverInterface
	hub             HubInterface
	log             logrus.FieldLogger
}

func NewPublicSheetHandler(
	sheetService SheetServiceInterface,
	responseService ResponseServiceInterface,
	autosaver AutosaverInterface,
	hub HubInterface,
	log logrus.FieldLogger,
) *PublicSheetHandler {
	return &PublicSheetHandler{
		sheetService:    sheetService,
		responseService: responseService,
		autosaver:       autosaver,
		hub:             hub,
		log:             log,
	}
}

// authorize checks the token and loads the supplier's response.
func (h *PublicSheetHandler) authorize(c *drift.Context) (*models.ProductSheet, *models.QuestionnaireResponse, bool) {
	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return nil, nil, false
	}

	ctx := c.Request.Context()

	sheet, err := h.sheetService.Authorize(ctx, id, c.QueryParam("token"))
	if err != nil {
		respondError(c, h.log, err, "authorize product sheet")
		return nil, nil, false
	}

	resp, err := h.responseService.GetForSheet(ctx, sheet.ID, sheet.SupplierID)
	if err != nil {
		respondError(c, h.log, err, "get questionnaire response")
		return nil, nil, false
	}
	return sheet, resp, true
}

// Open is the supplier's first visit. It moves a sent sheet to inProgress
// and creates the response when needed.
func (h *PublicSheetHandler) Open(c *drift.Context) {
	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	sheet, resp, err := h.sheetService.OpenSheet(c.Request.Context(), id, c.QueryParam("token"))
	if err != nil {
		respondError(c, h.log, err, "open product sheet")
		return
	}

	_ = c.JSON(http.StatusOK, dto.OpenSheetResponse{
		Sheet:    toSheetResponse(sheet, ""),
		Response: resp,
	})
}

func (h *PublicSheetHandler) GetResponse(c *drift.Context) {
	_, resp, ok := h.authorize(c)
	if !ok {
		return
	}
	_ = c.JSON(http.StatusOK, resp)
}

func (h *PublicSheetHandler) ListDrafts(c *drift.Context) {
	_, resp, ok := h.authorize(c)
	if !ok {
		return
	}

	drafts, err := h.responseService.ListDrafts(c.Request.Context(), resp.ID, queryInt(c, "limit", defaultDraftLimit))
	if err != nil {
		respondError(c, h.log, err, "list drafts")
		return
	}
	_ = c.JSON(http.StatusOK, drafts)
}

// Autosave queues one answer. The write happens once the question has been
// quiet for the debounce window; progress is reported on the events stream.
func (h *PublicSheetHandler) Autosave(c *drift.Context) {
	sheet, resp, ok := h.authorize(c)
	if !ok {
		return
	}

	var req dto.AutosaveRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.ResponseID != resp.ID {
		c.BadRequest("response does not belong to this product sheet")
		return
	}
	if resp.Status == models.ResponseStatusCompleted {
		respondError(c, h.log, services.ErrInvalidTransition, "autosave")
		return
	}
	if len(req.Value) == 0 {
		req.Value = []byte("null")
	}

	h.autosaver.UpdateQuestionResponse(services.SaveInput{
		ResponseID: resp.ID,
		SectionID:  req.SectionID,
		QuestionID: req.QuestionID,
		Value:      req.Value,
		FileURLs:   req.FileURLs,
		UserID:     sheet.SupplierID,
	})

	_ = c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "saving"})
}

func (h *PublicSheetHandler) Submit(c *drift.Context) {
	id, ok := paramID(c, "id", "product sheet")
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()
	token := c.QueryParam("token")

	sheet, err := h.sheetService.Authorize(ctx, id, token)
	if err != nil {
		respondError(c, h.log, err, "authorize product sheet")
		return
	}

	resp, err := h.responseService.Submit(ctx, req.ResponseID, sheet.ID, token, sheet.SupplierID)
	if err != nil {
		respondError(c, h.log, err, "submit questionnaire response")
		return
	}
	_ = c.JSON(http.StatusOK, resp)
}

// Events streams draft_saved and submitted events for the sheet's response
// until the client goes away or the hub shuts down.
func (h *PublicSheetHandler) Events(c *drift.Context) {
	_, resp, ok := h.authorize(c)
	if !ok {
		return
	}

	client := sse.NewClient(resp.ID)
	streamEvents(c, h.hub, client, h.log, map[string]any{"response_id": resp.ID})
}
