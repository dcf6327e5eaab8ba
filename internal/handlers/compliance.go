package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// ComplianceHandler records and reports on the compliance of the caller's
// suppliers.
type ComplianceHandler struct {
	complianceService ComplianceServiceInterface
	log               logrus.FieldLogger
}

func NewComplianceHandler(complianceService ComplianceServiceInterface, log logrus.FieldLogger) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService, log: log}
}

func (h *ComplianceHandler) AddRecord(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	supplierID, ok := paramID(c, "id", "company")
	if !ok {
		return
	}

	var req dto.ComplianceRecordRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	record, score, err := h.complianceService.AddRecord(c.Request.Context(), companyID, supplierID,
		services.ComplianceRecordInput{Category: req.Category, Score: req.Score}, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err, "add compliance record")
		return
	}
	_ = c.JSON(http.StatusCreated, dto.ComplianceRecordResponse{
		ID:              record.ID,
		Category:        record.Category,
		Score:           record.Score,
		RecordedAt:      record.RecordedAt,
		ComplianceScore: score,
	})
}

// History answers GET /companies/:id/compliance?from=&to= with RFC 3339
// bounds.
func (h *ComplianceHandler) History(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	supplierID, ok := paramID(c, "id", "company")
	if !ok {
		return
	}

	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}

	history, err := h.complianceService.History(c.Request.Context(), companyID, supplierID, from, to)
	if err != nil {
		respondError(c, h.log, err, "get compliance history")
		return
	}
	_ = c.JSON(http.StatusOK, history)
}

func (h *ComplianceHandler) Report(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	supplierID, ok := paramID(c, "id", "company")
	if !ok {
		return
	}

	// an empty body reports on every completed questionnaire
	var req dto.ComplianceReportRequest
	if err := c.BindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.BadRequest("invalid request body")
		return
	}

	report, err := h.complianceService.Report(c.Request.Context(), companyID, supplierID, req.SheetIDs)
	if err != nil {
		respondError(c, h.log, err, "generate compliance report")
		return
	}
	_ = c.JSON(http.StatusCreated, report)
}
