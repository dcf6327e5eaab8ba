package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type CompanyHandler struct {
	companyService CompanyServiceInterface
	log            logrus.FieldLogger
}

func NewCompanyHandler(companyService CompanyServiceInterface, log logrus.FieldLogger) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, log: log}
}

func toCompanyResponse(c *models.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:           c.ID,
		Name:         c.Name,
		ContactName:  c.ContactName,
		Email:        c.Email,
		Status:       string(c.Status),
		Tags:         c.Tags,
		Suppliers:    c.Suppliers,
		Customers:    c.Customers,
		Notes:        c.Notes,
		RegisteredAt: c.RegisteredAt,
		CreatedAt:    c.CreatedAt,
	}
}

func toCompanyResponses(companies []models.Company) []dto.CompanyResponse {
	response := make([]dto.CompanyResponse, len(companies))
	for i := range companies {
		response[i] = toCompanyResponse(&companies[i])
	}
	return response
}

// Search answers GET /companies?q=term.
func (h *CompanyHandler) Search(c *drift.Context) {
	companies, err := h.companyService.SearchByName(c.Request.Context(), c.QueryParam("q"))
	if err != nil {
		respondError(c, h.log, err, "search companies")
		return
	}
	_ = c.JSON(http.StatusOK, toCompanyResponses(companies))
}

func (h *CompanyHandler) Get(c *drift.Context) {
	id, ok := paramID(c, "id", "company")
	if !ok {
		return
	}

	company, err := h.companyService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "get company")
		return
	}
	_ = c.JSON(http.StatusOK, toCompanyResponse(company))
}

func (h *CompanyHandler) GetMine(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	company, err := h.companyService.GetByID(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, h.log, err, "get company")
		return
	}
	_ = c.JSON(http.StatusOK, toCompanyResponse(company))
}

func (h *CompanyHandler) UpdateMine(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	var req dto.UpdateCompanyRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	in := services.UpdateCompanyInput{
		Name:        req.Name,
		ContactName: req.ContactName,
		Notes:       req.Notes,
		Tags:        req.Tags,
	}
	if req.Status != nil {
		status := models.CompanyStatus(*req.Status)
		in.Status = &status
	}

	company, err := h.companyService.Update(c.Request.Context(), companyID, in)
	if err != nil {
		respondError(c, h.log, err, "update company")
		return
	}
	_ = c.JSON(http.StatusOK, toCompanyResponse(company))
}

func (h *CompanyHandler) ListSuppliers(c *drift.Context) {
	h.listRelated(c, models.RoleSupplier)
}

func (h *CompanyHandler) ListCustomers(c *drift.Context) {
	h.listRelated(c, models.RoleCustomer)
}

func (h *CompanyHandler) listRelated(c *drift.Context, role models.RelationshipRole) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	companies, err := h.companyService.ListRelated(c.Request.Context(), companyID, role)
	if err != nil {
		respondError(c, h.log, err, "list "+role.Column())
		return
	}
	_ = c.JSON(http.StatusOK, toCompanyResponses(companies))
}

func (h *CompanyHandler) Link(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	var req dto.LinkRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.companyService.LinkCompanies(c.Request.Context(), companyID, req.CompanyID, models.RelationshipRole(req.Role)); err != nil {
		respondError(c, h.log, err, "link companies")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "companies linked"})
}

// Unlink answers DELETE /company/links/:companyId?role=supplier|customer.
func (h *CompanyHandler) Unlink(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	counterpartID, ok := paramID(c, "companyId", "company")
	if !ok {
		return
	}

	role := models.RelationshipRole(c.QueryParam("role"))
	if err := h.companyService.UnlinkCompanies(c.Request.Context(), companyID, counterpartID, role); err != nil {
		respondError(c, h.log, err, "unlink companies")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "companies unlinked"})
}

// Delete removes the caller's own company. Only company admins reach it.
func (h *CompanyHandler) Delete(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "company")
	if !ok {
		return
	}
	if id != companyID || middleware.GetRole(c) != models.UserRoleAdmin {
		c.Forbidden("only an admin of the company can delete it")
		return
	}

	if err := h.companyService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "delete company")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "company deleted"})
}
