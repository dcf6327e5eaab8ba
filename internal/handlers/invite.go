package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type InviteHandler struct {
	inviteService InviteServiceInterface
	sessions      sessions
	log           logrus.FieldLogger
}

func NewInviteHandler(
	inviteService InviteServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	log logrus.FieldLogger,
) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
		sessions:      sessions{jwtService: jwtService, tokenService: tokenService},
		log:           log,
	}
}

func toInviteResponse(i *models.Invite) dto.InviteResponse {
	return dto.InviteResponse{
		Code:              i.Code,
		InvitingCompanyID: i.InvitingCompanyID,
		Name:              i.Name,
		ContactName:       i.ContactName,
		Email:             i.Email,
		Role:              string(i.Role),
		Tags:              i.Tags,
		Status:            string(i.Status),
		CreatedAt:         i.CreatedAt,
	}
}

func (h *InviteHandler) Create(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	var req dto.CreateInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	result, err := h.inviteService.InviteEntity(c.Request.Context(), services.InviteRequest{
		Name:           req.Name,
		ContactName:    req.ContactName,
		PrimaryContact: req.PrimaryContact,
		Tags:           req.Tags,
		Notes:          req.Notes,
	}, companyID, models.RelationshipRole(req.Role))
	if err != nil {
		respondError(c, h.log, err, "create invite")
		return
	}

	_ = c.JSON(http.StatusCreated, dto.CreateInviteResponse{
		InviteCode:      result.InviteCode,
		TargetCompanyID: result.TargetCompanyID,
	})
}

func (h *InviteHandler) ListPending(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	invites, err := h.inviteService.ListPending(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, h.log, err, "list invites")
		return
	}

	response := make([]dto.InviteResponse, len(invites))
	for i := range invites {
		response[i] = toInviteResponse(&invites[i])
	}
	_ = c.JSON(http.StatusOK, response)
}

func (h *InviteHandler) Resend(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	code, ok := paramID(c, "code", "invite")
	if !ok {
		return
	}

	if err := h.inviteService.Resend(c.Request.Context(), code, companyID); err != nil {
		respondError(c, h.log, err, "resend invite")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "invite sent"})
}

// Get is public: the invite code itself is the capability.
func (h *InviteHandler) Get(c *drift.Context) {
	code, ok := paramID(c, "code", "invite")
	if !ok {
		return
	}

	invite, err := h.inviteService.GetInviteData(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.log, err, "get invite")
		return
	}
	_ = c.JSON(http.StatusOK, toInviteResponse(invite))
}

func (h *InviteHandler) Questions(c *drift.Context) {
	code, ok := paramID(c, "code", "invite")
	if !ok {
		return
	}

	questions, err := h.inviteService.SignupQuestions(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.log, err, "get signup questions")
		return
	}
	_ = c.JSON(http.StatusOK, questions)
}

// Redeem signs the invitee up and logs them in.
func (h *InviteHandler) Redeem(c *drift.Context) {
	code, ok := paramID(c, "code", "invite")
	if !ok {
		return
	}

	var req dto.RedeemInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	answers := make([]services.AnswerInput, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = services.AnswerInput{QuestionID: a.QuestionID, Value: a.Value}
	}

	ctx := c.Request.Context()

	user, err := h.inviteService.RedeemInvite(ctx, code, services.RedeemInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}, answers)
	if err != nil {
		respondError(c, h.log, err, "redeem invite")
		return
	}

	tokens, err := h.sessions.issue(ctx, user)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("failed to issue tokens")
		c.InternalServerError("failed to generate tokens")
		return
	}
	_ = c.JSON(http.StatusCreated, tokens)
}
