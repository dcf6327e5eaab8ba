package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// sessions issues and stores token pairs for a user. Shared by signup,
// login, refresh and invite redemption.
type sessions struct {
	jwtService   JWTServiceInterface
	tokenService TokenServiceInterface
}

func (s sessions) issue(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	tokenPair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}

	tokenHash := services.HashToken(tokenPair.RefreshToken)
	expiresAt := time.Now().Add(s.jwtService.RefreshExpiry())
	if err := s.tokenService.StoreRefreshToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

type AuthHandler struct {
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
	sessions     sessions
	log          logrus.FieldLogger
}

func NewAuthHandler(
	userService UserServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	log logrus.FieldLogger,
) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
		sessions:     sessions{jwtService: jwtService, tokenService: tokenService},
		log:          log,
	}
}

func (h *AuthHandler) Signup(c *drift.Context) {
	var req dto.SignupRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.Signup(ctx, services.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		respondError(c, h.log, err, "sign up")
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

func (h *AuthHandler) Login(c *drift.Context) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "log in")
		return
	}

	tokens, err := h.sessions.issue(ctx, user)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("failed to issue tokens")
		c.InternalServerError("failed to generate tokens")
		return
	}

	_ = c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	tokenHash := services.HashToken(req.RefreshToken)
	ctx := c.Request.Context()

	storedUserID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedUserID != userID {
		c.Unauthorized("refresh token not found or expired")
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	if err := h.tokenService.RevokeRefreshToken(ctx, tokenHash); err != nil {
		c.InternalServerError("failed to revoke old token")
		return
	}

	tokens, err := h.sessions.issue(ctx, user)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("failed to issue tokens")
		c.InternalServerError("failed to generate tokens")
		return
	}

	_ = c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		tokenHash := services.HashToken(req.RefreshToken)
		_ = h.tokenService.RevokeRefreshToken(c.Request.Context(), tokenHash)
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(c.Request.Context(), userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "all sessions logged out"})
}
