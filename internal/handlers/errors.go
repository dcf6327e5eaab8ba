package handlers

import (
	"errors"
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// respondError maps service errors to HTTP responses. Anything unexpected
// is logged and answered with a generic "failed to <op>".
func respondError(c *drift.Context, log logrus.FieldLogger, err error, op string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		_ = c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.NotFound(err.Error())
	case errors.Is(err, services.ErrNoFieldsToUpdate):
		c.BadRequest(err.Error())
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized(err.Error())
	case errors.Is(err, services.ErrEmailMismatch),
		errors.Is(err, services.ErrInviteUsed),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrVersionConflict),
		errors.Is(err, services.ErrEmailTaken):
		_ = c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrEmailDelivery), errors.Is(err, email.ErrConfigurationMissing):
		log.WithError(err).WithField("operation", op).Warn("email collaborator failed")
		c.BadGateway("failed to send email")
	default:
		log.WithError(err).WithField("operation", op).Error("request failed")
		c.InternalServerError("failed to " + op)
	}
}
