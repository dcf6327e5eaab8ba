package handlers

import (
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/dimitrije/boltstax-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

const defaultNotificationLimit = 50

// NotificationHandler serves the caller company's in-app notifications.
type NotificationHandler struct {
	notificationService NotificationServiceInterface
	hub                 HubInterface
	log                 logrus.FieldLogger
}

func NewNotificationHandler(notificationService NotificationServiceInterface, hub HubInterface, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, hub: hub, log: log}
}

// ListUnread answers GET /company/notifications?limit=n.
func (h *NotificationHandler) ListUnread(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListUnread(c.Request.Context(), companyID, queryInt(c, "limit", defaultNotificationLimit))
	if err != nil {
		respondError(c, h.log, err, "list notifications")
		return
	}
	_ = c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, companyID); err != nil {
		respondError(c, h.log, err, "mark notification read")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	n, err := h.notificationService.MarkAllRead(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, h.log, err, "mark notifications read")
		return
	}
	_ = c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: n})
}

// Events streams new notifications for the caller's company.
func (h *NotificationHandler) Events(c *drift.Context) {
	companyID, ok := callerCompany(c)
	if !ok {
		return
	}

	client := sse.NewClient(companyID)
	streamEvents(c, h.hub, client, h.log, map[string]any{"company_id": companyID})
}
