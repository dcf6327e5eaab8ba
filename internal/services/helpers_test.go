package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.DB, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return &database.DB{Pool: pool}, pool
}

func testLog() logrus.FieldLogger {
	return logger.Discard()
}

// bytesContaining matches a []byte argument holding substr, for JSONB
// columns whose exact encoding includes generated ids.
type bytesContaining string

func (b bytesContaining) Match(v any) bool {
	raw, ok := v.([]byte)
	return ok && strings.Contains(string(raw), string(b))
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// sentTemplate matches a message by template and recipient.
func sentTemplate(tmpl email.Template, to string) any {
	return mock.MatchedBy(func(msg email.Message) bool {
		return msg.Template == tmpl && msg.To == to
	})
}

type publishedEvent struct {
	Topic   uuid.UUID
	Event   string
	Payload any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic uuid.UUID, event string, payload any) {
	p.events = append(p.events, publishedEvent{Topic: topic, Event: event, Payload: payload})
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n NewNotification) (*models.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

// notified matches a NewNotification by recipient and type.
func notified(companyID uuid.UUID, typ models.NotificationType) any {
	return mock.MatchedBy(func(n NewNotification) bool {
		return n.CompanyID == companyID && n.Type == typ
	})
}
