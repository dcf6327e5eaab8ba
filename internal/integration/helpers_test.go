//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/testutil"
	"github.com/google/uuid"
)

// recordingSender keeps every message and fails when err is set.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}

// recordingPublisher stands in for the SSE hub.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ uuid.UUID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

var errSMTPDown = errors.New("smtp: connection refused")

type env struct {
	db        *testutil.TestDB
	fixtures  *testutil.Fixtures
	sender    *recordingSender
	publisher *recordingPublisher

	companies     *services.CompanyService
	compliance    *services.ComplianceService
	invites       *services.InviteService
	notifications *services.NotificationService
	responses     *services.ResponseService
	sheets        *services.SheetService
	tokens        *services.TokenService
	users         *services.UserService
}

func setup(t *testing.T) *env {
	t.Helper()
	tdb := testutil.SetupTestDB(t)
	log := logger.Discard()

	e := &env{
		db:        tdb,
		fixtures:  testutil.NewFixtures(tdb.DB),
		sender:    &recordingSender{},
		publisher: &recordingPublisher{},
	}
	e.companies = services.NewCompanyService(tdb.DB, log)
	e.invites = services.NewInviteService(tdb.DB, e.sender, nil, log, "https://app.boltstax.test")
	e.responses = services.NewResponseService(tdb.DB, e.sender, e.publisher, nil, log, "https://app.boltstax.test")
	e.sheets = services.NewSheetService(tdb.DB, e.sender, e.responses, nil, log, "https://app.boltstax.test")
	e.tokens = services.NewTokenService(tdb.DB)
	e.users = services.NewUserService(tdb.DB, log)
	e.compliance = services.NewComplianceService(tdb.DB, log)
	e.notifications = services.NewNotificationService(tdb.DB, e.publisher, log)
	e.invites.UseNotifier(e.notifications)
	e.sheets.UseNotifier(e.notifications)
	e.responses.UseNotifier(e.notifications)
	return e
}
