package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var inviteCols = []string{"code", "inviting_company_id", "target_company_id", "email", "name", "contact_name", "role", "tags", "notes", "status", "used_at", "used_by", "created_at"}

func setupInviteService(t *testing.T) (*InviteService, pgxmock.PgxPoolIface, *mockSender) {
	t.Helper()
	db, pool := newMockDB(t)
	sender := &mockSender{}
	t.Cleanup(func() { sender.AssertExpectations(t) })
	return NewInviteService(db, sender, nil, testLog(), "https://app.boltstax.test/"), pool, sender
}

func supplierInvite() InviteRequest {
	return InviteRequest{
		Name:           "Fresh Farms",
		ContactName:    "Bob",
		PrimaryContact: "bob@farms.test",
		Tags:           []string{"food"},
	}
}

func expectInviteTx(pool pgxmock.PgxPoolIface, inviter uuid.UUID) {
	pool.ExpectQuery(`SELECT name FROM companies WHERE id = \$1`).
		WithArgs(inviter).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Acme"))
	pool.ExpectBegin()
	pool.ExpectExec(`INSERT INTO companies`).
		WithArgs(pgxmock.AnyArg(), "Fresh Farms", "Bob", "bob@farms.test", models.CompanyStatusPendingInvitation,
			[]string{"food"}, (*string)(nil), []uuid.UUID{}, []uuid.UUID{inviter}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO invites`).
		WithArgs(pgxmock.AnyArg(), inviter, pgxmock.AnyArg(), "bob@farms.test", "Fresh Farms", "Bob",
			models.RoleSupplier, []string{"food"}, (*string)(nil), models.InviteStatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`UPDATE companies SET suppliers = CASE`).
		WithArgs(inviter, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectCommit()
}

func TestInviteService_InviteEntity(t *testing.T) {
	svc, pool, sender := setupInviteService(t)
	inviter := uuid.New()

	expectInviteTx(pool, inviter)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.Template == email.TemplateSupplierInvitation &&
			msg.To == "bob@farms.test" &&
			msg.Data.CompanyName == "Acme"
	})).Return(nil)
	pool.ExpectExec(`UPDATE companies SET status = \$2`).
		WithArgs(pgxmock.AnyArg(), models.CompanyStatusInvitationSent, models.CompanyStatusPendingInvitation).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	result, err := svc.InviteEntity(context.Background(), supplierInvite(), inviter, models.RoleSupplier)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.InviteCode)
	assert.NotEqual(t, result.InviteCode, result.TargetCompanyID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_InviteEntity_NotifiesInviter(t *testing.T) {
	svc, pool, sender := setupInviteService(t)
	notifier := &mockNotifier{}
	svc.UseNotifier(notifier)
	inviter := uuid.New()

	expectInviteTx(pool, inviter)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	pool.ExpectExec(`UPDATE companies SET status = \$2`).
		WithArgs(pgxmock.AnyArg(), models.CompanyStatusInvitationSent, models.CompanyStatusPendingInvitation).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	notifier.On("Notify", mock.Anything, notified(inviter, models.NotificationSupplierInvited)).
		Return(&models.Notification{ID: uuid.New()}, nil)

	result, err := svc.InviteEntity(context.Background(), supplierInvite(), inviter, models.RoleSupplier)

	require.NoError(t, err)
	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n NewNotification) bool {
		return n.SupplierID == result.TargetCompanyID
	}))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_InviteEntity_EmailFailureCompensates(t *testing.T) {
	svc, pool, sender := setupInviteService(t)
	inviter := uuid.New()

	expectInviteTx(pool, inviter)
	sender.On("Send", mock.Anything, sentTemplate(email.TemplateSupplierInvitation, "bob@farms.test")).
		Return(email.ErrDelivery)
	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM invites WHERE code = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec(`UPDATE companies SET suppliers = array_remove`).
		WithArgs(inviter, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`DELETE FROM companies WHERE id = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectCommit()

	result, err := svc.InviteEntity(context.Background(), supplierInvite(), inviter, models.RoleSupplier)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.ErrorIs(t, err, email.ErrDelivery)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_InviteEntity_CompensationFailureIsJoined(t *testing.T) {
	svc, pool, sender := setupInviteService(t)
	inviter := uuid.New()

	expectInviteTx(pool, inviter)
	sender.On("Send", mock.Anything, mock.Anything).Return(email.ErrDelivery)
	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM invites`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	pool.ExpectRollback()

	_, err := svc.InviteEntity(context.Background(), supplierInvite(), inviter, models.RoleSupplier)

	assert.ErrorIs(t, err, ErrEmailDelivery)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_InviteEntity_TxFailureSendsNothing(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	inviter := uuid.New()

	pool.ExpectQuery(`SELECT name FROM companies`).
		WithArgs(inviter).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Acme"))
	pool.ExpectBegin()
	pool.ExpectExec(`INSERT INTO companies`).
		WithArgs(pgxmock.AnyArg(), "Fresh Farms", "Bob", "bob@farms.test",
			models.CompanyStatusPendingInvitation, []string{"food"}, (*string)(nil), []uuid.UUID{}, []uuid.UUID{inviter}).
		WillReturnError(assert.AnError)
	pool.ExpectRollback()

	_, err := svc.InviteEntity(context.Background(), supplierInvite(), inviter, models.RoleSupplier)

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_InviteEntity_ValidationBeforeStore(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	req := supplierInvite()
	req.PrimaryContact = "not-an-email"

	_, err := svc.InviteEntity(context.Background(), req, uuid.New(), models.RoleSupplier)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "primary_contact", verr.Fields[0].Field)

	_, err = svc.InviteEntity(context.Background(), supplierInvite(), uuid.New(), "partner")
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_GetInviteData_NotFound(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	code := uuid.New()

	pool.ExpectQuery(`SELECT .+ FROM invites WHERE code = \$1`).
		WithArgs(code).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetInviteData(context.Background(), code)

	assert.ErrorIs(t, err, ErrInviteNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func addInviteRow(rows *pgxmock.Rows, code, inviter, target uuid.UUID, status models.InviteStatus, tags []string) *pgxmock.Rows {
	return rows.AddRow(code, inviter, target, "bob@farms.test", "Fresh Farms", "Bob", models.RoleSupplier,
		tags, (*string)(nil), status, (*time.Time)(nil), (*uuid.UUID)(nil), time.Now())
}

func TestInviteService_RedeemInvite(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	code, inviter, target, userID, questionID := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	pool.ExpectQuery(`SELECT .+ FROM invites WHERE code`).
		WithArgs(code).
		WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{"food"}))
	pool.ExpectQuery(`SELECT id FROM questions WHERE required AND tags && \$1`).
		WithArgs([]string{"food"}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(questionID))
	pool.ExpectBegin()
	pool.ExpectQuery(`INSERT INTO users`).
		WithArgs("bob@farms.test", "Bob", pgxmock.AnyArg(), target, models.UserRoleAdmin).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, "bob@farms.test", "Bob", "hash", target, models.UserRoleAdmin, now, now))
	pool.ExpectExec(`UPDATE invites SET status = \$2`).
		WithArgs(code, models.InviteStatusUsed, userID, models.InviteStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`UPDATE companies SET status = \$2, registered_at`).
		WithArgs(target, models.CompanyStatusRegistered).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`INSERT INTO supplier_answers`).
		WithArgs(target, code, questionID, []byte(`"organic"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	user, err := svc.RedeemInvite(context.Background(), code,
		RedeemInput{Email: "BOB@farms.test", Password: "correct-horse", Name: "Bob"},
		[]AnswerInput{{QuestionID: questionID, Value: []byte(`"organic"`)}})

	require.NoError(t, err)
	assert.Equal(t, target, user.CompanyID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_RedeemInvite_NotifiesInviter(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	notifier := &mockNotifier{}
	svc.UseNotifier(notifier)
	code, inviter, target, userID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	pool.ExpectQuery(`SELECT .+ FROM invites WHERE code`).
		WithArgs(code).
		WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{}))
	pool.ExpectBegin()
	pool.ExpectQuery(`INSERT INTO users`).
		WithArgs("bob@farms.test", "Bob", pgxmock.AnyArg(), target, models.UserRoleAdmin).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(userID, "bob@farms.test", "Bob", "hash", target, models.UserRoleAdmin, now, now))
	pool.ExpectExec(`UPDATE invites SET status = \$2`).
		WithArgs(code, models.InviteStatusUsed, userID, models.InviteStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`UPDATE companies SET status = \$2, registered_at`).
		WithArgs(target, models.CompanyStatusRegistered).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectCommit()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n NewNotification) bool {
		return n.CompanyID == inviter && n.Type == models.NotificationSupplierJoined && n.SupplierID == target
	})).Return(&models.Notification{ID: uuid.New()}, nil)

	_, err := svc.RedeemInvite(context.Background(), code,
		RedeemInput{Email: "bob@farms.test", Password: "correct-horse", Name: "Bob"}, nil)

	require.NoError(t, err)
	notifier.AssertExpectations(t)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_RedeemInvite_Rejections(t *testing.T) {
	code, inviter, target := uuid.New(), uuid.New(), uuid.New()
	signup := RedeemInput{Email: "bob@farms.test", Password: "correct-horse", Name: "Bob"}

	t.Run("email mismatch", func(t *testing.T) {
		svc, pool, _ := setupInviteService(t)
		pool.ExpectQuery(`SELECT .+ FROM invites`).
			WithArgs(code).
			WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{}))

		in := signup
		in.Email = "eve@farms.test"
		_, err := svc.RedeemInvite(context.Background(), code, in, nil)

		assert.ErrorIs(t, err, ErrEmailMismatch)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("already used", func(t *testing.T) {
		svc, pool, _ := setupInviteService(t)
		pool.ExpectQuery(`SELECT .+ FROM invites`).
			WithArgs(code).
			WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusUsed, []string{}))

		_, err := svc.RedeemInvite(context.Background(), code, signup, nil)

		assert.ErrorIs(t, err, ErrInviteUsed)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("required answer missing", func(t *testing.T) {
		svc, pool, _ := setupInviteService(t)
		questionID := uuid.New()
		pool.ExpectQuery(`SELECT .+ FROM invites`).
			WithArgs(code).
			WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{"food"}))
		pool.ExpectQuery(`SELECT id FROM questions`).
			WithArgs([]string{"food"}).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(questionID))

		_, err := svc.RedeemInvite(context.Background(), code, signup,
			[]AnswerInput{{QuestionID: questionID, Value: []byte(`""`)}})

		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "answers."+questionID.String(), verr.Fields[0].Field)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("redeemed concurrently", func(t *testing.T) {
		svc, pool, _ := setupInviteService(t)
		now := time.Now()
		pool.ExpectQuery(`SELECT .+ FROM invites`).
			WithArgs(code).
			WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{}))
		pool.ExpectBegin()
		pool.ExpectQuery(`INSERT INTO users`).
			WithArgs("bob@farms.test", "Bob", pgxmock.AnyArg(), target, models.UserRoleAdmin).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(uuid.New(), "bob@farms.test", "Bob", "hash", target, models.UserRoleAdmin, now, now))
		pool.ExpectExec(`UPDATE invites`).
			WithArgs(code, models.InviteStatusUsed, pgxmock.AnyArg(), models.InviteStatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		pool.ExpectRollback()

		_, err := svc.RedeemInvite(context.Background(), code, signup, nil)

		assert.ErrorIs(t, err, ErrInviteUsed)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestInviteService_Resend(t *testing.T) {
	svc, pool, sender := setupInviteService(t)
	code, inviter, target := uuid.New(), uuid.New(), uuid.New()

	pool.ExpectQuery(`SELECT .+ FROM invites`).
		WithArgs(code).
		WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, inviter, target, models.InviteStatusPending, []string{}))
	pool.ExpectQuery(`SELECT name FROM companies`).
		WithArgs(inviter).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Acme"))
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.Data.AccessURL == "https://app.boltstax.test/signup?invite="+code.String()
	})).Return(nil)

	assert.NoError(t, svc.Resend(context.Background(), code, inviter))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInviteService_Resend_OtherCompany(t *testing.T) {
	svc, pool, _ := setupInviteService(t)
	code := uuid.New()

	pool.ExpectQuery(`SELECT .+ FROM invites`).
		WithArgs(code).
		WillReturnRows(addInviteRow(pgxmock.NewRows(inviteCols), code, uuid.New(), uuid.New(), models.InviteStatusPending, []string{}))

	assert.ErrorIs(t, svc.Resend(context.Background(), code, uuid.New()), ErrInviteNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}
