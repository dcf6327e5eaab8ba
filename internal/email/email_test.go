package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/config"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMessage() Message {
	return Message{
		To:       "supplier@example.com",
		Template: TemplateSheetCreated,
		Data: Data{
			SupplierName: "Acme Metals",
			SheetName:    "Bolt M8",
			DueDate:      "2026-11-01",
			AccessURL:    "https://app.example.com/sheets/1?token=abc",
		},
	}
}

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, validMessage().Validate())

	msg := validMessage()
	msg.To = "not-an-address"
	assert.ErrorIs(t, msg.Validate(), ErrInvalidRecipient)

	msg = validMessage()
	msg.Template = "WELCOME"
	assert.ErrorIs(t, msg.Validate(), ErrUnknownTemplate)

	msg = validMessage()
	msg.Data = Data{}
	assert.ErrorIs(t, msg.Validate(), ErrMissingData)

	msg = validMessage()
	msg.To = ""
	assert.ErrorIs(t, msg.Validate(), ErrMissingData)
}

func TestRender_SheetCreated(t *testing.T) {
	subject, body, err := Render(validMessage())
	require.NoError(t, err)

	assert.Equal(t, "New Product Sheet Questionnaire", subject)
	assert.Contains(t, body, "Hello Acme Metals,")
	assert.Contains(t, body, "Please complete it by: 2026-11-01")
	assert.Contains(t, body, `href="https://app.example.com/sheets/1?token=abc"`)
}

func TestRender_EscapesData(t *testing.T) {
	msg := validMessage()
	msg.Data.SheetName = `<script>alert(1)</script>`

	_, body, err := Render(msg)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRender_NoDueDate(t *testing.T) {
	msg := validMessage()
	msg.Data.DueDate = ""

	_, body, err := Render(msg)
	require.NoError(t, err)
	assert.NotContains(t, body, "Please complete it by")
}

func TestInvitationTemplate(t *testing.T) {
	assert.Equal(t, TemplateCustomerInvitation, InvitationTemplate("customer"))
	assert.Equal(t, TemplateSupplierInvitation, InvitationTemplate("supplier"))
}

func TestSMTPSender_IsConfigured(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "noreply@example.com"}
	assert.True(t, NewSMTPSender(cfg).IsConfigured())

	cfg.Password = ""
	s := NewSMTPSender(cfg)
	assert.False(t, s.IsConfigured())
	assert.ErrorIs(t, s.Send(context.Background(), validMessage()), ErrConfigurationMissing)
}

func TestSMTPSender_Send(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "noreply@example.com"}
	s := NewSMTPSender(cfg)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), validMessage()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"supplier@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: New Product Sheet Questionnaire")

	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.ErrorIs(t, s.Send(context.Background(), validMessage()), ErrDelivery)
}

func TestFunctionSender_Send(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	s := NewFunctionSender(config.EmailFunctionConfig{URL: srv.URL, Timeout: time.Second})

	require.NoError(t, s.Send(context.Background(), validMessage()))
	assert.Equal(t, TemplateSheetCreated, received.Template)
	assert.Equal(t, "Bolt M8", received.Data.SheetName)
}

func TestFunctionSender_UsesClientCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fn-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var auth string
	fnSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer fnSrv.Close()

	s := NewFunctionSender(config.EmailFunctionConfig{
		URL:          fnSrv.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "boltstax",
		ClientSecret: "secret",
		Timeout:      time.Second,
	})

	require.NoError(t, s.Send(context.Background(), validMessage()))
	assert.Equal(t, "Bearer fn-token", auth)
}

func TestFunctionSender_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "SendGrid configuration is missing", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewFunctionSender(config.EmailFunctionConfig{URL: srv.URL, Timeout: time.Second})

	err := s.Send(context.Background(), validMessage())
	assert.ErrorIs(t, err, ErrDelivery)
	assert.Contains(t, err.Error(), "SendGrid configuration is missing")
}

func TestFunctionSender_RejectsBeforeCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewFunctionSender(config.EmailFunctionConfig{URL: srv.URL, Timeout: time.Second})
	msg := validMessage()
	msg.To = "bad@address"

	assert.ErrorIs(t, s.Send(context.Background(), msg), ErrInvalidRecipient)
	assert.False(t, called)
}

func TestNewSender(t *testing.T) {
	log := logger.Discard()

	cfg := &config.Config{Env: "development", EmailFunction: config.EmailFunctionConfig{URL: "http://fn"}}
	assert.IsType(t, &FunctionSender{}, NewSender(cfg, log))

	cfg = &config.Config{Env: "development", SMTP: config.SMTPConfig{Host: "h", Username: "u", Password: "p", From: "f@x.io"}}
	assert.IsType(t, &SMTPSender{}, NewSender(cfg, log))

	cfg = &config.Config{Env: "development"}
	assert.IsType(t, &LogSender{}, NewSender(cfg, log))

	cfg = &config.Config{Env: "production"}
	assert.ErrorIs(t, NewSender(cfg, log).Send(context.Background(), validMessage()), ErrConfigurationMissing)
}
