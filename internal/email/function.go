package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dimitrije/boltstax-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// FunctionSender posts messages to the hosted send-email function, which
// renders the template and hands it to the mail provider.
type FunctionSender struct {
	url    string
	client *http.Client
}

func NewFunctionSender(cfg config.EmailFunctionConfig) *FunctionSender {
	base := &http.Client{Timeout: cfg.Timeout}
	client := base

	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		client = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
		client.Timeout = cfg.Timeout
	}

	return &FunctionSender{url: cfg.URL, client: client}
}

type functionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *FunctionSender) Send(ctx context.Context, msg Message) error {
	if s.url == "" {
		return ErrConfigurationMissing
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(body))
	}

	var out functionResponse
	if len(body) > 0 && json.Unmarshal(body, &out) == nil && !out.Success && out.Error != "" {
		return fmt.Errorf("%w: %s", ErrDelivery, out.Error)
	}
	return nil
}
