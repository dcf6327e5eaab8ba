package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJWTService is the token service the auth middleware is built with in
// handler tests.
func TestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key-for-testing-only", 15*time.Minute, 24*time.Hour)
}

// TestUser returns an unsaved user belonging to a fresh company.
func TestUser(role string) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "buyer@example.com",
		Name:      "Test Buyer",
		CompanyID: uuid.New(),
		Role:      role,
	}
}

// BearerToken signs an access token for user with TestJWTService.
func BearerToken(t *testing.T, user *models.User) string {
	t.Helper()
	pair, err := TestJWTService().GenerateTokenPair(user)
	require.NoError(t, err, "sign test token")
	return "Bearer " + pair.AccessToken
}

// HTTPTestClient sends JSON requests straight into a handler.
type HTTPTestClient struct {
	t       *testing.T
	handler http.Handler
	user    *models.User
}

func NewHTTPTestClient(t *testing.T, handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{t: t, handler: handler}
}

// As returns a client whose requests carry user's bearer token. A nil user
// sends anonymous requests.
func (c *HTTPTestClient) As(user *models.User) *HTTPTestClient {
	return &HTTPTestClient{t: c.t, handler: c.handler, user: user}
}

// Do encodes body as JSON when it is not nil and records the response.
func (c *HTTPTestClient) Do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err, "encode request body")
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != nil {
		req.Header.Set("Authorization", BearerToken(c.t, c.user))
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

// ParseJSON decodes the response body into v.
func ParseJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "decode response: %s", rec.Body.String())
}

// AssertJSON checks the listed top-level fields of a JSON object body.
// Numbers decode as float64.
func AssertJSON(t *testing.T, rec *httptest.ResponseRecorder, expected map[string]any) {
	t.Helper()
	var actual map[string]any
	ParseJSON(t, rec, &actual)

	for key, want := range expected {
		got, ok := actual[key]
		if assert.True(t, ok, "field %q missing from %s", key, rec.Body.String()) {
			assert.Equal(t, want, got, "field %q", key)
		}
	}
}
