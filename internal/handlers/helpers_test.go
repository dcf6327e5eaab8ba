package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/testutil"
)

// serve sends a JSON request through app, authenticated as user when user
// is not nil.
func serve(t *testing.T, app http.Handler, method, path string, body any, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.NewHTTPTestClient(t, app).As(user).Do(method, path, body)
}
