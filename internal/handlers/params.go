package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// paramID parses a uuid path parameter and answers 400 when it is malformed.
func paramID(c *drift.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.BadRequest("invalid " + label + " id")
		return uuid.Nil, false
	}
	return id, true
}

// callerCompany returns the authenticated user's company or answers 401.
func callerCompany(c *drift.Context) (uuid.UUID, bool) {
	companyID := middleware.GetCompanyID(c)
	if companyID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return uuid.Nil, false
	}
	return companyID, true
}

// queryList splits a comma separated query parameter, dropping blanks.
func queryList(c *drift.Context, name string) []string {
	var out []string
	for _, v := range strings.Split(c.QueryParam(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func queryBool(c *drift.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

func queryInt(c *drift.Context, name string, fallback int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// queryTime parses an optional RFC 3339 query parameter and answers 400
// when it is malformed.
func queryTime(c *drift.Context, name string) (*time.Time, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.BadRequest("invalid " + name + " time")
		return nil, false
	}
	return &t, true
}
