package middleware

import (
	"time"

	"github.com/dimitrije/boltstax-api/internal/metrics"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request after the handler chain returns and
// records its duration. Capability tokens are never logged.
func RequestLogger(log logrus.FieldLogger, m *metrics.Metrics) drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		m.ObserveRequest(c.Request.Method, duration)

		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": c.Request.RemoteAddr,
		}
		if userID := GetUserID(c); userID != uuid.Nil {
			fields["user_id"] = userID
		}
		log.WithFields(fields).Info("request processed")
	}
}
