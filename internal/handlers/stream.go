package handlers

import (
	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// streamEvents registers client with hub and relays its messages as SSE
// until the client goes away or the hub closes the channel. hello is merged
// into the initial "connected" system event.
func streamEvents(c *drift.Context, hub HubInterface, client *sse.Client, log logrus.FieldLogger, hello map[string]any) {
	sseCtx := c.SSE()

	hub.Register(client)
	defer hub.Unregister(client)

	greeting := map[string]any{"type": "connected", "client_id": client.ID}
	for k, v := range hello {
		greeting[k] = v
	}
	if err := sseCtx.SendJSON(greeting, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				log.WithError(err).WithField("client_id", client.ID).Debug("event stream closed")
				return
			}
		case <-done:
			return
		}
	}
}
