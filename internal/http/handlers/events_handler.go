// Change event stream (Server-Sent Events).
//
// GET /events streams every committed catalog change to the client as SSE
// frames. Each frame's event name is the change kind and its data is the
// JSON payload (full recipe snapshot, rating aggregate, profile, or
// homepage view). Subscribers that stop reading are dropped by the bus
// rather than allowed to stall publishers; clients recover by reconnecting
// and refetching, using each event's version to discard stale frames.
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/events"
)

// EventsHandler streams bus events over SSE.
type EventsHandler struct {
	Bus *events.Bus
	// Heartbeat is the keepalive comment interval. Zero means 25s.
	Heartbeat time.Duration
}

// Stream godoc
// @ID          streamEvents
// @Summary     Subscribe to catalog change events
// @Description Server-Sent Events stream of recipe, rating, profile, and homepage changes. Slow consumers are disconnected.
// @Tags        Events
// @Produce     text/event-stream
// @Success     200  {string} string "event stream"
// @Router      /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	sub := h.Bus.Subscribe()
	defer h.Bus.Unsubscribe(sub.ID)

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	// The server-wide write deadline would sever long-lived streams; clear it
	// for this response only. Errors are ignored on writers that do not
	// support deadlines (httptest recorders).
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-sub.C:
			if !open {
				// Dropped for falling behind, or the bus shut down.
				return false
			}
			_ = sse.Encode(w, sse.Event{
				Event: string(ev.Kind),
				Id:    ev.RecipeID,
				Data:  ev,
			})
			return true
		case <-ticker.C:
			// Comment frame keeps intermediaries from closing idle streams.
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		case <-ctx.Done():
			return false
		}
	})
	c.Status(http.StatusOK)
}
