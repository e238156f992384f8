package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipe-backend/internal/events"
)

// closeNotifyRecorder implements http.CloseNotifier, which gin's
// Context.Stream requires of the response writer.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestEventsStream_DeliversFramesUntilDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bus := events.NewBus(8)
	t.Cleanup(bus.Close)

	h := &EventsHandler{Bus: bus, Heartbeat: time.Hour}
	r := gin.New()
	r.GET("/events", h.Stream)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := newCloseNotifyRecorder()

	// The handler subscribes when it starts serving; publish once it is
	// running, then cancel the request to end the stream.
	go func() {
		time.Sleep(50 * time.Millisecond)
		bus.Publish(events.Event{Kind: events.KindRated, RecipeID: "recipe-1", Version: 3})
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	r.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event:rated") {
		t.Fatalf("missing event frame in body:\n%s", body)
	}
	if !strings.Contains(body, "id:recipe-1") {
		t.Fatalf("missing id field in body:\n%s", body)
	}
	if !strings.Contains(body, `"version":3`) {
		t.Fatalf("missing version in data payload:\n%s", body)
	}
}

func TestEventsStream_EndsWhenBusCloses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bus := events.NewBus(2)

	h := &EventsHandler{Bus: bus, Heartbeat: time.Hour}
	r := gin.New()
	r.GET("/events", h.Stream)

	go func() {
		time.Sleep(50 * time.Millisecond)
		bus.Close()
	}()

	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after bus shutdown")
	}
}
