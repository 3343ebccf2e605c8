package sse

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/patch"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("expected 0 clients, got %d", n)
	}

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("expected 1 client, got %d", n)
	}

	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("expected 0 clients after unsubscribe, got %d", n)
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in message: %s", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in message: %s", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishPatchEvent(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	p := patch.New("inbox/idea.md", "rewrite", "normalize whitespace", nil, "abc123")
	b.PublishPatchEvent("patch.created", p)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: patch.created") {
			t.Errorf("missing event type in message: %s", s)
		}
		if !strings.Contains(s, p.ID) {
			t.Errorf("missing patch id in message: %s", s)
		}
		if !strings.Contains(s, `"note_path":"inbox/idea.md"`) {
			t.Errorf("missing note path in message: %s", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for patch event")
	}
}

func TestPublishSuggestions(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSuggestions("think.md", 3)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: suggestions.ready") {
			t.Errorf("missing event type in message: %s", s)
		}
		if !strings.Contains(s, `"path":"think.md"`) {
			t.Errorf("missing path in message: %s", s)
		}
		if !strings.Contains(s, `"count":3`) {
			t.Errorf("missing count in message: %s", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for suggestions event")
	}
}

// drainCounts empties ch without blocking and tallies note and graph events.
func drainCounts(ch chan []byte) (noteEvents, graphEvents int) {
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "event: note.") {
				noteEvents++
			}
			if strings.Contains(s, "event: graph.updated") {
				graphEvents++
			}
		default:
			return
		}
	}
}

func TestPublishNoteEvent_GraphThrottle(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Two note events in quick succession: each emits a note event, but only
	// the first carries an immediate graph.updated broadcast.
	b.PublishNoteEvent("created", "a.md")
	b.PublishNoteEvent("updated", "a.md")

	time.Sleep(50 * time.Millisecond)

	noteEvents, graphEvents := drainCounts(ch)
	if noteEvents != 2 {
		t.Errorf("expected 2 note events, got %d", noteEvents)
	}
	if graphEvents != 1 {
		t.Errorf("expected 1 graph event (throttled), got %d", graphEvents)
	}

	// The suppressed broadcast fires at the end of the throttle window so
	// clients converge on the final graph state.
	time.Sleep(450 * time.Millisecond)
	_, trailing := drainCounts(ch)
	if trailing != 1 {
		t.Errorf("expected 1 trailing graph event after the window, got %d", trailing)
	}
}

func TestPublishNoteEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("renamed", "a.md")
	time.Sleep(50 * time.Millisecond)

	if notes, graphs := drainCounts(ch); notes != 0 || graphs != 0 {
		t.Errorf("unknown kind produced events: notes=%d graphs=%d", notes, graphs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the handler goroutine to register its subscription.
	deadline := time.After(2 * time.Second)
	for b.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client never subscribed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after context cancel")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("response missing event, got: %s", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("wrong content type: %s", got)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	// Subscriber that never reads; its buffer (64) fills and further
	// broadcasts must be dropped without blocking the broker loop.
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 70; i++ {
			b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "spam.md"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("publishing blocked on a slow client")
	}
}

func TestSlowClientEvicted(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	// A subscriber that never reads. Once its buffer fills, each broadcast
	// counts as a consecutive drop until the broker cuts it loose.
	slow := b.Subscribe()

	for i := 0; i < clientBuffer+maxClientDrops; i++ {
		b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "spam.md"}})
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not evicted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The channel was closed behind the buffered backlog; a reconnecting
	// EventSource would refetch and start from a fresh view.
	drainDeadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-slow:
			if !ok {
				return
			}
		case <-drainDeadline:
			t.Fatal("evicted channel never closed")
		}
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after broker Close")
	}

	// Operations after close must not panic or block.
	b.Publish(Event{Type: "note.created", Data: nil})
	b.PublishNoteEvent("created", "a.md")
	b.PublishPatchEvent("patch.created", patch.New("a.md", "summarize", "", nil, "h"))
	b.PublishSuggestions("a.md", 1)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("expected 0 clients after close, got %d", n)
	}

	ch2 := b.Subscribe()
	select {
	case _, ok := <-ch2:
		if ok {
			t.Fatal("expected closed channel from post-close subscribe")
		}
	default:
		t.Fatal("post-close subscribe returned open channel")
	}

	// Close is idempotent.
	b.Close()
}
