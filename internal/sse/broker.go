// Package sse implements a Server-Sent Events broker for real-time updates.
//
// The engine publishes four families of events: note.* (file changes seen by
// the watcher), graph.updated (throttled, piggybacked on note events),
// patch.* (patch lifecycle), and suggestions.ready (fresh analyzer results).
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/patch"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type noteEventReq struct {
	kind string
	path string
}

const (
	// clientBuffer is the per-subscriber channel capacity.
	clientBuffer = 64

	// maxClientDrops is how many consecutive sends may fail against a full
	// subscriber buffer before the broker closes the connection. A client
	// that has stopped reading is better cut loose: EventSource reconnects
	// and refetches, whereas silently dropped events leave it with a stale
	// view forever.
	maxClientDrops = 8
)

// Broker fans events out to SSE subscribers.
//
// A single loop goroutine owns all mutable state: the subscriber map with
// its per-client drop counters and the graph throttle clock. Public methods
// talk to the loop over channels.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// Map value counts consecutive failed sends against a full buffer.
	clients := make(map[chan []byte]int)
	var lastGraph time.Time

	// graphTimer defers a trailing graph.updated when note events arrive
	// inside the throttle window, so clients converge after a burst.
	var graphTimer *time.Timer
	var graphCh <-chan time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, drops := range clients {
			select {
			case ch <- raw:
				if drops != 0 {
					clients[ch] = 0
				}
			default:
				drops++
				clients[ch] = drops
				if drops >= maxClientDrops {
					delete(clients, ch)
					close(ch)
				}
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			if graphTimer != nil {
				graphTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case <-graphCh:
			graphTimer = nil
			graphCh = nil
			lastGraph = time.Now()
			broadcast(Event{Type: "graph.updated", Data: map[string]string{}})

		case ch := <-b.subscribeCh:
			clients[ch] = 0

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.noteEventCh:
			switch req.kind {
			case "created", "updated", "deleted":
			default:
				continue
			}
			broadcast(Event{Type: "note." + req.kind, Data: map[string]string{"path": req.path}})

			// Any note change may have moved graph edges; tell clients to
			// refetch, at most once per throttle window. A suppressed
			// broadcast is deferred to the end of the window instead of
			// dropped.
			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: "graph.updated", Data: map[string]string{}})
			} else if graphTimer == nil {
				graphTimer = time.NewTimer(b.graphMin - now.Sub(lastGraph))
				graphCh = graphTimer.C
			}

		case resp := <-b.countReqCh:
			// Served by the loop so a count requested after Subscribe
			// returns always sees that subscription.
			resp <- len(clients)
		}
	}
}

// send delivers v to one of the broker loop's channels, reporting false when
// the broker has already stopped. All public methods funnel through it.
func send[T any](b *Broker, ch chan<- T, v T) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.stopped:
		return false
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The channel arrives
// closed when the broker has already stopped.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !send(b, b.subscribeCh, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	send(b, b.unsubscribeCh, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !send(b, b.countReqCh, resp) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	send(b, b.publishCh, event)
}

// PublishNoteEvent publishes a note change and a throttled graph.updated event.
// kind is one of created, updated, deleted.
func (b *Broker) PublishNoteEvent(kind, path string) {
	send(b, b.noteEventCh, noteEventReq{kind: kind, path: path})
}

// PublishPatchEvent broadcasts a patch lifecycle event (patch.created,
// patch.applied, patch.rejected) with the full patch as payload, so editors
// can surface pending patches without polling.
func (b *Broker) PublishPatchEvent(kind string, p *patch.Patch) {
	b.Publish(Event{Type: kind, Data: p})
}

// PublishSuggestions announces a fresh analyzer result for a note. Clients
// fetch the suggestions themselves; the event only carries the count.
func (b *Broker) PublishSuggestions(path string, count int) {
	b.Publish(Event{Type: "suggestions.ready", Data: map[string]any{
		"path":  path,
		"count": count,
	}})
}

// keepAliveInterval is how often an idle SSE connection gets a comment
// line. Streams can sit silent for minutes between analyzer runs, and
// intermediaries drop connections that look dead.
const keepAliveInterval = 25 * time.Second

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	// Tell buffering reverse proxies (nginx) to pass events through.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
