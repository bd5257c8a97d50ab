// Package sse implements a Server-Sent Events broker that streams vault
// change notifications to connected clients.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is a single SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NotePayload is the data body of note.* events.
type NotePayload struct {
	Path string `json:"path"`
}

type noteChange struct {
	kind string // created, updated or deleted
	path string
}

// Broker fans vault events out to SSE clients.
//
// A single loop goroutine owns all mutable state (the client set and the
// graph throttle timestamp). Public methods talk to the loop through
// channels, so the type needs no mutex.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan noteChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. graphThrottle bounds how often a
// graph.updated event may follow note changes.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan noteChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func formatEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastGraph time.Time

	broadcast := func(ev Event) {
		raw, err := formatEvent(ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop the event rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			broadcast(ev)

		case ch := <-b.changeCh:
			switch ch.kind {
			case "created", "updated", "deleted":
				broadcast(Event{Type: "note." + ch.kind, Data: NotePayload{Path: ch.path}})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: "graph.updated", Data: struct{}{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client and returns its message channel. The
// channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an arbitrary event to all clients.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishNoteEvent broadcasts a note change plus, at most once per
// throttle interval, a graph.updated event. kind matches the vault
// watcher callback kinds.
func (b *Broker) PublishNoteEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- noteChange{kind: kind, path: path}:
	case <-b.stopped:
	}
}

const keepAliveInterval = 30 * time.Second

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
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
