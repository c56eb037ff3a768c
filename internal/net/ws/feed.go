// Package ws streams published log events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/XutaxKamay/css-enhanced-waf/internal/telemetry"
	"github.com/XutaxKamay/css-enhanced-waf/logging"
	"github.com/XutaxKamay/css-enhanced-waf/logging/network"
)

const (
	defaultQueue = 64
	writeWait    = 5 * time.Second
)

// FeedConfig tunes the event feed.
type FeedConfig struct {
	Logger telemetry.Logger
	// Queue is the per-subscriber backlog; events beyond it are dropped for
	// that subscriber only.
	Queue int
}

// Feed is a logging sink that forwards every event it receives to the
// connected websocket clients. The feed is read-only: client messages are
// discarded.
type Feed struct {
	logger   telemetry.Logger
	queue    int
	upgrader websocket.Upgrader

	mu          sync.Mutex
	publisher   logging.Publisher
	subscribers map[*subscriber]struct{}
	closed      bool
}

type subscriber struct {
	remote   string
	category string
	send     chan []byte
	dropped  uint64
}

type feedMessage struct {
	Type     logging.EventType   `json:"type"`
	Tick     uint64              `json:"tick"`
	Time     string              `json:"time"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
	TraceID  string              `json:"traceId,omitempty"`
}

// NewFeed constructs an idle feed.
func NewFeed(cfg FeedConfig) *Feed {
	queue := cfg.Queue
	if queue <= 0 {
		queue = defaultQueue
	}
	return &Feed{
		logger: telemetry.WithPrefix(cfg.Logger, "[feed] "),
		queue:  queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		publisher:   logging.NopPublisher(),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Attach sets the publisher subscription changes are reported to. The feed is
// usually a sink of that same publisher, so it is wired after construction.
func (f *Feed) Attach(pub logging.Publisher) {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	f.mu.Lock()
	f.publisher = pub
	f.mu.Unlock()
}

// Subscribers reports the number of connected clients.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Write satisfies logging.Sink.
func (f *Feed) Write(event logging.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.subscribers) == 0 {
		return nil
	}

	data, err := json.Marshal(feedMessage{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.Format(time.RFC3339Nano),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
		TraceID:  event.TraceID,
	})
	if err != nil {
		return err
	}
	for sub := range f.subscribers {
		if sub.category != "" && sub.category != event.Category {
			continue
		}
		select {
		case sub.send <- data:
		default:
			sub.dropped++
		}
	}
	return nil
}

// Close disconnects every subscriber.
func (f *Feed) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for sub := range f.subscribers {
		close(sub.send)
		delete(f.subscribers, sub)
	}
	return nil
}

// Handle upgrades the request and streams events until either side goes away.
// The optional category query parameter filters events.
func (f *Feed) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := &subscriber{
		remote:   r.RemoteAddr,
		category: r.URL.Query().Get("category"),
		send:     make(chan []byte, f.queue),
	}
	count, ok := f.register(sub)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	network.FeedSubscribed(context.Background(), f.currentPublisher(), network.FeedPayload{
		Remote:      sub.remote,
		Subscribers: count,
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	reason := f.pump(conn, sub, done)
	conn.Close()
	<-done

	count = f.unregister(sub)
	network.FeedUnsubscribed(context.Background(), f.currentPublisher(), network.FeedPayload{
		Remote:      sub.remote,
		Subscribers: count,
		Reason:      reason,
	}, nil)
}

func (f *Feed) pump(conn *websocket.Conn, sub *subscriber, done <-chan struct{}) string {
	for {
		select {
		case <-done:
			return "client closed"
		case data, ok := <-sub.send:
			if !ok {
				message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
				conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
				return "feed closed"
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.logger.Printf("write to %s failed: %v", sub.remote, err)
				return "write failed"
			}
		}
	}
}

func (f *Feed) register(sub *subscriber) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, false
	}
	f.subscribers[sub] = struct{}{}
	return len(f.subscribers), true
}

func (f *Feed) unregister(sub *subscriber) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[sub]; ok {
		delete(f.subscribers, sub)
		close(sub.send)
	}
	if sub.dropped > 0 {
		f.logger.Printf("%s dropped %d events", sub.remote, sub.dropped)
	}
	return len(f.subscribers)
}

func (f *Feed) currentPublisher() logging.Publisher {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publisher
}

var _ logging.Sink = (*Feed)(nil)
