package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
	"github.com/XutaxKamay/css-enhanced-waf/logging/network"
)

func dialFeed(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func waitSubscribers(t *testing.T, feed *Feed, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for feed.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", want, feed.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) feedMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	var msg feedMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("failed to decode event %s: %v", payload, err)
	}
	return msg
}

func TestFeedStreamsEvents(t *testing.T) {
	feed := NewFeed(FeedConfig{})
	srv := httptest.NewServer(http.HandlerFunc(feed.Handle))
	t.Cleanup(srv.Close)

	conn := dialFeed(t, srv, "")
	waitSubscribers(t, feed, 1)

	err := feed.Write(logging.Event{
		Type:     "lagcomp.window_committed",
		Tick:     12,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLagComp,
		TraceID:  "trace-1",
	})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	msg := readEvent(t, conn)
	if msg.Type != "lagcomp.window_committed" || msg.Tick != 12 || msg.TraceID != "trace-1" {
		t.Fatalf("unexpected event %+v", msg)
	}
	if msg.Severity != "debug" {
		t.Fatalf("expected severity rendered as a string, got %q", msg.Severity)
	}
}

func TestFeedFiltersByCategory(t *testing.T) {
	feed := NewFeed(FeedConfig{})
	srv := httptest.NewServer(http.HandlerFunc(feed.Handle))
	t.Cleanup(srv.Close)

	conn := dialFeed(t, srv, "?category="+logging.CategoryLagComp)
	waitSubscribers(t, feed, 1)

	feed.Write(logging.Event{Type: "combat.shot_hit", Category: logging.CategoryCombat})
	feed.Write(logging.Event{Type: "lagcomp.history_cleared", Category: logging.CategoryLagComp})

	if msg := readEvent(t, conn); msg.Type != "lagcomp.history_cleared" {
		t.Fatalf("expected only lagcomp events, got %s", msg.Type)
	}
}

func TestFeedReportsSubscriptions(t *testing.T) {
	events := make(chan logging.Event, 4)
	feed := NewFeed(FeedConfig{})
	feed.Attach(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		events <- event
	}))
	srv := httptest.NewServer(http.HandlerFunc(feed.Handle))
	t.Cleanup(srv.Close)

	conn := dialFeed(t, srv, "")
	select {
	case event := <-events:
		if event.Type != network.EventFeedSubscribed {
			t.Fatalf("expected subscribe event, got %s", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscribe event")
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	select {
	case event := <-events:
		if event.Type != network.EventFeedUnsubscribed {
			t.Fatalf("expected unsubscribe event, got %s", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no unsubscribe event")
	}
	waitSubscribers(t, feed, 0)
}

func TestFeedCloseDisconnectsClients(t *testing.T) {
	feed := NewFeed(FeedConfig{})
	srv := httptest.NewServer(http.HandlerFunc(feed.Handle))
	t.Cleanup(srv.Close)

	conn := dialFeed(t, srv, "")
	waitSubscribers(t, feed, 1)

	if err := feed.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected a going away close, got %v", err)
	}
	if err := feed.Write(logging.Event{Type: "late"}); err != nil {
		t.Fatalf("expected writes after close to be ignored, got %v", err)
	}
}
