package network

import (
	"context"

	"github.com/XutaxKamay/css-enhanced-waf/logging"
)

const (
	// EventFeedSubscribed is emitted when a client attaches to the event feed.
	EventFeedSubscribed logging.EventType = "network.feed_subscribed"
	// EventFeedUnsubscribed is emitted when a feed client goes away.
	EventFeedUnsubscribed logging.EventType = "network.feed_unsubscribed"
)

// FeedPayload describes a feed subscriber.
type FeedPayload struct {
	Remote      string `json:"remote"`
	Subscribers int    `json:"subscribers"`
	Reason      string `json:"reason,omitempty"`
}

// FeedSubscribed publishes a subscriber connect event.
func FeedSubscribed(ctx context.Context, pub logging.Publisher, payload FeedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFeedSubscribed,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// FeedUnsubscribed publishes a subscriber disconnect event.
func FeedUnsubscribed(ctx context.Context, pub logging.Publisher, payload FeedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFeedUnsubscribed,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
