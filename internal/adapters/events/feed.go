package events

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/event"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/usecase"
)

// FeedAdapter logs keyring events and fans them out to subscribers
type FeedAdapter struct {
	feed  event.Feed
	scope event.SubscriptionScope
	log   *slog.Logger
}

// NewFeedAdapter creates a new event feed
func NewFeedAdapter(log *slog.Logger) *FeedAdapter {
	return &FeedAdapter{log: log}
}

// Emit publishes an event. Subscribers that are not reading block the
// sender, so they must drain their channel.
func (f *FeedAdapter) Emit(ctx context.Context, kind domain.KeyringEvent, payload any) error {
	n := f.feed.Send(domain.Event{Kind: kind, Payload: payload})
	f.log.Debug("keyring event", "kind", kind, "subscribers", n)
	return nil
}

// Subscribe delivers every future event on ch
func (f *FeedAdapter) Subscribe(ch chan<- domain.Event) event.Subscription {
	return f.scope.Track(f.feed.Subscribe(ch))
}

// Close unsubscribes everyone
func (f *FeedAdapter) Close() {
	f.scope.Close()
}

var _ usecase.EventSink = (*FeedAdapter)(nil)
