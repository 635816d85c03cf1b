package core

import (
	"github.com/ethereum/go-ethereum/event"
)

// Envelope is the single concrete type ever sent over FeedEventBus's
// feed. event.Feed panics if Send is called with two different
// concrete types over its lifetime, so every mempool/validator event
// (of whatever underlying struct type) is boxed into Envelope before
// Send rather than sent as a bare `any`.
type Envelope struct {
	Event any
}

// FeedEventBus adapts an event.Feed, the same non-blocking
// multi-producer/multi-subscriber primitive go-ethereum's tx pool uses
// for its own notifications (core/txpool/tx_vectorfee_pool.go:
// discoverFeed/insertFeed), to the EventBus interface.
//
// event.Feed.Send blocks until every subscriber has received the
// value, so "non-blocking" here means "non-blocking with respect to
// slow consumers that asked for it" the usual way: callers that care
// about latency subscribe with a buffered channel and drain it on
// their own goroutine rather than processing inline.
type FeedEventBus struct {
	feed event.Feed
}

func NewFeedEventBus() *FeedEventBus {
	return &FeedEventBus{}
}

func (b *FeedEventBus) Publish(evt any) {
	b.feed.Send(Envelope{Event: evt})
}

// Subscribe registers ch to receive every published event. The
// returned Subscription must be closed by the caller when done.
func (b *FeedEventBus) Subscribe(ch chan<- Envelope) event.Subscription {
	return b.feed.Subscribe(ch)
}
