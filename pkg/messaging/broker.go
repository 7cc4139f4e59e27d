package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// SimpleBroker implements Broker with in-process channels.
// subscribers maps listener IDs to the channel they receive on.
type SimpleBroker struct {
	subscribers map[string]chan<- Message
	blocking    bool
	mu          sync.RWMutex
}

// NewBroker creates a new message broker
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Message),
	}
}

// NewBlockingBroker creates a broker whose Publish waits for room in every
// recipient's channel instead of dropping the message. Subscribers must keep
// draining until they unsubscribe.
func NewBlockingBroker() *SimpleBroker {
	b := NewBroker()
	b.blocking = true
	return b
}

// Publish delivers msg to every reachable recipient. A non-blocking broker
// reports recipients whose channel is full in the returned error.
func (b *SimpleBroker) Publish(msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	recipients := msg.To
	if len(recipients) == 0 {
		for id := range b.subscribers {
			if id != msg.From {
				recipients = append(recipients, id)
			}
		}
	}

	var errs []error
	for _, id := range recipients {
		ch, ok := b.subscribers[id]
		if !ok {
			continue
		}
		if b.blocking {
			ch <- msg
			continue
		}
		select {
		case ch <- msg:
		default:
			errs = append(errs, fmt.Errorf("subscriber %s's channel is full", id))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a listener to receive messages
func (b *SimpleBroker) Subscribe(id string, ch chan<- Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("subscriber %s is already subscribed", id)
	}
	b.subscribers[id] = ch
	return nil
}

// Unsubscribe removes a listener's subscription
func (b *SimpleBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("subscriber %s is not subscribed", id)
	}
	delete(b.subscribers, id)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Message)
}

// Listen calls handle for every message on ch until ctx is done or ch is closed.
func Listen(ctx context.Context, ch <-chan Message, handle func(Message)) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handle(msg)
		case <-ctx.Done():
			return
		}
	}
}
