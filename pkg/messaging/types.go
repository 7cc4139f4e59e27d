package messaging

import (
	"time"

	"github.com/boristopalov/irrigo/pkg/core"
)

// Message is a transition event routed from an episode to its listeners
type Message struct {
	From       string          // episode ID of the sender
	To         []string        // subscriber IDs (empty means broadcast)
	Transition core.Transition // the step being reported
	Timestamp  time.Time
}

// Broker routes transition events between the runner and its listeners
type Broker interface {
	// Publish sends a message to specified recipients
	Publish(msg Message) error
	// Subscribe registers a listener to receive messages
	Subscribe(id string, ch chan<- Message) error
	// Unsubscribe removes a listener's subscription
	Unsubscribe(id string) error
}
