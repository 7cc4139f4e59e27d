package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boristopalov/irrigo/pkg/core"
)

func transition(day int) core.Transition {
	return core.Transition{EpisodeID: "ep-1", Day: day, Reward: 1}
}

func TestBroker(t *testing.T) {
	t.Run("test direct message", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		ch1 := make(chan Message, 1)
		ch2 := make(chan Message, 1)

		if err := broker.Subscribe("stats", ch1); err != nil {
			t.Fatalf("Failed to subscribe stats: %v", err)
		}
		if err := broker.Subscribe("trace", ch2); err != nil {
			t.Fatalf("Failed to subscribe trace: %v", err)
		}

		msg := Message{
			From:       "ep-1",
			To:         []string{"trace"},
			Transition: transition(1),
			Timestamp:  time.Now(),
		}
		if err := broker.Publish(msg); err != nil {
			t.Fatalf("Failed to publish message: %v", err)
		}

		select {
		case received := <-ch2:
			if received.From != "ep-1" || received.Transition.Day != 1 {
				t.Errorf("Unexpected message received: %+v", received)
			}
		case <-time.After(time.Second):
			t.Error("Timeout waiting for message")
		}

		select {
		case msg := <-ch1:
			t.Errorf("stats should not receive message but got: %+v", msg)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("test broadcast skips sender", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		subs := map[string]chan Message{
			"ep-1":  make(chan Message, 1),
			"stats": make(chan Message, 1),
			"trace": make(chan Message, 1),
		}
		for id, ch := range subs {
			if err := broker.Subscribe(id, ch); err != nil {
				t.Fatalf("Failed to subscribe %s: %v", id, err)
			}
		}

		if err := broker.Publish(Message{From: "ep-1", Transition: transition(2)}); err != nil {
			t.Fatalf("Failed to publish broadcast: %v", err)
		}

		for id, ch := range subs {
			select {
			case received := <-ch:
				if id == "ep-1" {
					t.Errorf("sender received its own broadcast: %+v", received)
				} else if received.Transition.Day != 2 {
					t.Errorf("%s got unexpected message: %+v", id, received)
				}
			case <-time.After(50 * time.Millisecond):
				if id != "ep-1" {
					t.Errorf("Timeout waiting for broadcast on %s", id)
				}
			}
		}
	})

	t.Run("test subscription management", func(t *testing.T) {
		broker := NewBroker()
		ch := make(chan Message, 1)

		if err := broker.Subscribe("stats", ch); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Subscribe("stats", ch); err == nil {
			t.Error("Expected error for duplicate subscription, got nil")
		}
		if err := broker.Unsubscribe("stats"); err != nil {
			t.Fatalf("Failed to unsubscribe: %v", err)
		}
		if err := broker.Unsubscribe("stats"); err == nil {
			t.Error("Expected error for unsubscribing twice, got nil")
		}
	})

	t.Run("test full channel still delivers to others", func(t *testing.T) {
		broker := NewBroker()
		full := make(chan Message, 1)
		open := make(chan Message, 2)
		if err := broker.Subscribe("full", full); err != nil {
			t.Fatal(err)
		}
		if err := broker.Subscribe("open", open); err != nil {
			t.Fatal(err)
		}

		if err := broker.Publish(Message{From: "ep-1", Transition: transition(1)}); err != nil {
			t.Fatalf("first publish: %v", err)
		}
		if err := broker.Publish(Message{From: "ep-1", Transition: transition(2)}); err == nil {
			t.Error("Expected error when publishing to a full channel, got nil")
		}
		if len(open) != 2 {
			t.Errorf("open subscriber got %d messages, want 2", len(open))
		}
	})
}

func TestBlockingBrokerDeliversEverything(t *testing.T) {
	broker := NewBlockingBroker()
	ch := make(chan Message, 1)
	if err := broker.Subscribe("trace", ch); err != nil {
		t.Fatal(err)
	}

	var days []int
	done := make(chan struct{})
	go func() {
		Listen(context.Background(), ch, func(m Message) {
			days = append(days, m.Transition.Day)
		})
		close(done)
	}()

	const n = 100
	for day := 1; day <= n; day++ {
		if err := broker.Publish(Message{From: "ep-1", Transition: transition(day)}); err != nil {
			t.Fatalf("Publish() day %d error = %v", day, err)
		}
	}
	if err := broker.Unsubscribe("trace"); err != nil {
		t.Fatal(err)
	}
	close(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not finish draining")
	}
	if len(days) != n {
		t.Fatalf("listener saw %d messages, want %d", len(days), n)
	}
	for i, d := range days {
		if d != i+1 {
			t.Fatalf("message %d has day %d, want in-order delivery", i, d)
		}
	}
}

func TestListen(t *testing.T) {
	ch := make(chan Message, 3)
	for day := 1; day <= 3; day++ {
		ch <- Message{Transition: transition(day)}
	}
	close(ch)

	var mu sync.Mutex
	var days []int
	Listen(context.Background(), ch, func(m Message) {
		mu.Lock()
		days = append(days, m.Transition.Day)
		mu.Unlock()
	})
	if len(days) != 3 || days[0] != 1 || days[2] != 3 {
		t.Errorf("handled days = %v, want [1 2 3]", days)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		Listen(ctx, make(chan Message), func(Message) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Listen did not return after cancellation")
	}
}
