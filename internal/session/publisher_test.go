package session

import (
	"sync"
	"testing"
	"time"

	"github.com/LimeProgramming/defectio"
)

func TestPublisherDeliversInReceiptOrder(t *testing.T) {
	t.Parallel()

	p := newPublisher(16)

	const n = 10
	got := make(chan string, n)
	_, err := p.subscribe(defectio.KindMessageCreated, func(ev defectio.Event) {
		got <- ev.(defectio.MessageCreated).Message.ID
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		want = append(want, id)
		p.publish(defectio.MessageCreated{Message: defectio.Message{ID: id}})
	}

	for i := 0; i < n; i++ {
		select {
		case id := <-got:
			if id != want[i] {
				t.Fatalf("event %d: got %q, want %q", i, id, want[i])
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

// TestPublisherKindIsolation checks a subscription only sees its own kind.
func TestPublisherKindIsolation(t *testing.T) {
	t.Parallel()

	p := newPublisher(16)

	created := make(chan defectio.Event, 1)
	deleted := make(chan defectio.Event, 1)
	p.subscribe(defectio.KindMessageCreated, func(ev defectio.Event) { created <- ev })
	p.subscribe(defectio.KindMessageDeleted, func(ev defectio.Event) { deleted <- ev })

	p.publish(defectio.MessageCreated{Message: defectio.Message{ID: "m1"}})

	select {
	case <-created:
	case <-time.After(time.Second):
		t.Fatal("created subscriber never fired")
	}
	select {
	case ev := <-deleted:
		t.Fatalf("deleted subscriber received %T", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestSlowSubscriberDoesNotStarveOthers checks one blocked handler cannot
// hold up delivery to its peers past the queue depth.
func TestSlowSubscriberDoesNotStarveOthers(t *testing.T) {
	t.Parallel()

	p := newPublisher(16)

	release := make(chan struct{})
	p.subscribe(defectio.KindMessageCreated, func(ev defectio.Event) {
		<-release
	})
	defer close(release)

	fast := make(chan defectio.Event, 8)
	p.subscribe(defectio.KindMessageCreated, func(ev defectio.Event) { fast <- ev })

	for i := 0; i < 4; i++ {
		p.publish(defectio.MessageCreated{Message: defectio.Message{ID: "m"}})
	}

	for i := 0; i < 4; i++ {
		select {
		case <-fast:
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber starved at event %d", i)
		}
	}
}

func TestSubscriptionCancel(t *testing.T) {
	t.Parallel()

	p := newPublisher(16)

	var (
		mu sync.Mutex
		n  int
	)
	sub, err := p.subscribe(defectio.KindMessageCreated, func(ev defectio.Event) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	p.publish(defectio.MessageCreated{Message: defectio.Message{ID: "m1"}})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if n != 0 {
		t.Errorf("handler fired %d times after Cancel", n)
	}
}

func TestPublisherCloseRejectsNewSubscribers(t *testing.T) {
	t.Parallel()

	p := newPublisher(16)
	p.close()
	p.close() // idempotent

	if _, err := p.subscribe(defectio.KindMessageCreated, func(defectio.Event) {}); err != defectio.ErrSessionClosed {
		t.Errorf("subscribe after close: err = %v, want %v", err, defectio.ErrSessionClosed)
	}
}
