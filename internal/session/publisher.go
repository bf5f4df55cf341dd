package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/LimeProgramming/defectio"
)

// publisher fans events out to subscriptions. Each subscription owns one
// delivery goroutine and a bounded queue, so handlers see events in receipt
// order with at most one invocation in flight per subscription. A full
// queue blocks the publisher rather than reorder or drop.
type publisher struct {
	mu        sync.RWMutex
	subs      map[defectio.EventKind][]*subscription
	queueSize int
	closed    bool
}

type subscription struct {
	id   string
	kind defectio.EventKind
	ch   chan defectio.Event
	done chan struct{}
	once sync.Once
	pub  *publisher
}

func newPublisher(queueSize int) *publisher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &publisher{
		subs:      make(map[defectio.EventKind][]*subscription),
		queueSize: queueSize,
	}
}

func (p *publisher) subscribe(kind defectio.EventKind, handler func(defectio.Event)) (*subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, defectio.ErrSessionClosed
	}

	sub := &subscription{
		id:   uuid.New().String(),
		kind: kind,
		ch:   make(chan defectio.Event, p.queueSize),
		done: make(chan struct{}),
		pub:  p,
	}
	p.subs[kind] = append(p.subs[kind], sub)

	go sub.deliver(handler)
	return sub, nil
}

func (sub *subscription) deliver(handler func(defectio.Event)) {
	for {
		select {
		case ev := <-sub.ch:
			handler(ev)
		case <-sub.done:
			return
		}
	}
}

// Cancel detaches the subscription. Idempotent; after return no new handler
// invocation starts.
func (sub *subscription) Cancel() {
	sub.once.Do(func() {
		close(sub.done)
		sub.pub.remove(sub)
	})
}

func (p *publisher) remove(sub *subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			p.subs[sub.kind] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// publish enqueues ev for every subscription of its kind, preserving per
// subscription ordering.
func (p *publisher) publish(ev defectio.Event) {
	p.mu.RLock()
	list := append([]*subscription(nil), p.subs[ev.EventKind()]...)
	p.mu.RUnlock()

	for _, sub := range list {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		}
	}
}

// close cancels every subscription and rejects new ones.
func (p *publisher) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var all []*subscription
	for _, list := range p.subs {
		all = append(all, list...)
	}
	p.subs = make(map[defectio.EventKind][]*subscription)
	p.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.done) })
	}
}
