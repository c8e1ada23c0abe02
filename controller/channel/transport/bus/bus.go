package bus

import (
	"sync"

	"github.com/burakmyildiz/covertovert/controller/channel/transport"
)

// Shared by every channel opened in "memory" mode in this process
var Default *Bus = New()

func init() {
	transport.Register("memory", func(opts transport.Options) (transport.Transport, error) {
		return Default, nil
	})
}

// An in memory network.
// Emit delivers the packet to every matching subscriber before returning,
// so packets are seen in exactly the order they were emitted.
type Bus struct {
	mutex sync.Mutex
	subs  map[*subscription]bool

	// Delivery is serialised separately so that Stop
	// may be called while a handler runs on another goroutine
	deliver sync.Mutex
}

type subscription struct {
	bus     *Bus
	filter  transport.Filter
	handler transport.Handler
	stopped bool
}

func New() *Bus {
	return &Bus{subs: make(map[*subscription]bool)}
}

func (b *Bus) Emit(p transport.Packet) error {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mutex.Lock()
	var targets []*subscription
	for s := range b.subs {
		if s.filter.Match(p) {
			targets = append(targets, s)
		}
	}
	b.mutex.Unlock()

	for _, s := range targets {
		// A handler may have stopped a later subscription
		b.mutex.Lock()
		stopped := s.stopped
		b.mutex.Unlock()
		if !stopped {
			s.handler(clonePacket(p))
		}
	}
	return nil
}

func (b *Bus) Subscribe(filter string, h transport.Handler) (transport.Subscription, error) {
	f, err := transport.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	s := &subscription{bus: b, filter: f, handler: h}
	b.mutex.Lock()
	b.subs[s] = true
	b.mutex.Unlock()
	return s, nil
}

// The number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subs)
}

func (s *subscription) Stop() error {
	s.bus.mutex.Lock()
	s.stopped = true
	delete(s.bus.subs, s)
	s.bus.mutex.Unlock()
	return nil
}

func clonePacket(p transport.Packet) transport.Packet {
	if p.Payload != nil {
		p.Payload = append([]byte(nil), p.Payload...)
	}
	return p
}
