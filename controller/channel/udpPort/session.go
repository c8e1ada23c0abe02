package udpPort

import (
	"sync"

	"github.com/burakmyildiz/covertovert/controller/channel/embedders"
	"github.com/burakmyildiz/covertovert/controller/channel/transport"
	"github.com/burakmyildiz/covertovert/controller/metrics"
	"github.com/google/gopacket/layers"
)

type State int

const (
	Listening State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Listening:
		return "LISTENING"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// A Session decodes one covert message.
// It is fed captured packets through HandlePacket and terminates as soon
// as the sentinel character has been decoded. The sentinel itself is not
// part of the message.
// Each Receive owns its own Session, so sessions never share state.
type Session struct {
	encoder  *embedders.PortEncoder
	framer   *embedders.Framer
	sentinel byte

	// The capture loop calls HandlePacket on its own goroutine.
	// The mutex only publishes the results to the goroutine waiting on Done.
	mutex    *sync.Mutex
	msg      []byte
	state    State
	done     chan bool
	activity chan bool

	// Optional. Receives the number of decoded characters without blocking.
	Progress chan<- uint64
}

func NewSession(encoder *embedders.PortEncoder, bitsPerChar int, sentinel byte) *Session {
	return &Session{
		encoder:  encoder,
		framer:   embedders.NewFramer(bitsPerChar),
		sentinel: embedders.Truncate(sentinel, bitsPerChar),
		mutex:    &sync.Mutex{},
		msg:      []byte{},
		state:    Listening,
		done:     make(chan bool),
		activity: make(chan bool, 1),
	}
}

// A transport.Handler. Packets that are not UDP or whose destination
// port lies outside both ranges are background traffic and are ignored.
func (s *Session) HandlePacket(p transport.Packet) {
	if p.Protocol != layers.IPProtocolUDP {
		return
	}
	s.HandlePort(p.DstPort)
}

// Feed a single destination port. Returns true if the port
// terminated the session.
func (s *Session) HandlePort(port uint16) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// The framer must not be fed once the sentinel has been seen
	if s.state == Terminated {
		return false
	}
	bit, ok := s.encoder.GetBit(port)
	if !ok {
		metrics.PacketsDiscarded.Inc()
		return false
	}
	metrics.PacketsCaptured.Inc()
	select {
	case s.activity <- true:
	default:
	}

	c, ok := s.framer.Push(bit)
	if !ok {
		return false
	}
	metrics.CharactersDecoded.Inc()
	if c == s.sentinel {
		s.state = Terminated
		close(s.done)
		return true
	}
	s.msg = append(s.msg, c)
	if s.Progress != nil {
		select {
		case s.Progress <- uint64(len(s.msg)):
		default:
		}
	}
	return false
}

// Closed once the sentinel has been decoded
func (s *Session) Done() <-chan bool {
	return s.done
}

// Signalled whenever a channel packet arrives, used for inter packet timeouts
func (s *Session) Activity() <-chan bool {
	return s.activity
}

// A copy of the message decoded so far
func (s *Session) Message() []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]byte(nil), s.msg...)
}

func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}
