package udpPort

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/burakmyildiz/covertovert/controller/channel/embedders"
	"github.com/burakmyildiz/covertovert/controller/channel/transport"
	"github.com/burakmyildiz/covertovert/controller/metrics"
	"github.com/google/gopacket/layers"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSentinel    = '.'
	DefaultBitsPerChar = 8
	DefaultFilter      = "udp"
)

var (
	ErrSentinelInMessage = errors.New("Message contains the sentinel character")
	ErrBufferFull        = errors.New("Buffer Full")
	ErrCancelled         = errors.New("Cancel")
	ErrTimeout           = errors.New("Timeout")
	ErrNoTransport       = errors.New("No transport configured")
)

// The payload does not carry data; it only makes the datagrams look ordinary
var (
	sendPayload []byte = []byte("send")
	stopPayload []byte = []byte("stop")
)

// This covert channel hides one bit in the destination port of each UDP datagram.
// A 0 bit is sent to a port in the Zero range of the encoder and a 1 bit to a
// port in the One range. Characters are sent most significant bit first using
// BitsPerChar bits each, and the message ends with the bits of the Sentinel
// character. The receiver treats any datagram whose destination port is in
// neither range as unrelated traffic.
// Nothing is acknowledged: a lost or reordered datagram silently corrupts the
// rest of the message.
type Config struct {
	FriendIP [4]byte
	OriginIP [4]byte
	// The UDP source port of every covert datagram
	OriginPort uint16

	Encoder embedders.PortEncoder
	// Defaults to 8. Both peers must agree, there is no negotiation.
	BitsPerChar int
	// A zero sentinel selects '.'
	Sentinel byte

	// The capture filter handed to the transport. Defaults to "udp".
	Filter string
	// The channel owns the transport and closes it if it is an io.Closer
	Transport transport.Transport

	// A function to retrieve a delay between sent packets.
	// nil means no delay.
	GetDelay func() time.Duration

	// The intra-packet read timeout. Set zero for no timeout.
	// Receive otherwise blocks until the sentinel arrives.
	ReadTimeout time.Duration
}

// A UDP destination port covert channel
type Channel struct {
	conf Config

	// A channel to close the covert channel
	// This must be the only go channel that is closed
	cancel     chan bool
	closeMutex *sync.Mutex
}

func MakeChannel(conf Config) (*Channel, error) {
	if conf.Transport == nil {
		return nil, ErrNoTransport
	}
	if conf.BitsPerChar == 0 {
		conf.BitsPerChar = DefaultBitsPerChar
	}
	if conf.BitsPerChar < 1 || conf.BitsPerChar > embedders.MaxBitsPerChar {
		return nil, errors.New("Bits per character must be between 1 and " + strconv.Itoa(embedders.MaxBitsPerChar))
	}
	if conf.Sentinel == 0 {
		conf.Sentinel = DefaultSentinel
	}
	if conf.Filter == "" {
		conf.Filter = DefaultFilter
	}
	if conf.Encoder.Picker == nil {
		conf.Encoder.Picker = embedders.NewRandomPicker()
	}
	if err := conf.Encoder.Validate(); err != nil {
		return nil, err
	}
	return &Channel{
		conf:       conf,
		cancel:     make(chan bool),
		closeMutex: &sync.Mutex{},
	}, nil
}

func (c *Channel) Config() Config {
	return c.conf
}

// Closes the covert channel.
// A Send or Receive in progress returns with ErrCancelled.
// Transports that can be closed are closed as well.
func (c *Channel) Close() error {
	c.closeMutex.Lock()
	defer c.closeMutex.Unlock()
	select {
	// Have we already closed
	case <-c.cancel:
		return nil
	default:
		close(c.cancel)
	}
	var result error
	if cl, ok := c.conf.Transport.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Check that the message can be framed unambiguously.
// A character that is (or truncates to) the sentinel would end the message early.
func (c *Channel) checkMessage(data []byte) error {
	var sentinel byte = embedders.Truncate(c.conf.Sentinel, c.conf.BitsPerChar)
	for i, b := range data {
		if embedders.Truncate(b, c.conf.BitsPerChar) == sentinel {
			return fmt.Errorf("%w at position %d", ErrSentinelInMessage, i)
		}
	}
	return nil
}

// Send a covert message, one datagram per bit, followed by the sentinel.
// We return the number of message bytes handed to the transport
// even if an error is encountered.
func (c *Channel) Send(data []byte, progress chan<- uint64) (uint64, error) {
	if err := c.checkMessage(data); err != nil {
		return 0, err
	}

	bits, truncated := embedders.Serialize(data, c.conf.BitsPerChar)
	if truncated > 0 {
		metrics.CharactersTruncated.Add(float64(truncated))
		log.Warn().
			Int("characters", truncated).
			Int("bitsPerChar", c.conf.BitsPerChar).
			Msg("characters do not fit and will be truncated")
	}
	stopBits, _ := embedders.SerializeChar(c.conf.Sentinel, c.conf.BitsPerChar)

	var (
		startTime time.Time = time.Now()
		n         uint64
		err       error
	)

	for i, bit := range bits {
		if err = c.sendBit(bit, sendPayload); err != nil {
			return n, err
		}
		if (i+1)%c.conf.BitsPerChar == 0 {
			n += 1
			reportProgress(progress, n)
		}
	}
	for _, bit := range stopBits {
		if err = c.sendBit(bit, stopPayload); err != nil {
			return n, err
		}
	}

	elapsed := time.Since(startTime)
	total := len(bits) + len(stopBits)
	metrics.MessagesSent.Inc()
	metrics.SendDuration.Observe(elapsed.Seconds())
	event := log.Info().
		Int("messageBits", len(bits)).
		Int("stopBits", len(stopBits)).
		Int("totalBits", total).
		Dur("elapsed", elapsed)
	if elapsed > 0 {
		capacity := float64(total) / elapsed.Seconds()
		metrics.SendCapacity.Set(capacity)
		event = event.Float64("bitsPerSecond", capacity)
	}
	event.Msg("covert message sent")

	return n, nil
}

func (c *Channel) sendBit(bit byte, payload []byte) error {
	select {
	case <-c.cancel:
		return ErrCancelled
	default:
	}
	p := transport.Packet{
		Protocol: layers.IPProtocolUDP,
		SrcIP:    c.conf.OriginIP,
		DstIP:    c.conf.FriendIP,
		SrcPort:  c.conf.OriginPort,
		DstPort:  c.conf.Encoder.SetBit(bit),
		Payload:  payload,
	}
	if err := c.conf.Transport.Emit(p); err != nil {
		return err
	}
	metrics.PacketsEmitted.Inc()

	// If the user did not supply a GetDelay function
	// we do not wait at all
	if c.conf.GetDelay != nil {
		select {
		case <-time.After(c.conf.GetDelay()):
		case <-c.cancel:
			return ErrCancelled
		}
	}
	return nil
}

// Receive a covert message into data.
// The capture runs until the sentinel is decoded, the channel is closed,
// or no channel packet arrives within ReadTimeout (if set).
// We return the number of bytes received even if an error is encountered,
// in which case data holds the valid bytes received up to that point.
func (c *Channel) Receive(data []byte, progress chan<- uint64) (uint64, error) {
	s := NewSession(&c.conf.Encoder, c.conf.BitsPerChar, c.conf.Sentinel)
	s.Progress = progress

	sub, err := c.conf.Transport.Subscribe(c.conf.Filter, s.HandlePacket)
	if err != nil {
		return 0, err
	}
	log.Debug().Str("filter", c.conf.Filter).Msg("capture started")

loop:
	for {
		var timeout <-chan time.Time
		if c.conf.ReadTimeout > 0 {
			timeout = time.After(c.conf.ReadTimeout)
		}
		select {
		case <-s.Done():
			break loop
		case <-s.Activity():
		case <-c.cancel:
			err = ErrCancelled
			break loop
		case <-timeout:
			err = ErrTimeout
			break loop
		}
	}

	// The only place the capture is stopped
	if stopErr := sub.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}

	msg := s.Message()
	n := uint64(copy(data, msg))
	if err == nil {
		metrics.MessagesReceived.Inc()
		log.Debug().Int("bytes", len(msg)).Msg("covert message received")
		if len(msg) > len(data) {
			err = ErrBufferFull
		}
	}
	return n, err
}

func reportProgress(progress chan<- uint64, n uint64) {
	if progress == nil {
		return
	}
	select {
	case progress <- n:
	default:
	}
}

// Encode returns the destination ports that carry msg and the sentinel,
// in sending order, without touching the network
func (c *Channel) Encode(msg []byte) ([]uint16, error) {
	if err := c.checkMessage(msg); err != nil {
		return nil, err
	}
	bits, _ := embedders.Serialize(msg, c.conf.BitsPerChar)
	stopBits, _ := embedders.SerializeChar(c.conf.Sentinel, c.conf.BitsPerChar)
	var ports []uint16 = make([]uint16, 0, len(bits)+len(stopBits))
	for _, bit := range append(bits, stopBits...) {
		ports = append(ports, c.conf.Encoder.SetBit(bit))
	}
	return ports, nil
}

// Decode runs a session over a list of destination ports.
// The boolean reports whether the sentinel was seen.
func (c *Channel) Decode(ports []uint16) ([]byte, bool) {
	s := NewSession(&c.conf.Encoder, c.conf.BitsPerChar, c.conf.Sentinel)
	for _, port := range ports {
		if s.HandlePort(port) {
			break
		}
	}
	return s.Message(), s.State() == Terminated
}
