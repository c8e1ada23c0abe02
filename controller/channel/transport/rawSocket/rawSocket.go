package rawSocket

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/burakmyildiz/covertovert/controller/channel/transport"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
)

const ipHeaderLen = 20

type Config struct {
	// The timeout for writing a packet to the raw socket. Set zero for no timeout.
	WriteTimeout time.Duration
}

// Sends and captures UDP datagrams over raw IPv4 sockets.
// Sending builds the full IP header ourselves, so any destination
// port can be written without binding a UDP socket.
// Requires CAP_NET_RAW.
type Transport struct {
	conf    Config
	rawConn *ipv4.RawConn

	// We make the mutex a pointer to avoid the risk of copying
	writeMutex *sync.Mutex
}

type subscription struct {
	rawConn *ipv4.RawConn
	filter  transport.Filter
	handler transport.Handler
	cancel  chan bool
	done    chan bool
	once    sync.Once
}

func init() {
	transport.Register("raw", func(opts transport.Options) (transport.Transport, error) {
		return MakeTransport(Config{WriteTimeout: opts.WriteTimeout})
	})
}

func MakeTransport(conf Config) (*Transport, error) {
	t := &Transport{conf: conf, writeMutex: &sync.Mutex{}}
	var err error
	if t.rawConn, err = openRawConn(); err != nil {
		return nil, err
	}
	return t, nil
}

// ip network with the udp protocol
func openRawConn() (*ipv4.RawConn, error) {
	conn, err := net.ListenPacket("ip4:17", "0.0.0.0")
	if err != nil {
		return nil, err
	}
	rawConn, err := ipv4.NewRawConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return rawConn, nil
}

func (t *Transport) Close() error {
	return t.rawConn.Close()
}

func (t *Transport) Emit(p transport.Packet) error {
	wbuf, err := createUDPHeader(p)
	if err != nil {
		return err
	}
	var (
		h  ipv4.Header         = createIPHeader(p.SrcIP, p.DstIP, len(wbuf))
		cm ipv4.ControlMessage = createCM(p.SrcIP, p.DstIP)
	)
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()
	if t.conf.WriteTimeout > 0 {
		t.rawConn.SetWriteDeadline(time.Now().Add(t.conf.WriteTimeout))
	} else {
		// A deadline of zero means never timeout
		t.rawConn.SetWriteDeadline(time.Time{})
	}
	return t.rawConn.WriteTo(&h, wbuf, &cm)
}

// Each subscription reads from its own raw socket, so that
// stopping it cannot interfere with sending
func (t *Transport) Subscribe(filter string, h transport.Handler) (transport.Subscription, error) {
	f, err := transport.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if !f.AnyProto && f.Protocol != layers.IPProtocolUDP {
		return nil, errors.New("Raw UDP capture cannot match protocol " + f.Protocol.String())
	}
	rawConn, err := openRawConn()
	if err != nil {
		return nil, err
	}
	s := &subscription{
		rawConn: rawConn,
		filter:  f,
		handler: h,
		cancel:  make(chan bool),
		done:    make(chan bool),
	}
	go s.readLoop()
	return s, nil
}

func (s *subscription) Stop() error {
	var err error
	s.once.Do(func() {
		close(s.cancel)
		// Closing the socket unblocks the pending read
		err = s.rawConn.Close()
		<-s.done
	})
	return err
}

func (s *subscription) readLoop() {
	defer close(s.done)
	var buf [65536]byte
	for {
		h, p, _, err := s.rawConn.ReadFrom(buf[:])

		// Once the subscription is stopped we
		// must exit this read loop
		select {
		case <-s.cancel:
			return
		default:
			if err != nil {
				log.Debug().Err(err).Msg("raw socket read")
				continue
			}
		}

		pkt, ok := parseUDP(h, p)
		if ok && s.filter.Match(pkt) {
			s.handler(pkt)
		}
	}
}

func parseUDP(h *ipv4.Header, p []byte) (transport.Packet, bool) {
	var pkt transport.Packet
	if h == nil || h.Protocol != int(layers.IPProtocolUDP) {
		return pkt, false
	}
	udph := layers.UDP{}
	if err := udph.DecodeFromBytes(p, gopacket.NilDecodeFeedback); err != nil {
		return pkt, false
	}
	pkt.Protocol = layers.IPProtocolUDP
	copy(pkt.SrcIP[:], h.Src.To4())
	copy(pkt.DstIP[:], h.Dst.To4())
	pkt.SrcPort = uint16(udph.SrcPort)
	pkt.DstPort = uint16(udph.DstPort)
	pkt.Payload = append([]byte(nil), udph.Payload...)
	return pkt, true
}

// Serialize the UDP header and payload with a valid checksum
func createUDPHeader(p transport.Packet) ([]byte, error) {
	iph := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(p.SrcIP[:]),
		DstIP:    net.IP(p.DstIP[:]),
	}
	udph := layers.UDP{
		SrcPort: layers.UDPPort(p.SrcPort),
		DstPort: layers.UDPPort(p.DstPort),
	}
	if err := udph.SetNetworkLayerForChecksum(&iph); err != nil {
		return nil, err
	}

	sb := gopacket.NewSerializeBuffer()
	op := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(sb, op, &udph, gopacket.Payload(p.Payload)); err != nil {
		return nil, err
	}
	return sb.Bytes(), nil
}

// Creates the ip header message
func createIPHeader(sip, dip [4]byte, payloadLen int) ipv4.Header {
	return ipv4.Header{
		Version:  4,
		Len:      ipHeaderLen,
		TOS:      0,
		TotalLen: ipHeaderLen + payloadLen,
		FragOff:  0,
		TTL:      64,
		Protocol: int(layers.IPProtocolUDP),
		Src:      net.IP(sip[:]),
		Dst:      net.IP(dip[:]),
	}
}

// Creates the control message
func createCM(sip, dip [4]byte) ipv4.ControlMessage {
	return ipv4.ControlMessage{
		TTL:     64,
		Src:     net.IP(sip[:]),
		Dst:     net.IP(dip[:]),
		IfIndex: 0,
	}
}
