package pcapCapture

import (
	"net"
	"sync"
	"time"

	"github.com/burakmyildiz/covertovert/controller/channel/transport"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// The capture device, e.g. "lo" or "eth0"
	Device      string
	SnapshotLen int32
	Promiscuous bool
	// The libpcap read timeout.
	// Stop is only noticed between reads, so this bounds how long Stop takes.
	Timeout time.Duration
	// Link layer addresses for injected frames. Zero values work on loopback.
	SrcMAC net.HardwareAddr
	DstMAC net.HardwareAddr
}

// Captures with libpcap and a kernel BPF filter.
// The filter string passed to Subscribe is handed to libpcap as is,
// so the full BPF language is available.
type Transport struct {
	conf   Config
	handle *pcap.Handle

	writeMutex *sync.Mutex
}

type subscription struct {
	handle  *pcap.Handle
	handler transport.Handler
	cancel  chan bool
	done    chan bool
	once    sync.Once
}

func DefaultConfig() Config {
	return Config{
		Device:      "lo",
		SnapshotLen: 1024,
		Timeout:     100 * time.Millisecond,
	}
}

func init() {
	transport.Register("pcap", func(opts transport.Options) (transport.Transport, error) {
		conf := DefaultConfig()
		if opts.Device != "" {
			conf.Device = opts.Device
		}
		return MakeTransport(conf)
	})
}

func MakeTransport(conf Config) (*Transport, error) {
	if conf.SnapshotLen == 0 {
		conf.SnapshotLen = 1024
	}
	if conf.Timeout == 0 {
		conf.Timeout = 100 * time.Millisecond
	}
	handle, err := pcap.OpenLive(conf.Device, conf.SnapshotLen, conf.Promiscuous, conf.Timeout)
	if err != nil {
		return nil, err
	}
	return &Transport{conf: conf, handle: handle, writeMutex: &sync.Mutex{}}, nil
}

func (t *Transport) Close() error {
	t.handle.Close()
	return nil
}

func (t *Transport) Emit(p transport.Packet) error {
	frame, err := t.createFrame(p)
	if err != nil {
		return err
	}
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()
	return t.handle.WritePacketData(frame)
}

func (t *Transport) Subscribe(filter string, h transport.Handler) (transport.Subscription, error) {
	handle, err := pcap.OpenLive(t.conf.Device, t.conf.SnapshotLen, t.conf.Promiscuous, t.conf.Timeout)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		if err = handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, err
		}
	}
	s := &subscription{
		handle:  handle,
		handler: h,
		cancel:  make(chan bool),
		done:    make(chan bool),
	}
	go s.readLoop()
	return s, nil
}

func (s *subscription) Stop() error {
	s.once.Do(func() {
		close(s.cancel)
		<-s.done
		s.handle.Close()
	})
	return nil
}

func (s *subscription) readLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.cancel:
			return
		default:
		}
		data, _, err := s.handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		} else if err != nil {
			log.Warn().Err(err).Msg("pcap read")
			return
		}
		pkt := gopacket.NewPacket(data, s.handle.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		if p, ok := toPacket(pkt); ok {
			// The stop may have arrived while we were reading
			select {
			case <-s.cancel:
				return
			default:
				s.handler(p)
			}
		}
	}
}

func toPacket(pkt gopacket.Packet) (transport.Packet, bool) {
	var p transport.Packet
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return p, false
	}
	p.Protocol = ipLayer.Protocol
	copy(p.SrcIP[:], ipLayer.SrcIP.To4())
	copy(p.DstIP[:], ipLayer.DstIP.To4())
	if udph, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		p.SrcPort = uint16(udph.SrcPort)
		p.DstPort = uint16(udph.DstPort)
		p.Payload = append([]byte(nil), udph.Payload...)
	}
	return p, true
}

// Builds a full link layer frame for injection
func (t *Transport) createFrame(p transport.Packet) ([]byte, error) {
	var (
		srcMAC net.HardwareAddr = t.conf.SrcMAC
		dstMAC net.HardwareAddr = t.conf.DstMAC
	)
	if srcMAC == nil {
		srcMAC = make(net.HardwareAddr, 6)
	}
	if dstMAC == nil {
		dstMAC = make(net.HardwareAddr, 6)
	}
	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
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
	if err := gopacket.SerializeLayers(sb, op, &eth, &iph, &udph, gopacket.Payload(p.Payload)); err != nil {
		return nil, err
	}
	return sb.Bytes(), nil
}
