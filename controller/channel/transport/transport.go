package transport

import (
	"errors"
	"net"
	"strings"

	"github.com/google/gopacket/layers"
)

var ErrUnsupportedFilter = errors.New("Unsupported capture filter")

// The subset of a packet that covert channels read and write.
// The payload is carried but has no meaning to the channel.
type Packet struct {
	Protocol layers.IPProtocol
	SrcIP    [4]byte
	DstIP    [4]byte
	SrcPort  uint16
	DstPort  uint16
	Payload  []byte
}

// Called once per captured packet.
// A transport never calls a handler again before the previous call returned.
type Handler func(p Packet)

type Subscription interface {
	// Ends the capture. Only a packet already being delivered
	// when Stop is called may still reach the handler.
	Stop() error
}

// A Transport can put packets on the wire and deliver
// the packets that match a filter to a handler
type Transport interface {
	Emit(p Packet) error
	Subscribe(filter string, h Handler) (Subscription, error)
}

// A parsed capture filter.
// Only a small BPF-like grammar is understood:
//
//	[udp|tcp|icmp] [and src host A.B.C.D] [and dst host A.B.C.D]
type Filter struct {
	Protocol layers.IPProtocol
	AnyProto bool
	Src      net.IP
	Dst      net.IP
}

func ParseFilter(filter string) (Filter, error) {
	var (
		f      Filter = Filter{AnyProto: true}
		fields []string
	)
	for _, clause := range strings.Split(filter, " and ") {
		fields = strings.Fields(clause)
		switch {
		case len(fields) == 0:
		case len(fields) == 1:
			switch fields[0] {
			case "udp":
				f.Protocol = layers.IPProtocolUDP
			case "tcp":
				f.Protocol = layers.IPProtocolTCP
			case "icmp":
				f.Protocol = layers.IPProtocolICMPv4
			case "ip":
				continue
			default:
				return f, errors.New(ErrUnsupportedFilter.Error() + ": " + fields[0])
			}
			f.AnyProto = false
		case len(fields) == 3 && fields[1] == "host" && (fields[0] == "src" || fields[0] == "dst"):
			ip := net.ParseIP(fields[2]).To4()
			if ip == nil {
				return f, errors.New("Invalid IPV4 address in filter: " + fields[2])
			}
			if fields[0] == "src" {
				f.Src = ip
			} else {
				f.Dst = ip
			}
		default:
			return f, errors.New(ErrUnsupportedFilter.Error() + ": " + clause)
		}
	}
	return f, nil
}

func (f Filter) Match(p Packet) bool {
	if !f.AnyProto && p.Protocol != f.Protocol {
		return false
	}
	if f.Src != nil && !f.Src.Equal(net.IP(p.SrcIP[:])) {
		return false
	}
	if f.Dst != nil && !f.Dst.Equal(net.IP(p.DstIP[:])) {
		return false
	}
	return true
}

func MatchFilter(filter string, p Packet) (bool, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return false, err
	}
	return f.Match(p), nil
}
