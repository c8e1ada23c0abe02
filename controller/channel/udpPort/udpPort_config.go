package udpPort

import (
	"errors"
	"io"
	"math/rand"
	"time"

	"github.com/burakmyildiz/covertovert/controller/channel/embedders"
	"github.com/burakmyildiz/covertovert/controller/channel/transport"
	"github.com/burakmyildiz/covertovert/controller/config"
)

type ConfigClient struct {
	FriendIP     config.IPV4Param
	OriginIP     config.IPV4Param
	OriginPort   config.U16Param
	RangeA       config.PortRangeParam
	RangeB       config.PortRangeParam
	BitsPerChar  config.U8Param
	Sentinel     config.CharParam
	Filter       config.StringParam
	Transport    config.SelectParam
	Device       config.StringParam
	Picker       config.SelectParam
	GetDelay     config.SelectParam
	Delay        config.U64Param
	WriteTimeout config.U64Param
	ReadTimeout  config.U64Param
}

func GetDefault() ConfigClient {
	return ConfigClient{
		FriendIP:     config.MakeIPV4("127.0.0.1", config.Display{Description: "Your friends IP Address."}),
		OriginIP:     config.MakeIPV4("127.0.0.1", config.Display{Description: "Your IP Address."}),
		OriginPort:   config.MakeU16(8124, [2]uint16{0, 65535}, config.Display{Description: "The source port of every covert datagram."}),
		RangeA:       config.MakePortRange(10000, 20000, config.Display{Description: "Destination ports that carry a 0 bit.", Group: "Ports"}),
		RangeB:       config.MakePortRange(30000, 40000, config.Display{Description: "Destination ports that carry a 1 bit.", Group: "Ports"}),
		BitsPerChar:  config.MakeU8(8, [2]uint8{1, embedders.MaxBitsPerChar}, config.Display{Description: "Bits sent per character. Higher bits of wider characters are dropped."}),
		Sentinel:     config.MakeChar(".", config.Display{Description: "The character that ends a message."}),
		Filter:       config.MakeString(DefaultFilter, config.Display{Description: "The capture filter, e.g. udp and src host 10.0.0.1"}),
		Transport:    config.MakeSelect("memory", []string{"memory", "raw", "pcap"}, config.Display{Description: "How packets are sent and captured."}),
		Device:       config.MakeString("lo", config.Display{Description: "The capture device for the pcap transport."}),
		Picker:       config.MakeSelect("random", []string{"random", "midpoint"}, config.Display{Description: "How a port is chosen within a range."}),
		GetDelay:     config.MakeSelect("none", []string{"none", "fixed", "random"}, config.Display{Description: "The function to use for inter packet delay."}),
		Delay:        config.MakeU64(0, [2]uint64{0, 60000}, config.Display{Description: "The inter packet delay (or its maximum if random) in milliseconds."}),
		WriteTimeout: config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The Write Timeout in milliseconds."}),
		ReadTimeout:  config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The Read Timeout in milliseconds."}),
	}
}

// Build the runtime Config without opening the transport
func (cc ConfigClient) toConfig() (Config, error) {
	var c Config
	var err error
	if err = config.Validate(cc); err != nil {
		return c, err
	}
	if c.FriendIP, err = cc.FriendIP.GetValue(); err != nil {
		return c, errors.New("Invalid FriendIP value")
	}
	if c.OriginIP, err = cc.OriginIP.GetValue(); err != nil {
		return c, errors.New("Invalid OriginIP value")
	}
	if c.Sentinel, err = cc.Sentinel.GetValue(); err != nil {
		return c, errors.New("Invalid Sentinel value")
	}
	c.OriginPort = cc.OriginPort.Value
	c.BitsPerChar = int(cc.BitsPerChar.Value)
	c.Filter = cc.Filter.Value
	c.ReadTimeout = time.Duration(cc.ReadTimeout.Value) * time.Millisecond

	c.Encoder = embedders.PortEncoder{
		Zero: embedders.Range{Min: cc.RangeA.Value[0], Max: cc.RangeA.Value[1]},
		One:  embedders.Range{Min: cc.RangeB.Value[0], Max: cc.RangeB.Value[1]},
	}
	switch cc.Picker.Value {
	case "random":
		c.Encoder.Picker = embedders.NewRandomPicker()
	case "midpoint":
		c.Encoder.Picker = &embedders.MidpointPicker{}
	default:
		return c, errors.New("Invalid picker value")
	}
	if err = c.Encoder.Validate(); err != nil {
		return c, err
	}

	var delay time.Duration = time.Duration(cc.Delay.Value) * time.Millisecond
	switch cc.GetDelay.Value {
	case "none":
	case "fixed":
		c.GetDelay = func() time.Duration { return delay }
	case "random":
		if delay > 0 {
			c.GetDelay = func() time.Duration { return time.Duration(rand.Int63n(int64(delay) + 1)) }
		}
	default:
		return c, errors.New("Invalid delay function")
	}
	return c, nil
}

func ToChannel(cc ConfigClient) (*Channel, error) {
	c, err := cc.toConfig()
	if err != nil {
		return nil, err
	}
	c.Transport, err = transport.Open(cc.Transport.Value, transport.Options{
		Device:       cc.Device.Value,
		WriteTimeout: time.Duration(cc.WriteTimeout.Value) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	ch, err := MakeChannel(c)
	if err != nil {
		if cl, ok := c.Transport.(io.Closer); ok {
			cl.Close()
		}
		return nil, err
	}
	return ch, nil
}
