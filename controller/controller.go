package controller

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/burakmyildiz/covertovert/controller/channel/udpPort"
	"github.com/burakmyildiz/covertovert/controller/config"
	"github.com/burakmyildiz/covertovert/controller/processor/caesar"
	"github.com/burakmyildiz/covertovert/controller/processor/none"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// The largest message a read can return to the client
const readBufferSize = 1024

// Constructor for the controller
func CreateController() (*Controller, error) {
	var ctr *Controller = &Controller{
		config:     DefaultConfig(),
		clients:    make(map[*websocket.Conn]bool),
		clientStop: make(chan interface{}),
		recvStop:   make(chan interface{}),
		sendStop:   make(chan interface{}),
		doneWsSend: make(chan interface{}),
		doneWsRecv: make(chan interface{}),
		wsSend:     make(chan []byte),
		wsRecv:     make(chan []byte),
	}
	// Validate the default values
	if err := config.ValidateConfigSet(ctr.config.Default.Processor); err != nil {
		return nil, err
	}
	if err := config.ValidateConfigSet(ctr.config.Default.Channel); err != nil {
		return nil, err
	}
	// Validate all of the active processor configs
	for i := range ctr.config.Processors {
		if err := config.ValidateConfigSet(ctr.config.Processors[i].Data); err != nil {
			return nil, err
		}
	}
	// Validate the active channel config
	if err := config.ValidateConfigSet(ctr.config.Channel.Data); err != nil {
		return nil, err
	}
	go ctr.webReceiveLoop()
	go ctr.webSendLoop()
	return ctr, nil
}

// A default config for the system and all Covert Channels
func DefaultConfig() configData {
	return configData{
		OpCode: "config",
		Default: defaultConfig{
			Processor: defaultProcessor(),
			Channel:   defaultChannel(),
		},
		Processors: []processorConfig{},
		Channel: channelConfig{
			Type: "UdpPort",
			Data: defaultChannel(),
		},
	}
}

func defaultChannel() channelData {
	return channelData{
		UdpPort: udpPort.GetDefault(),
	}
}

func defaultProcessor() processorData {
	return processorData{
		None:   none.GetDefault(),
		Caesar: caesar.GetDefault(),
	}
}

// Callback when receiving a message from the client
func (ctr *Controller) handleMessage(data []byte) []byte {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return toMessage("error", "Unable to read command: "+err.Error())
	}

	// Determine the operation to perform
	switch cmd.OpCode {
	case "open":
		// Close a channel if it is already open
		if err := ctr.handleClose(); err != nil {
			return toMessage("error", "Unable to close channel: "+err.Error())
		} else if err := ctr.handleOpen(data); err != nil {
			return toMessage("error", "Unable to open channel: "+err.Error())
		} else {
			go ctr.readLoop(ctr.layers)
			return toMessage("open", "Open success")
		}
	case "close":
		if err := ctr.handleClose(); err != nil {
			return toMessage("error", "Unable to close channel: "+err.Error())
		} else {
			return toMessage("close", "Close success")
		}
	case "write":
		if err := ctr.handleWrite(data); err != nil {
			return toMessage("error", "Unable to write to channel: "+err.Error())
		} else {
			return toMessage("write", "Message write success")
		}
	case "config":
		if data, err := ctr.handleConfig(); err != nil {
			return toMessage("error", "Could not encode config: "+err.Error())
		} else {
			return data
		}
	default:
		return toMessage("error", "Unknown operation code")
	}
}

// A helper function for preparing responses to the client
// opcode is the type of message, and is one of the valid opCodes from the client or "error"
// data is the message
func toMessage(opcode string, data string) []byte {
	var mt messageType
	mt.OpCode = opcode
	mt.Message = data
	if data, err := json.Marshal(mt); err != nil {
		return []byte("{\"OpCode\" : \"error\", \"Message\" : \"Marshal Error\" }")
	} else {
		return data
	}
}

// Handle the config command
func (ctr *Controller) handleConfig() ([]byte, error) {
	if data, err := json.Marshal(ctr.config); err != nil {
		return nil, err
	} else {
		return data, nil
	}
}

// Handle the write command
func (ctr *Controller) handleWrite(b []byte) error {
	var (
		mt   messageType
		err  error
		data []byte
	)
	if err = json.Unmarshal(b, &mt); err != nil {
		return err
	}
	if ctr.layers == nil {
		return errors.New("Channel closed")
	}

	data = []byte(mt.Message)
	for i := range ctr.layers.processors {
		if data, err = ctr.layers.processors[i].Process(data); err != nil {
			return errors.New("Unable to process outgoing message: " + err.Error())
		}
	}
	if n, err := ctr.layers.channel.Send(data, nil); err != nil {
		return errors.New("Write fail: Wrote " + strconv.FormatUint(n, 10) + " bytes out of " + strconv.Itoa(len(data)) + ": " + err.Error())
	} else {
		return nil
	}
}

// Handle a read operation
func (ctr *Controller) handleRead(l *Layers) ([]byte, error) {

	var (
		buffer [readBufferSize]byte
		data   []byte
	)

	if n, err := l.channel.Receive(buffer[:], nil); err != nil {
		return nil, errors.New("Read fail: Read " + strconv.FormatUint(n, 10) + " bytes out of " + strconv.Itoa(len(buffer)) + " available bytes: " + err.Error())
	} else {
		data = buffer[:n]
		for i := len(l.processors) - 1; i >= 0; i-- {
			if data, err = l.processors[i].Unprocess(data); err != nil {
				return nil, errors.New("Unable to unprocess incoming message: " + err.Error())
			}
		}
	}
	return data, nil
}

// Loop for repeatedly reading from any open Covert Channel.
// Every Receive is a fresh decoding session, so one message is read per iteration.
func (ctr *Controller) readLoop(l *Layers) {
	defer close(l.readCloseDone)
	for {
		select {
		case <-l.readClose:
			return
		default:
		}
		var msg []byte
		data, err := ctr.handleRead(l)
		if err != nil {
			// A read cancelled by handleClose is not worth reporting
			select {
			case <-l.readClose:
				return
			default:
			}
			log.Warn().Err(err).Msg("covert read")
			msg = toMessage("error", err.Error())
		} else {
			msg = toMessage("read", string(data))
		}
		select {
		case ctr.wsSend <- msg:
		case <-l.readClose:
			return
		}
		if err != nil {
			// If there has been a read error wait
			// to avoid a constant stream of data
			// to the UI
			select {
			case <-time.After(time.Second):
			case <-l.readClose:
				return
			}
		}
	}
}

// Handle the close operation
func (ctr *Controller) handleClose() error {
	var err error
	if ctr.layers != nil {
		// The read loop must see readClose before its Receive is cancelled
		close(ctr.layers.readClose)
		err = ctr.layers.channel.Close()
		// We must wait to ensure that the read loop is complete
		<-ctr.layers.readCloseDone
		ctr.layers = nil
		log.Info().Msg("covert channel closed")
	}
	return err
}

// Shutdown the controller
func (ctr *Controller) Shutdown() error {
	var result error
	if err := ctr.webShutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	// The receive loop has stopped so nothing else touches the layers
	if err := ctr.handleClose(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
