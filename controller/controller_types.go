package controller

import (
	"sync"

	"github.com/burakmyildiz/covertovert/controller/channel"
	"github.com/burakmyildiz/covertovert/controller/channel/udpPort"
	"github.com/burakmyildiz/covertovert/controller/processor"
	"github.com/burakmyildiz/covertovert/controller/processor/caesar"
	"github.com/burakmyildiz/covertovert/controller/processor/none"
	"github.com/gorilla/websocket"
)

// The go json library has this really convenient feature
// where if given a json string and a structure,
// it will only decode the values with keys in both json string
// and the structure
// This allows for selecting unmarshalling i.e. unmarshal once
// to get the type, and then unmarshall a second time to get the
// data. This protects against having to always use the same
// struct for communication
type command struct {
	OpCode string
}

type messageType struct {
	OpCode  string
	Message string
}

type configData struct {
	OpCode     string
	Default    defaultConfig
	Processors []processorConfig
	Channel    channelConfig
}

// The defaults are sent to the client so that it can
// show the ranges and descriptions of every parameter
type defaultConfig struct {
	Processor processorData
	Channel   channelData
}

type processorConfig struct {
	Type string
	Data processorData
}

type channelConfig struct {
	Type string
	Data channelData
}

type channelData struct {
	UdpPort udpPort.ConfigClient
}

type processorData struct {
	None   none.ConfigClient
	Caesar caesar.ConfigClient
}

type Layers struct {
	processors []processor.Processor
	channel    channel.Channel

	// Chans for handling closing of the covert channel
	readClose     chan interface{}
	readCloseDone chan interface{}
}

type Controller struct {
	config     configData
	layers     *Layers
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientLock sync.Mutex
	waitGroup  sync.WaitGroup
	clientStop chan interface{}
	recvStop   chan interface{}
	sendStop   chan interface{}
	doneWsSend chan interface{}
	doneWsRecv chan interface{}
	wsSend     chan []byte
	wsRecv     chan []byte
}
