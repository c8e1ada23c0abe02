package transport

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Settings shared by the concrete transports.
// Each transport ignores what it does not use.
type Options struct {
	// The capture device for libpcap based transports
	Device       string
	WriteTimeout time.Duration
}

type Factory func(opts Options) (Transport, error)

var (
	registryMutex sync.Mutex
	registry      map[string]Factory = make(map[string]Factory)
)

// Transports register themselves from init so that programs
// only link the ones they import, e.g. the cgo based pcap transport
func Register(name string, f Factory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	if _, ok := registry[name]; ok {
		panic("transport: Register called twice for " + name)
	}
	registry[name] = f
}

func Open(name string, opts Options) (Transport, error) {
	registryMutex.Lock()
	f, ok := registry[name]
	registryMutex.Unlock()
	if !ok {
		return nil, errors.New("Unknown transport: " + name)
	}
	return f(opts)
}

// The sorted names of the registered transports
func Names() []string {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	var names []string
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
