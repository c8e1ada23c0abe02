package embedders

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

var (
	ErrInvalidRange      = errors.New("Range minimum exceeds maximum")
	ErrOverlappingRanges = errors.New("Port ranges overlap")
)

// A closed interval of port values
type Range struct {
	Min uint16
	Max uint16
}

func (r Range) Contains(port uint16) bool {
	return port >= r.Min && port <= r.Max
}

func (r Range) Validate() error {
	if r.Min > r.Max {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Overlaps(o Range) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

func (r Range) String() string {
	return "[" + strconv.Itoa(int(r.Min)) + ", " + strconv.Itoa(int(r.Max)) + "]"
}

// Chooses the concrete port used for a bit within its range.
// Only range membership carries information, so any choice is valid.
type PortPicker interface {
	Pick(r Range) uint16
}

// Picks uniformly at random, both endpoints inclusive
type RandomPicker struct {
	mutex sync.Mutex
	r     *rand.Rand
}

func NewRandomPicker() *RandomPicker {
	return &RandomPicker{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *RandomPicker) Pick(r Range) uint16 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.r == nil {
		p.r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.Min + uint16(p.r.Intn(int(r.Max)-int(r.Min)+1))
}

// Always picks the middle of the range
type MidpointPicker struct{}

func (p *MidpointPicker) Pick(r Range) uint16 {
	return uint16((int(r.Min) + int(r.Max)) / 2)
}

// PortEncoder maps a bit to a destination port and back.
// Zero holds the ports for a 0 bit and One the ports for a 1 bit.
type PortEncoder struct {
	Zero   Range
	One    Range
	Picker PortPicker
}

func (e *PortEncoder) Validate() error {
	if err := e.Zero.Validate(); err != nil {
		return errors.New("Zero range " + e.Zero.String() + ": " + err.Error())
	}
	if err := e.One.Validate(); err != nil {
		return errors.New("One range " + e.One.String() + ": " + err.Error())
	}
	if e.Zero.Overlaps(e.One) {
		return ErrOverlappingRanges
	}
	return nil
}

func (e *PortEncoder) SetBit(bit byte) uint16 {
	var picker PortPicker = e.Picker
	if picker == nil {
		picker = &MidpointPicker{}
	}
	if bit == 0 {
		return picker.Pick(e.Zero)
	}
	return picker.Pick(e.One)
}

// Returns false if the port is in neither range.
// Such packets are background traffic and must be ignored.
func (e *PortEncoder) GetBit(port uint16) (byte, bool) {
	if e.Zero.Contains(port) {
		return 0, true
	} else if e.One.Contains(port) {
		return 1, true
	} else {
		return 0, false
	}
}
