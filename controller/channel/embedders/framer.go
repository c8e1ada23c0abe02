package embedders

import (
	"strconv"
)

// Framer regroups a stream of single bits into characters.
// Bits received first form the first character.
// A Framer belongs to a single receive and is not safe for concurrent use.
type Framer struct {
	bitsPerChar int
	buf         []byte
}

func NewFramer(bitsPerChar int) *Framer {
	if bitsPerChar < 1 || bitsPerChar > MaxBitsPerChar {
		panic("framer: invalid bits per character " + strconv.Itoa(bitsPerChar))
	}
	return &Framer{bitsPerChar: bitsPerChar, buf: make([]byte, 0, bitsPerChar)}
}

// Append a bit. Once bitsPerChar bits are buffered the oldest chunk
// is removed and returned as a character.
// Since bits arrive one at a time at most one character is ready per call.
func (f *Framer) Push(bit byte) (byte, bool) {
	f.buf = append(f.buf, bit&1)
	if len(f.buf) < f.bitsPerChar {
		return 0, false
	}
	var chunk []byte = f.buf[:f.bitsPerChar]
	if len(chunk) != f.bitsPerChar {
		panic("framer: chunk length " + strconv.Itoa(len(chunk)) + " != " + strconv.Itoa(f.bitsPerChar))
	}
	c := Deserialize(chunk)
	f.buf = append(f.buf[:0], f.buf[f.bitsPerChar:]...)
	return c, true
}

// The number of bits waiting for a full character
func (f *Framer) Pending() int {
	return len(f.buf)
}

func (f *Framer) BitsPerChar() int {
	return f.bitsPerChar
}
