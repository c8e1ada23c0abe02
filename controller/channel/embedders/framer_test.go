package embedders

import (
	"bytes"
	"testing"
)

func TestFramerChunking(t *testing.T) {
	for bitsPerChar := 1; bitsPerChar <= MaxBitsPerChar; bitsPerChar++ {
		var (
			msg  []byte = []byte{0x00, 0x01, 0x7F, 0x55, 0x2A, 0xFF}
			f    *Framer = NewFramer(bitsPerChar)
			out  []byte
			want []byte
		)
		for _, c := range msg {
			want = append(want, Truncate(c, bitsPerChar))
		}
		bits, _ := Serialize(msg, bitsPerChar)
		for i, b := range bits {
			c, ok := f.Push(b)
			// A character is only ready on a chunk boundary
			if ok != ((i+1)%bitsPerChar == 0) {
				t.Fatalf("bitsPerChar %d : bit %d ready = %t", bitsPerChar, i, ok)
			}
			if ok {
				out = append(out, c)
			}
			if f.Pending() != (i+1)%bitsPerChar {
				t.Errorf("bitsPerChar %d : Pending = %d; want %d", bitsPerChar, f.Pending(), (i+1)%bitsPerChar)
			}
		}
		if !bytes.Equal(out, want) {
			t.Errorf("bitsPerChar %d : out = %v; want %v", bitsPerChar, out, want)
		}
	}
}

func TestFramerPartial(t *testing.T) {
	f := NewFramer(8)
	for i := 0; i < 7; i++ {
		if _, ok := f.Push(1); ok {
			t.Errorf("Push %d yielded a character; want none", i)
		}
	}
	if c, ok := f.Push(0); !ok || c != 0xFE {
		t.Errorf("Push = %d, %t; want %d, true", c, ok, 0xFE)
	}
	if f.Pending() != 0 {
		t.Errorf("Pending = %d; want 0", f.Pending())
	}
}

func TestFramerInvalidWidth(t *testing.T) {
	for _, n := range []int{0, -1, 9} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewFramer(%d) did not panic", n)
				}
			}()
			NewFramer(n)
		}()
	}
}
