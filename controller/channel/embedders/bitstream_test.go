package embedders

import (
	"bytes"
	"testing"
)

func bitString(bits []byte) string {
	var s []byte = make([]byte, len(bits))
	for i, b := range bits {
		s[i] = '0' + b
	}
	return string(s)
}

func TestSerialize(t *testing.T) {
	var cases = []struct {
		msg         string
		bitsPerChar int
		want        string
		truncated   int
	}{
		{"HI", 8, "0100100001001001", 0},
		{".", 8, "00101110", 0},
		{"", 8, "", 0},
		{"A", 7, "1000001", 0},
		{"\xff", 4, "1111", 1},
		{"\x05\x02", 3, "101010", 0},
		{"\x09", 3, "001", 1},
	}
	for i, c := range cases {
		bits, truncated := Serialize([]byte(c.msg), c.bitsPerChar)
		if got := bitString(bits); got != c.want {
			t.Errorf("Case %d : bits = %s; want %s", i, got, c.want)
		}
		if truncated != c.truncated {
			t.Errorf("Case %d : truncated = %d; want %d", i, truncated, c.truncated)
		}
	}
}

func TestSerializeCharTruncation(t *testing.T) {
	bits, lost := SerializeChar(0xAE, 7)
	if !lost {
		t.Errorf("lost = false; want true")
	}
	if Deserialize(bits) != '.' {
		t.Errorf("Deserialize = %q; want '.'", Deserialize(bits))
	}
	if Truncate(0xAE, 7) != '.' {
		t.Errorf("Truncate = %q; want '.'", Truncate(0xAE, 7))
	}
	if Truncate(0xAE, 8) != 0xAE {
		t.Errorf("Truncate = %d; want %d", Truncate(0xAE, 8), 0xAE)
	}
}

func TestDeserializeRoundTrip(t *testing.T) {
	for bitsPerChar := 1; bitsPerChar <= MaxBitsPerChar; bitsPerChar++ {
		for c := 0; c < 256; c++ {
			bits, _ := SerializeChar(byte(c), bitsPerChar)
			if len(bits) != bitsPerChar {
				t.Fatalf("len = %d; want %d", len(bits), bitsPerChar)
			}
			if got := Deserialize(bits); got != Truncate(byte(c), bitsPerChar) {
				t.Errorf("bitsPerChar %d : Deserialize(%d) = %d; want %d", bitsPerChar, c, got, Truncate(byte(c), bitsPerChar))
			}
		}
	}
}

func TestSerializeMessageOrder(t *testing.T) {
	var msg []byte = []byte("covert")
	bits, _ := Serialize(msg, 8)
	var out []byte
	for len(bits) > 0 {
		out = append(out, Deserialize(bits[:8]))
		bits = bits[8:]
	}
	if !bytes.Equal(out, msg) {
		t.Errorf("decoded = %s; want %s", out, msg)
	}
}
