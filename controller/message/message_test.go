package message

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRandomExcludesSentinel(t *testing.T) {
	g := NewGenerator(1, '.')
	for i := 0; i < 200; i++ {
		msg, err := g.Random(16, 16)
		if err != nil {
			t.Fatalf("err = '%s'; want nil", err.Error())
		}
		if len(msg) != 16 {
			t.Errorf("len = %d; want 16", len(msg))
		}
		if bytes.IndexByte(msg, '.') >= 0 {
			t.Errorf("message '%s' contains the sentinel", msg)
		}
		for _, c := range msg {
			if c < 0x20 || c > 0x7e {
				t.Errorf("character %d not printable", c)
			}
		}
	}
}

func TestRandomLengthBounds(t *testing.T) {
	g := NewGenerator(2)
	var seen map[int]bool = make(map[int]bool)
	for i := 0; i < 500; i++ {
		msg, err := g.Random(2, 5)
		if err != nil {
			t.Fatalf("err = '%s'; want nil", err.Error())
		}
		if len(msg) < 2 || len(msg) > 5 {
			t.Errorf("len = %d; want within [2, 5]", len(msg))
		}
		seen[len(msg)] = true
	}
	if len(seen) != 4 {
		t.Errorf("lengths seen = %v; want all of 2..5", seen)
	}

	if _, err := g.Random(5, 2); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("err = %v; want %v", err, ErrInvalidLength)
	}
	if msg, err := g.Random(0, 0); err != nil || len(msg) != 0 {
		t.Errorf("Random(0, 0) = '%s', %v; want empty", msg, err)
	}
}

func TestSameSeedSameMessage(t *testing.T) {
	a, _ := NewGenerator(42, '.').Random(8, 32)
	b, _ := NewGenerator(42, '.').Random(8, 32)
	if !bytes.Equal(a, b) {
		t.Errorf("'%s' != '%s'", a, b)
	}
}

func TestLogMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent.log")
	if err := LogMessage(path, []byte("first")); err != nil {
		t.Fatalf("err = '%s'; want nil", err.Error())
	}
	if err := LogMessage(path, []byte("two\nlines")); err != nil {
		t.Fatalf("err = '%s'; want nil", err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("err = '%s'; want nil", err.Error())
	}
	if string(data) != "first\ntwo\\nlines\n" {
		t.Errorf("log = %q", data)
	}
}
