package caesar

import (
	"bytes"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	encodeDecode(t, Caesar{Shift: 0}, []byte("HI"), []byte("HI"))
	encodeDecode(t, Caesar{Shift: 3}, []byte("abc xyz"), []byte("def abc"))
	encodeDecode(t, Caesar{Shift: 1}, []byte("Zz"), []byte("Aa"))
	encodeDecode(t, Caesar{Shift: -1}, []byte("Aa"), []byte("Zz"))
	encodeDecode(t, Caesar{Shift: 25}, []byte{}, []byte{})
}

func TestPunctuationUntouched(t *testing.T) {
	c := Caesar{Shift: 13}
	b, _ := c.Process([]byte(".,!? 0123456789\x00\xff"))
	if !bytes.Equal(b, []byte(".,!? 0123456789\x00\xff")) {
		t.Errorf("Non letters changed: got %v", b)
	}
}

func encodeDecode(t *testing.T, c Caesar, b, expected []byte) {
	var bcopy []byte = make([]byte, len(b))
	copy(bcopy, b)

	b2, err := c.Process(b)
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if !bytes.Equal(bcopy, b) {
		t.Errorf("Original array changed")
	}

	for i := range b2 {
		if b2[i] != expected[i] {
			t.Errorf("Byte %d not shifted: got %d expected %d", i, b2[i], expected[i])
		}
	}

	copy(bcopy, b2)

	b3, err := c.Unprocess(b2)
	if err != nil {
		t.Errorf("err = '%s'; want nil", err.Error())
	}
	if !bytes.Equal(bcopy, b2) {
		t.Errorf("Original array changed")
	}
	if !bytes.Equal(b, b3) {
		t.Errorf("Original array not restored on decode")
	}
}
