package embedders

// Bits are stored one per byte, each either 0 or 1.
// This keeps the framer and mapper trivial at the cost of memory,
// which is irrelevant at one packet per bit.

const MaxBitsPerChar = 8

// Render a single character as bitsPerChar bits, most significant bit first.
// Only the low order bitsPerChar bits are kept. The second return value
// reports whether any set bits were discarded.
func SerializeChar(c byte, bitsPerChar int) ([]byte, bool) {
	var bits []byte = make([]byte, bitsPerChar)
	for i := 0; i < bitsPerChar; i++ {
		bits[i] = (c >> uint(bitsPerChar-1-i)) & 1
	}
	return bits, bitsPerChar < MaxBitsPerChar && c>>uint(bitsPerChar) != 0
}

// Serialize the whole message in order.
// The number of characters that were truncated is returned so that the caller
// may warn about it. Truncation is accepted, not an error.
func Serialize(msg []byte, bitsPerChar int) ([]byte, int) {
	var (
		bits      []byte = make([]byte, 0, len(msg)*bitsPerChar)
		truncated int
	)
	for _, c := range msg {
		b, lost := SerializeChar(c, bitsPerChar)
		if lost {
			truncated += 1
		}
		bits = append(bits, b...)
	}
	return bits, truncated
}

// Interpret the chunk as an unsigned big endian integer
func Deserialize(chunk []byte) byte {
	var c byte
	for _, b := range chunk {
		c = (c << 1) | (b & 1)
	}
	return c
}

// The character a receiver would decode after c has been sent with bitsPerChar bits
func Truncate(c byte, bitsPerChar int) byte {
	if bitsPerChar >= MaxBitsPerChar {
		return c
	}
	return c & byte((1<<uint(bitsPerChar))-1)
}
