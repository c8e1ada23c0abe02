package caesar

// Rotates ASCII letters within their own case.
// Every other byte is left alone, so a punctuation sentinel such as '.'
// can never be produced from an ordinary message.
type Caesar struct {
	Shift int8
}

func (c *Caesar) Process(data []byte) ([]byte, error) {
	return rotate(data, int(c.Shift)), nil
}

func (c *Caesar) Unprocess(data []byte) ([]byte, error) {
	return rotate(data, -int(c.Shift)), nil
}

func rotate(data []byte, shift int) []byte {
	var newData []byte = make([]byte, len(data))
	// Normalise to [0, 26)
	shift = ((shift % 26) + 26) % 26
	for i, b := range data {
		switch {
		case b >= 'a' && b <= 'z':
			newData[i] = 'a' + byte((int(b-'a')+shift)%26)
		case b >= 'A' && b <= 'Z':
			newData[i] = 'A' + byte((int(b-'A')+shift)%26)
		default:
			newData[i] = b
		}
	}
	return newData
}
