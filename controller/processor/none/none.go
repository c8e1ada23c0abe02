package none

// Passes the message through untouched
type None struct{}

func (n *None) Process(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (n *None) Unprocess(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}
