package processor

// Processors transform a message before it is sent (Process) and
// after it is received (Unprocess). Unprocess must invert Process.
type Processor interface {
	Process(data []byte) ([]byte, error)
	Unprocess(data []byte) ([]byte, error)
}
