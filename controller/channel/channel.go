package channel

// A covert channel moves a message between two hosts by hiding it in
// otherwise ordinary traffic. Receive blocks until a whole message has
// arrived or the channel is closed; Send returns once every packet
// carrying the message has been handed to the network.
// Both report progress in characters on the optional progress channel.
type Channel interface {
	Receive(data []byte, progress chan<- uint64) (uint64, error)
	Send(data []byte, progress chan<- uint64) (uint64, error)
	Close() error
}
