package message

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

const (
	DefaultMinLength = 16
	DefaultMaxLength = 16
)

// Printable ASCII, space included
const alphabet = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

var ErrInvalidLength = errors.New("Invalid message length bounds")

type Generator struct {
	rnd     *rand.Rand
	symbols []byte
}

// A generator that never produces any of the excluded characters,
// typically the channel sentinel
func NewGenerator(seed int64, exclude ...byte) *Generator {
	var symbols []byte
	for i := 0; i < len(alphabet); i++ {
		if !contains(exclude, alphabet[i]) {
			symbols = append(symbols, alphabet[i])
		}
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), symbols: symbols}
}

func NewTimeGenerator(exclude ...byte) *Generator {
	return NewGenerator(time.Now().UnixNano(), exclude...)
}

// A message with a length drawn uniformly from [minLength, maxLength]
func (g *Generator) Random(minLength, maxLength int) ([]byte, error) {
	if minLength < 0 || maxLength < minLength {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidLength, minLength, maxLength)
	}
	if len(g.symbols) == 0 {
		return nil, errors.New("Every character is excluded")
	}
	var n int = minLength + g.rnd.Intn(maxLength-minLength+1)
	var msg []byte = make([]byte, n)
	for i := range msg {
		msg[i] = g.symbols[g.rnd.Intn(len(g.symbols))]
	}
	return msg, nil
}

func contains(set []byte, c byte) bool {
	for _, s := range set {
		if s == c {
			return true
		}
	}
	return false
}

// Append msg as one line to the file at path, creating it if needed.
// Line breaks inside msg are escaped so one message is always one line.
func LogMessage(path string, msg []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	line := strings.NewReplacer("\\", "\\\\", "\n", "\\n", "\r", "\\r").Replace(string(msg))
	if _, err = f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write message log: %w", err)
	}
	return f.Close()
}
