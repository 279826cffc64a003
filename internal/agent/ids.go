package agent

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"
)

const (
	idAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idPrefixLength = 8
)

// IDGenerator mints identifiers of the form "<prefix>-<counter>", e.g.
// "a3Ks9mPq-0000". The prefix is random per instance and the counter is
// zero-padded to four digits, growing wider once it passes 9999.
// It is safe for concurrent use.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator creates a generator with a fresh random prefix
func NewIDGenerator() (*IDGenerator, error) {
	prefix, err := randomPrefix(idPrefixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate id prefix: %w", err)
	}
	return &IDGenerator{prefix: prefix}, nil
}

// newIDGeneratorWithPrefix is used by tests that need deterministic ids
func newIDGeneratorWithPrefix(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Prefix returns the instance prefix
func (g *IDGenerator) Prefix() string {
	return g.prefix
}

// Next returns the next unique identifier
func (g *IDGenerator) Next() string {
	n := g.counter.Add(1) - 1
	return fmt.Sprintf("%s-%04d", g.prefix, n)
}

func randomPrefix(length int) (string, error) {
	max := big.NewInt(int64(len(idAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = idAlphabet[n.Int64()]
	}
	return string(buf), nil
}
