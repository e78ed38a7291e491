package monkey

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrMonkey is the injected failure.
var ErrMonkey = errors.New("monkey error")

// Monkey fails calls with a fixed probability.
type Monkey struct {
	chance float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns nil when chance is not positive, which disables injection.
func New(chance float64) *Monkey {
	if chance <= 0 {
		return nil
	}
	return &Monkey{
		chance: chance,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomizeError with some probability replaces a nil error with ErrMonkey.
// Real errors pass through unchanged.
func (m *Monkey) RandomizeError(err error) error {
	if err != nil || m == nil {
		return err
	}
	m.mu.Lock()
	roll := m.rnd.Float64()
	m.mu.Unlock()
	if roll >= m.chance {
		return nil
	}
	return ErrMonkey
}
