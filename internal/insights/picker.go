package insights

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Picker chooses one of n canned phrases. Implementations must return a
// value in [0, n) for n > 0.
type Picker interface {
	Pick(n int) int
}

// FirstPicker always picks the first phrase.
type FirstPicker struct{}

func (FirstPicker) Pick(int) int { return 0 }

// RoundRobinPicker cycles through the phrases on successive calls.
type RoundRobinPicker struct {
	next atomic.Uint64
}

func (p *RoundRobinPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	return int((p.next.Add(1) - 1) % uint64(n))
}

// SeededPicker picks pseudo-randomly from a fixed seed, so a given seed
// always yields the same sequence of choices.
type SeededPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededPicker(seed uint64) *SeededPicker {
	return &SeededPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *SeededPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// NewPicker maps a configured strategy name to a Picker.
func NewPicker(strategy string, seed uint64) (Picker, error) {
	switch strategy {
	case "", "first":
		return FirstPicker{}, nil
	case "round-robin":
		return &RoundRobinPicker{}, nil
	case "seeded":
		return NewSeededPicker(seed), nil
	default:
		return nil, fmt.Errorf("unknown picker strategy %q", strategy)
	}
}
