package router

import "math/rand/v2"

// Default sampler probabilities.
const (
	DefaultRandomProbability   = 0.01
	DefaultLivenessProbability = 0.01
)

// Sampler rolls the randomized behaviors for one message. It is stateless;
// each call draws fresh values from Rand.
type Sampler struct {
	// P1 is the chance a random function fires at all.
	P1 float64
	// P2 is the chance, given P1 fired, of the liveness reply.
	P2 float64
	// Rand returns a value in [0, 1). Nil means math/rand/v2.
	Rand func() float64
}

// NewSampler returns a sampler with the default probabilities.
func NewSampler() Sampler {
	return Sampler{P1: DefaultRandomProbability, P2: DefaultLivenessProbability}
}

// Roll reports whether the random-function branch fired and, nested within
// it, whether the liveness reply fired.
func (s Sampler) Roll() (random, liveness bool) {
	draw := s.Rand
	if draw == nil {
		draw = rand.Float64
	}
	if draw() >= s.P1 {
		return false, false
	}
	return true, draw() < s.P2
}
