package environment

import (
	"math/rand/v2"
	"sync"
)

// WeatherSampler draws the rain flag for one simulated day: 1 for rain, 0 for dry.
type WeatherSampler interface {
	SampleRain() int
}

// BernoulliSampler rains with a fixed probability using its own generator.
// It is safe to share between environments, though they then split one
// random stream between them.
type BernoulliSampler struct {
	mu  sync.Mutex
	p   float64
	rng *rand.Rand
}

// NewBernoulliSampler returns a sampler seeded with seed. Two samplers with
// the same probability and seed produce the same sequence.
func NewBernoulliSampler(p float64, seed uint64) *BernoulliSampler {
	return &BernoulliSampler{
		p:   p,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *BernoulliSampler) SampleRain() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.p {
		return 1
	}
	return 0
}

// SequenceSampler replays a fixed rain sequence, wrapping around at the end.
// An empty sequence is always dry.
type SequenceSampler struct {
	mu  sync.Mutex
	seq []int
	pos int
}

func NewSequenceSampler(seq ...int) *SequenceSampler {
	s := make([]int, len(seq))
	copy(s, seq)
	return &SequenceSampler{seq: s}
}

func (s *SequenceSampler) SampleRain() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seq) == 0 {
		return 0
	}
	v := s.seq[s.pos%len(s.seq)]
	s.pos++
	if v != 0 {
		return 1
	}
	return 0
}
