// Package sample draws bounded random integers from a generator owned by the caller.
//
// A Sampler is not safe for concurrent use; callers running several workers
// should give each one its own Sampler.
package sample

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
)

// ErrInvalidArgument is returned (wrapped) when a bound is out of contract.
var ErrInvalidArgument = errors.New("invalid argument")

// A Sampler draws integers uniformly from [1, upTo].
type Sampler struct {
	rng  *rand.Rand
	seed uint64
}

// New returns a Sampler seeded with the given seed. The same seed always
// produces the same sequence of samples.
func New(seed uint64) *Sampler {
	return &Sampler{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// NewFromTime returns a Sampler seeded from the current time.
func NewFromTime() *Sampler {
	return New(uint64(time.Now().UnixNano()))
}

// Seed returns the seed this Sampler was created with.
func (s *Sampler) Seed() uint64 {
	return s.seed
}

// Sample returns a uniformly distributed integer in [1, upTo].
func (s *Sampler) Sample(upTo int) (int, error) {
	if err := CheckBound(upTo); err != nil {
		return 0, err
	}
	return s.Draw(upTo), nil
}

// Draw is like Sample but does not validate upTo, which must already have
// passed CheckBound. It panics if upTo < 1.
func (s *Sampler) Draw(upTo int) int {
	return s.rng.Intn(upTo) + 1
}

// CheckBound returns an error wrapping ErrInvalidArgument if upTo cannot be sampled from.
func CheckBound(upTo int) error {
	if upTo < 1 {
		return fmt.Errorf("upper bound must be at least 1, was %d: %w", upTo, ErrInvalidArgument)
	}
	return nil
}

// Tally draws the given number of samples and returns how often each value was seen;
// counts[i] is the number of times i+1 was drawn.
func Tally(s *Sampler, upTo, trials int) ([]int, error) {
	if err := CheckBound(upTo); err != nil {
		return nil, err
	} else if trials < 0 {
		return nil, fmt.Errorf("number of trials must not be negative, was %d: %w", trials, ErrInvalidArgument)
	}
	counts := make([]int, upTo)
	for i := 0; i < trials; i++ {
		counts[s.Draw(upTo)-1]++
	}
	return counts, nil
}

// ChiSquared returns Pearson's chi-squared statistic for the given counts against
// a uniform distribution over the same number of values.
// It returns 0 if there are no observations.
func ChiSquared(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 || len(counts) == 0 {
		return 0
	}
	expected := float64(total) / float64(len(counts))
	stat := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	return stat
}
