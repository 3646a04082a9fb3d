// Package bench implements the timed sampling loop: it draws a large number of bounded
// random integers and measures how long that took.
package bench

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/thought-machine/randbench/src/cli/logging"
	"github.com/thought-machine/randbench/src/sample"
)

var log = logging.Log

// DefaultCount is the default sample count; the loop performs one fewer draw than this.
const DefaultCount = 99999999

// DefaultUpTo is the default inclusive upper bound of each sample.
const DefaultUpTo = 42

// chunkSize is the number of draws made between checks of the context.
const chunkSize = 1 << 20

// Options describes a single pass of the sampling loop.
type Options struct {
	// Count is the sample count; the loop performs Count-1 draws.
	Count int
	// UpTo is the inclusive upper bound of each draw.
	UpTo int
	// Seed seeds the generators. Zero means seed from the current time.
	Seed uint64
	// Threads is the number of workers the draws are split across.
	Threads int
	// Fingerprint requests a digest of every value drawn.
	Fingerprint bool
	// Distribution requests a count of how often each value was drawn.
	Distribution bool
}

// DefaultOptions returns the options for a standard run.
func DefaultOptions() Options {
	return Options{
		Count:   DefaultCount,
		UpTo:    DefaultUpTo,
		Threads: 1,
	}
}

// Draws returns the number of samples a pass with these options draws.
func (opts Options) Draws() int64 {
	return int64(opts.Count) - 1
}

// Validate checks that these options describe a runnable pass.
func (opts Options) Validate() error {
	if err := sample.CheckBound(opts.UpTo); err != nil {
		return err
	} else if opts.Count < 1 {
		return fmt.Errorf("sample count must be at least 1, was %d: %w", opts.Count, sample.ErrInvalidArgument)
	} else if opts.Threads < 1 {
		return fmt.Errorf("number of threads must be at least 1, was %d: %w", opts.Threads, sample.ErrInvalidArgument)
	}
	return nil
}

// A Result is the outcome of one pass of the loop.
type Result struct {
	Draws       int64         `json:"draws"`
	UpTo        int           `json:"up_to"`
	Threads     int           `json:"threads"`
	Seed        uint64        `json:"seed,string"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Fingerprint uint64        `json:"fingerprint,string,omitempty"`
	Counts      []int64       `json:"counts,omitempty"`
}

// Seconds returns the elapsed time in seconds.
func (r Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// NsPerDraw returns the mean number of nanoseconds each draw took.
func (r Result) NsPerDraw() float64 {
	if r.Draws <= 0 {
		return 0
	}
	return float64(r.Elapsed.Nanoseconds()) / float64(r.Draws)
}

// Run performs a single timed pass of the sampling loop.
// It only returns early if the options are invalid or the context is cancelled.
func Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	draws := opts.Draws()
	workers := makeWorkers(opts, seed, draws)
	log.Info("Drawing %s samples in [1, %d] across %d worker(s)", humanize.Comma(draws), opts.UpTo, len(workers))

	start := time.Now()
	if len(workers) == 1 {
		if err := workers[0].run(ctx); err != nil {
			return Result{}, err
		}
	} else {
		g, ctx := errgroup.WithContext(ctx)
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.run(ctx)
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}
	elapsed := time.Since(start)

	result := Result{
		Draws:   draws,
		UpTo:    opts.UpTo,
		Threads: len(workers),
		Seed:    seed,
		Elapsed: elapsed,
	}
	if opts.Fingerprint {
		result.Fingerprint = foldFingerprints(workers)
	}
	if opts.Distribution {
		result.Counts = sumCounts(workers, opts.UpTo)
	}
	log.Debug("Pass completed in %s (%0.2f ns/draw)", elapsed, result.NsPerDraw())
	return result, nil
}

// A Summary describes several passes of the loop.
type Summary struct {
	Runs []Result
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// RunMany performs the given number of passes, calling the given function after each one.
// An error from the callback stops any further passes.
func RunMany(ctx context.Context, opts Options, runs int, f func(Result) error) (Summary, error) {
	if runs < 1 {
		return Summary{}, fmt.Errorf("number of runs must be at least 1, was %d: %w", runs, sample.ErrInvalidArgument)
	}
	s := Summary{Runs: make([]Result, 0, runs)}
	var total time.Duration
	for i := 0; i < runs; i++ {
		result, err := Run(ctx, opts)
		if err != nil {
			return s, err
		}
		if f != nil {
			if err := f(result); err != nil {
				return s, err
			}
		}
		if i == 0 || result.Elapsed < s.Min {
			s.Min = result.Elapsed
		}
		if result.Elapsed > s.Max {
			s.Max = result.Elapsed
		}
		total += result.Elapsed
		s.Runs = append(s.Runs, result)
	}
	s.Mean = total / time.Duration(len(s.Runs))
	return s, nil
}

// A worker draws its share of the samples from its own generator.
type worker struct {
	sampler *sample.Sampler
	upTo    int
	draws   int64
	digest  *xxhash.Digest
	counts  []int64
}

func makeWorkers(opts Options, seed uint64, draws int64) []*worker {
	threads := int64(opts.Threads)
	if threads > draws {
		threads = draws // No point having idle workers.
	}
	if threads < 1 {
		threads = 1
	}
	workers := make([]*worker, threads)
	for i := range workers {
		share := draws / threads
		if int64(i) < draws%threads {
			share++
		}
		w := &worker{
			sampler: sample.New(seed + uint64(i)),
			upTo:    opts.UpTo,
			draws:   share,
		}
		if opts.Fingerprint {
			w.digest = xxhash.New()
		}
		if opts.Distribution {
			w.counts = make([]int64, opts.UpTo)
		}
		workers[i] = w
	}
	return workers
}

func (w *worker) run(ctx context.Context) error {
	observed := w.digest != nil || w.counts != nil
	for remaining := w.draws; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := remaining
		if n > chunkSize {
			n = chunkSize
		}
		if observed {
			w.observe(n)
		} else {
			for i := int64(0); i < n; i++ {
				w.sampler.Draw(w.upTo)
			}
		}
		remaining -= n
	}
	return nil
}

// observe is the slower variant of the loop that records what it draws.
func (w *worker) observe(n int64) {
	var buf [8]byte
	for i := int64(0); i < n; i++ {
		v := w.sampler.Draw(w.upTo)
		if w.digest != nil {
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			w.digest.Write(buf[:])
		}
		if w.counts != nil {
			w.counts[v-1]++
		}
	}
}

// foldFingerprints combines each worker's digest, in worker order, into one value.
func foldFingerprints(workers []*worker) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, w := range workers {
		binary.LittleEndian.PutUint64(buf[:], w.digest.Sum64())
		d.Write(buf[:])
	}
	return d.Sum64()
}

func sumCounts(workers []*worker, upTo int) []int64 {
	counts := make([]int64, upTo)
	for _, w := range workers {
		for i, c := range w.counts {
			counts[i] += c
		}
	}
	return counts
}
