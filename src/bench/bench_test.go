package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/randbench/src/sample"
)

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Count = 10000
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 99999999, opts.Count)
	assert.Equal(t, 42, opts.UpTo)
	assert.EqualValues(t, 99999998, opts.Draws())
	assert.NoError(t, opts.Validate())
}

func TestRun(t *testing.T) {
	result, err := Run(context.Background(), smallOptions())
	require.NoError(t, err)
	assert.EqualValues(t, 9999, result.Draws)
	assert.Equal(t, 42, result.UpTo)
	assert.Equal(t, 1, result.Threads)
	assert.True(t, result.Elapsed >= 0)
	assert.True(t, result.Seconds() >= 0)
	assert.NotEqual(t, uint64(0), result.Seed, "should have picked a seed")
	assert.EqualValues(t, 0, result.Fingerprint)
	assert.Nil(t, result.Counts)
}

func TestRunCountOne(t *testing.T) {
	opts := smallOptions()
	opts.Count = 1
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Draws)
	assert.Equal(t, 0.0, result.NsPerDraw())
}

func TestRunInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  func(*Options)
	}{
		{"upto", func(o *Options) { o.UpTo = 0 }},
		{"count", func(o *Options) { o.Count = 0 }},
		{"threads", func(o *Options) { o.Threads = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := smallOptions()
			tc.mod(&opts)
			_, err := Run(context.Background(), opts)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, sample.ErrInvalidArgument))
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, smallOptions())
	assert.True(t, errors.Is(err, context.Canceled))

	opts := smallOptions()
	opts.Threads = 4
	_, err = Run(ctx, opts)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFingerprintIsReproducible(t *testing.T) {
	opts := smallOptions()
	opts.Seed = 1234
	opts.Fingerprint = true
	r1, err := Run(context.Background(), opts)
	require.NoError(t, err)
	r2, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, uint64(0), r1.Fingerprint)
	assert.Equal(t, r1.Fingerprint, r2.Fingerprint)
	assert.EqualValues(t, 1234, r1.Seed)

	opts.Seed = 4321
	r3, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Fingerprint, r3.Fingerprint)
}

func TestFingerprintWithThreads(t *testing.T) {
	opts := smallOptions()
	opts.Seed = 99
	opts.Threads = 3
	opts.Fingerprint = true
	r1, err := Run(context.Background(), opts)
	require.NoError(t, err)
	r2, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, r1.Threads)
	assert.Equal(t, r1.Fingerprint, r2.Fingerprint)
}

func TestDistribution(t *testing.T) {
	opts := smallOptions()
	opts.Count = 42001
	opts.Threads = 2
	opts.Distribution = true
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, 42, len(result.Counts))
	var total int64
	for i, c := range result.Counts {
		assert.True(t, c > 0, "value %d never drawn", i+1)
		total += c
	}
	assert.Equal(t, result.Draws, total)
}

func TestThreadsAreClampedToDraws(t *testing.T) {
	opts := smallOptions()
	opts.Count = 3
	opts.Threads = 8
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Draws)
	assert.Equal(t, 2, result.Threads)
}

func TestNoDrawsUsesOneWorker(t *testing.T) {
	opts := smallOptions()
	opts.Count = 1
	opts.Threads = 8
	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Draws)
	assert.Equal(t, 1, result.Threads)
	assert.Equal(t, "BenchmarkSample/upto=42-1", strings.Fields(GoBenchLine(result))[0])
}

func TestWorkerSharesAddUp(t *testing.T) {
	opts := smallOptions()
	opts.Threads = 7
	workers := makeWorkers(opts, 1, opts.Draws())
	require.Equal(t, 7, len(workers))
	var total int64
	for i, w := range workers {
		total += w.draws
		assert.EqualValues(t, uint64(1+i), w.sampler.Seed())
	}
	assert.Equal(t, opts.Draws(), total)
}

func TestRunMany(t *testing.T) {
	calls := 0
	summary, err := RunMany(context.Background(), smallOptions(), 3, func(r Result) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, len(summary.Runs))
	assert.True(t, summary.Min <= summary.Mean)
	assert.True(t, summary.Mean <= summary.Max)
}

func TestRunManyCallbackError(t *testing.T) {
	calls := 0
	summary, err := RunMany(context.Background(), smallOptions(), 5, func(r Result) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, len(summary.Runs))
}

func TestRunManyInvalid(t *testing.T) {
	_, err := RunMany(context.Background(), smallOptions(), 0, nil)
	assert.True(t, errors.Is(err, sample.ErrInvalidArgument))
}

func BenchmarkDraw(b *testing.B) {
	s := sample.New(1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Draw(DefaultUpTo)
	}
}
