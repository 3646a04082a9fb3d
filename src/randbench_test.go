package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/randbench/src/core"
	"github.com/thought-machine/randbench/src/sample"
)

var completedRe = regexp.MustCompile(`^Completed in [0-9]+(\.[0-9]+)? seconds!$`)

func smallConfig() *core.Configuration {
	config := core.DefaultConfiguration()
	config.Bench.Count = 5000
	return config
}

func TestRunPrintsCompletedLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), smallConfig(), &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 1, len(lines))
	assert.Regexp(t, completedRe, lines[0])
}

func TestRunMultipleRuns(t *testing.T) {
	config := smallConfig()
	config.Bench.NumRuns = 3
	config.Bench.NumThreads = 2
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), config, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, 3, len(lines))
	for _, line := range lines {
		assert.Regexp(t, completedRe, line)
	}
}

func TestRunJSON(t *testing.T) {
	config := smallConfig()
	config.Bench.Format = core.JSONFormat
	config.Bench.Seed = 17
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), config, &buf))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 4999, decoded["draws"])
	assert.Equal(t, "17", decoded["seed"])
	assert.Contains(t, decoded, "host")
}

func TestRunGoBench(t *testing.T) {
	config := smallConfig()
	config.Bench.Format = core.GoBenchFormat
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), config, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "BenchmarkSample/upto=42-1\t4999\t"))
}

func TestRunInvalidConfig(t *testing.T) {
	config := smallConfig()
	config.Bench.UpTo = 0
	var buf bytes.Buffer
	assert.Error(t, run(context.Background(), config, &buf))
	assert.Equal(t, "", buf.String())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.Error(t, run(ctx, smallConfig(), &buf))
}

func TestApplyFlags(t *testing.T) {
	old := opts.Bench
	defer func() { opts.Bench = old }()
	config := core.DefaultConfiguration()
	config.Bench.UpTo = 6
	count, seed, format := 100, uint64(3), core.GoBenchFormat
	opts.Bench.Count = &count
	opts.Bench.Seed = &seed
	opts.Bench.Format = &format
	applyFlags(config)
	assert.Equal(t, 100, config.Bench.Count)
	assert.Equal(t, 6, config.Bench.UpTo, "unset flags shouldn't override config")
	assert.EqualValues(t, 3, config.Bench.Seed)
	assert.Equal(t, 1, config.Bench.NumThreads)
	assert.Equal(t, core.GoBenchFormat, config.Bench.Format)

	opts.Bench.Fingerprint = true
	bopts := benchOptions(config)
	assert.True(t, bopts.Fingerprint)
	assert.False(t, bopts.Distribution)
	assert.Equal(t, 100, bopts.Count)
}

func TestApplyFlagsExplicitZeroUpTo(t *testing.T) {
	old := opts.Bench
	defer func() { opts.Bench = old }()
	config := core.DefaultConfiguration()
	upTo := 0
	opts.Bench.UpTo = &upTo
	applyFlags(config)
	assert.Equal(t, 0, config.Bench.UpTo)
	err := config.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sample.ErrInvalidArgument))
}

func TestApplyFlagsExplicitZeroes(t *testing.T) {
	old := opts.Bench
	defer func() { opts.Bench = old }()
	config := core.DefaultConfiguration()
	config.Bench.Seed = 5
	count, threads, seed := 0, 0, uint64(0)
	opts.Bench.Count = &count
	opts.Bench.NumThreads = &threads
	opts.Bench.Seed = &seed
	applyFlags(config)
	assert.Equal(t, 0, config.Bench.Count)
	assert.Equal(t, 0, config.Bench.NumThreads)
	assert.EqualValues(t, 0, config.Bench.Seed, "--seed=0 should go back to seeding from the time")
	err := config.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sample.ErrInvalidArgument))
}
