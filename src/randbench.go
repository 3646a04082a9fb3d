package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/thought-machine/randbench/src/bench"
	"github.com/thought-machine/randbench/src/cli"
	"github.com/thought-machine/randbench/src/cli/logging"
	"github.com/thought-machine/randbench/src/core"
	"github.com/thought-machine/randbench/src/metrics"
	"github.com/thought-machine/randbench/src/sample"
)

var log = logging.Log

var opts = struct {
	Usage         string
	Verbosity     cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (higher number = more output)"`
	LogFile       cli.Filepath  `long:"log_file" description:"File to echo full logging output to"`
	LogFileLevel  cli.Verbosity `long:"log_file_level" default:"debug" description:"Log level for file output"`
	Config        cli.Filepaths `short:"c" long:"config" description:"Additional config files to read, after the default ones"`
	Version       bool          `long:"version" description:"Print the version of the tool"`
	AssertVersion cli.Version   `long:"assert_version" hidden:"true" description:"Assert the tool matches this version."`

	Bench struct {
		Count        *int               `short:"n" long:"count" description:"Sample count; the loop performs one fewer draw than this"`
		UpTo         *int               `short:"u" long:"upto" description:"Inclusive upper bound of each sample"`
		Seed         *uint64            `short:"s" long:"seed" description:"Seed for the random generators; 0 seeds from the current time"`
		NumThreads   *int               `short:"t" long:"num_threads" description:"Number of workers to split the draws across"`
		NumRuns      *int               `short:"r" long:"num_runs" description:"Number of times to repeat the timed loop"`
		Format       *core.OutputFormat `short:"f" long:"format" description:"Format to print results in (text, json or gobench)"`
		Fingerprint  bool               `long:"fingerprint" description:"Compute a digest of every value drawn, for comparing runs with the same seed"`
		Distribution bool               `long:"distribution" description:"Count how often each value is drawn and log how uniform that was"`
	} `group:"Benchmark options"`
}{
	Usage: `
randbench times how long it takes to draw a large number of bounded random integers.

By default it draws 99,999,998 integers in [1, 42] on a single thread and prints
"Completed in <seconds> seconds!". Defaults can be changed in .randbenchconfig files
or overridden with the flags below.
`,
}

func main() {
	cli.ParseFlagsOrDie("randbench", &opts)
	if opts.Version {
		fmt.Printf("randbench version %s\n", core.RandbenchVersion)
		os.Exit(0)
	}
	cli.InitLogging(opts.Verbosity)
	if opts.LogFile != "" {
		cli.InitFileLogging(string(opts.LogFile), opts.LogFileLevel)
	}
	if opts.AssertVersion.IsSet && !opts.AssertVersion.Satisfies(core.RandbenchVersion) {
		log.Fatalf("Requested randbench version %s, but this is version %s", opts.AssertVersion, core.RandbenchVersion)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warning("Failed to set GOMAXPROCS: %s", err)
	}

	config, err := core.ReadConfigFiles(append(core.DefaultConfigFiles(), opts.Config.AsStrings()...))
	if err != nil {
		log.Fatalf("%s", err)
	}
	applyFlags(config)
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	metrics.InitFromConfig(config)
	cli.AtExit(metrics.Stop)
	ctx, cancel := context.WithCancel(context.Background())
	cli.AtExit(cancel)

	err = run(ctx, config, os.Stdout)
	cancel()
	metrics.Stop()
	cli.CloseFileLogging()
	if err != nil {
		log.Fatalf("%s", err)
	}
}

// applyFlags overrides any config values that were given explicitly on the command line.
// Flags that were given are applied even if they're zero, so Validate can reject them.
func applyFlags(config *core.Configuration) {
	if opts.Bench.Count != nil {
		config.Bench.Count = *opts.Bench.Count
	}
	if opts.Bench.UpTo != nil {
		config.Bench.UpTo = *opts.Bench.UpTo
	}
	if opts.Bench.Seed != nil {
		config.Bench.Seed = *opts.Bench.Seed
	}
	if opts.Bench.NumThreads != nil {
		config.Bench.NumThreads = *opts.Bench.NumThreads
	}
	if opts.Bench.NumRuns != nil {
		config.Bench.NumRuns = *opts.Bench.NumRuns
	}
	if opts.Bench.Format != nil {
		config.Bench.Format = *opts.Bench.Format
	}
}

// benchOptions converts the configuration into options for the loop.
func benchOptions(config *core.Configuration) bench.Options {
	return bench.Options{
		Count:        config.Bench.Count,
		UpTo:         config.Bench.UpTo,
		Seed:         config.Bench.Seed,
		Threads:      config.Bench.NumThreads,
		Fingerprint:  opts.Bench.Fingerprint,
		Distribution: opts.Bench.Distribution,
	}
}

// run runs the configured number of passes and writes each result to the given writer.
func run(ctx context.Context, config *core.Configuration, w io.Writer) error {
	host := core.HostInfo()
	log.Debug("Running on %s_%s, %d CPUs (%s), %s memory", host.OS, host.Arch, host.CPUCount, host.CPUModel, humanize.Bytes(host.MemoryTotal))
	reporter := bench.NewReporter(w, config.Bench.Format)
	if config.Bench.Format == core.JSONFormat {
		reporter.Host = &host
	}
	summary, err := bench.RunMany(ctx, benchOptions(config), config.Bench.NumRuns, func(result bench.Result) error {
		metrics.Record(result, nil)
		log.Info("Drew %s samples in %s (%0.2f ns/draw)", humanize.Comma(result.Draws), result.Elapsed, result.NsPerDraw())
		if result.Fingerprint != 0 {
			log.Notice("Fingerprint for seed %d: %016x", result.Seed, result.Fingerprint)
		}
		if result.Counts != nil {
			logDistribution(result.Counts)
		}
		return reporter.Report(result)
	})
	if err != nil {
		metrics.Record(bench.Result{}, err)
		return err
	}
	if len(summary.Runs) > 1 {
		log.Notice("%d runs: min %s, mean %s, max %s", len(summary.Runs), summary.Min, summary.Mean, summary.Max)
	}
	return nil
}

// logDistribution logs how far the drawn values were from uniform.
func logDistribution(counts []int64) {
	ints := make([]int, len(counts))
	for i, c := range counts {
		ints[i] = int(c)
		log.Debug("%4d: %s", i+1, humanize.Comma(c))
	}
	log.Notice("Chi-squared against uniform over %d values: %0.3f (%d degrees of freedom)", len(counts), sample.ChiSquared(ints), len(counts)-1)
}
