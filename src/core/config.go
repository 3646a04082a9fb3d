// Package core contains the configuration and host details shared by the rest of randbench.
package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/please-build/gcfg"
	"github.com/thought-machine/go-flags"

	"github.com/thought-machine/randbench/src/cli"
	"github.com/thought-machine/randbench/src/cli/logging"
	"github.com/thought-machine/randbench/src/sample"
)

var log = logging.Log

// ConfigFileName is the file name for the typical project config.
const ConfigFileName string = ".randbenchconfig"

// LocalConfigFileName is the file name for the local config - this is not normally checked in and used to
// override settings on the local machine.
const LocalConfigFileName string = ".randbenchconfig.local"

// MachineConfigFileName is the file name for the machine-level config - can use this to override things
// for a particular machine (eg. a dedicated benchmarking host).
const MachineConfigFileName = "/etc/randbenchconfig"

// DefaultConfigFiles returns the config files that are read by default, in the order they're applied.
func DefaultConfigFiles() []string {
	return []string{MachineConfigFileName, ConfigFileName, LocalConfigFileName}
}

// A Configuration contains all the settings that can be configured about randbench.
// It's read from git-config style files and can be overridden by flags.
type Configuration struct {
	Bench struct {
		Count      int          `help:"Sample count. The loop performs one fewer draw than this."`
		UpTo       int          `help:"Inclusive upper bound of each sample."`
		Seed       uint64       `help:"Seed for the random generators. Zero seeds from the current time."`
		NumThreads int          `help:"Number of workers to split the draws across."`
		NumRuns    int          `help:"Number of times to repeat the timed loop."`
		Format     OutputFormat `help:"Format to print results in; one of text, json or gobench."`
	}
	Metrics struct {
		PushGatewayURL cli.URL      `help:"URL of a Prometheus pushgateway to send metrics to."`
		PushFrequency  cli.Duration `help:"How often to push metrics while running."`
		PushTimeout    cli.Duration `help:"Timeout on each push to the gateway."`
		CustomLabel    []string     `help:"Extra constant labels as name=command; the label value is the command's output."`
	}
}

// DefaultConfiguration returns the default configuration.
func DefaultConfiguration() *Configuration {
	config := &Configuration{}
	config.Bench.Count = 99999999
	config.Bench.UpTo = 42
	config.Bench.NumThreads = 1
	config.Bench.NumRuns = 1
	config.Bench.Format = TextFormat
	config.Metrics.PushFrequency = cli.Duration(time.Minute)
	config.Metrics.PushTimeout = cli.Duration(2 * time.Second)
	return config
}

func readConfigFile(config *Configuration, filename string) error {
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil // It's not an error to not have the file at all.
	} else if err != nil {
		return fmt.Errorf("error reading config file %s: %w", filename, err)
	}
	log.Debug("Read config from %s", filename)
	return nil
}

// ReadConfigFiles reads config files from the given locations, in order.
// Values are filled in by defaults initially and then overridden by each file in turn.
// On error the returned configuration contains whatever was read up to that point.
// The result isn't validated since flags may still override it; call Validate once that's done.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	return config, nil
}

// Validate checks the configuration for invalid values. All problems found are returned together.
func (config *Configuration) Validate() error {
	var errs *multierror.Error
	if config.Bench.Count < 1 {
		errs = multierror.Append(errs, invalid("bench.count must be at least 1, was %d", config.Bench.Count))
	}
	if config.Bench.UpTo < 1 {
		errs = multierror.Append(errs, invalid("bench.upto must be at least 1, was %d", config.Bench.UpTo))
	}
	if config.Bench.NumThreads < 1 {
		errs = multierror.Append(errs, invalid("bench.numthreads must be at least 1, was %d", config.Bench.NumThreads))
	}
	if config.Bench.NumRuns < 1 {
		errs = multierror.Append(errs, invalid("bench.numruns must be at least 1, was %d", config.Bench.NumRuns))
	}
	if config.Metrics.PushGatewayURL != "" {
		if config.Metrics.PushFrequency <= 0 {
			errs = multierror.Append(errs, invalid("metrics.pushfrequency must be positive"))
		}
		if config.Metrics.PushTimeout <= 0 {
			errs = multierror.Append(errs, invalid("metrics.pushtimeout must be positive"))
		}
	}
	if _, err := config.CustomLabels(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%w: %s", sample.ErrInvalidArgument, err))
	}
	return errs.ErrorOrNil()
}

// invalid returns an error for a bad config value that wraps sample.ErrInvalidArgument.
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sample.ErrInvalidArgument)
}

// CustomLabels returns the custom metric labels as a map of label name to the command producing its value.
func (config *Configuration) CustomLabels() (map[string]string, error) {
	labels := make(map[string]string, len(config.Metrics.CustomLabel))
	for _, label := range config.Metrics.CustomLabel {
		name, cmd, found := strings.Cut(label, "=")
		name = strings.TrimSpace(name)
		cmd = strings.TrimSpace(cmd)
		if !found || name == "" || cmd == "" {
			return nil, fmt.Errorf("invalid metrics.customlabel %q; should be name=command", label)
		} else if _, present := labels[name]; present {
			return nil, fmt.Errorf("duplicate metrics.customlabel %s", name)
		}
		labels[name] = cmd
	}
	return labels, nil
}

// An OutputFormat is a format that results can be printed in.
type OutputFormat string

// The formats we support.
const (
	TextFormat    OutputFormat = "text"
	JSONFormat    OutputFormat = "json"
	GoBenchFormat OutputFormat = "gobench"
)

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (f *OutputFormat) UnmarshalFlag(in string) error {
	switch format := OutputFormat(strings.ToLower(strings.TrimSpace(in))); format {
	case TextFormat, JSONFormat, GoBenchFormat:
		*f = format
		return nil
	}
	return fmt.Errorf("unknown output format %s; should be one of text, json or gobench", in)
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (f *OutputFormat) UnmarshalText(text []byte) error {
	return f.UnmarshalFlag(string(text))
}

// Complete implements the flags.Completer interface.
func (f *OutputFormat) Complete(match string) []flags.Completion {
	ret := []flags.Completion{}
	for _, format := range []OutputFormat{TextFormat, JSONFormat, GoBenchFormat} {
		if strings.HasPrefix(string(format), match) {
			ret = append(ret, flags.Completion{Item: string(format)})
		}
	}
	return ret
}
