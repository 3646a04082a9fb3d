// Package main implements bench_json, which formats Go benchmark results
// (for example the output of randbench --format=gobench) into JSON.
package main

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/tools/benchmark/parse"

	"github.com/thought-machine/randbench/src/cli"
	"github.com/thought-machine/randbench/src/cli/logging"
)

var log = logging.Log

type result struct {
	Revision string
	Set      parse.Set
}

var opts = struct {
	Usage     string
	Verbosity cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (higher number = more output)"`
	Revision  string        `long:"revision" description:"The revision this benchmark is for"`
}{
	Usage: `
bench_json reads Go benchmark output on stdin and writes it to stdout as JSON, tagged with a revision.
Lines that aren't benchmark results are ignored.
`,
}

func main() {
	cli.ParseFlagsOrDie("bench_json", &opts)
	cli.InitLogging(opts.Verbosity)
	if err := convert(os.Stdin, os.Stdout, opts.Revision); err != nil {
		log.Fatalf("%s", err)
	}
}

// convert parses benchmark results from r and writes them as JSON to w.
func convert(r io.Reader, w io.Writer, revision string) error {
	set, err := parse.ParseSet(r)
	if err != nil {
		return err
	}
	log.Debug("Parsed %d benchmarks", len(set))
	return json.NewEncoder(w).Encode(&result{
		Revision: revision,
		Set:      set,
	})
}
