package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/thought-machine/randbench/src/core"
)

// A Reporter prints results in one of the supported output formats.
type Reporter struct {
	w      io.Writer
	format core.OutputFormat
	// Host is included in JSON output when set.
	Host *core.Host
}

// NewReporter returns a new Reporter writing to the given writer.
func NewReporter(w io.Writer, format core.OutputFormat) *Reporter {
	return &Reporter{w: w, format: format}
}

// jsonResult is the shape of each line of JSON output.
type jsonResult struct {
	Version   string     `json:"version"`
	Seconds   float64    `json:"seconds"`
	NsPerDraw float64    `json:"ns_per_draw"`
	Host      *core.Host `json:"host,omitempty"`
	Result
}

// Report prints a single result.
func (r *Reporter) Report(result Result) error {
	switch r.format {
	case core.JSONFormat:
		return json.NewEncoder(r.w).Encode(jsonResult{
			Version:   core.RandbenchVersion.String(),
			Seconds:   result.Seconds(),
			NsPerDraw: result.NsPerDraw(),
			Host:      r.Host,
			Result:    result,
		})
	case core.GoBenchFormat:
		_, err := fmt.Fprintln(r.w, GoBenchLine(result))
		return err
	}
	_, err := fmt.Fprintln(r.w, Completed(result))
	return err
}

// Completed returns the classic one-line description of a result, e.g.
// "Completed in 1.2345 seconds!".
func Completed(result Result) string {
	return "Completed in " + strconv.FormatFloat(result.Seconds(), 'f', -1, 64) + " seconds!"
}

// GoBenchLine formats a result in the same way as `go test -bench` does.
func GoBenchLine(result Result) string {
	return fmt.Sprintf("BenchmarkSample/upto=%d-%d\t%d\t%.2f ns/op", result.UpTo, result.Threads, result.Draws, result.NsPerDraw())
}
