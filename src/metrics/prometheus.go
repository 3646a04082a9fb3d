// Package metrics contains support for reporting metrics to an external server,
// currently a Prometheus pushgateway. Because randbench runs as a transient process
// we can't wait around for Prometheus to call us, we've got to push to them.
package metrics

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/randbench/src/bench"
	"github.com/thought-machine/randbench/src/core"
)

var log = logging.MustGetLogger("metrics")

// This is the maximum number of errors after which we will stop attempting to send metrics.
const maxErrors = 3

// jobName is the pushgateway job that metrics are grouped under.
const jobName = "randbench"

type metrics struct {
	pusher       *push.Pusher
	ticker       *time.Ticker
	timeout      time.Duration
	mutex        sync.Mutex
	newMetrics   bool
	cancelled    bool
	errors       int
	pushes       int
	drawCounter  prometheus.Counter
	runCounter   *prometheus.CounterVec
	runHistogram prometheus.Histogram
	nsPerDraw    prometheus.Gauge
}

// m is the singleton metrics instance.
var m *metrics

// InitFromConfig sets up the initial metrics from the configuration.
// It does nothing if no pushgateway is configured.
func InitFromConfig(config *core.Configuration) {
	if config.Metrics.PushGatewayURL == "" {
		return
	}
	labels, err := config.CustomLabels()
	if err != nil {
		log.Fatalf("%s", err)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Fatalf("%s", r)
		}
	}()
	m = initMetrics(config.Metrics.PushGatewayURL.String(), time.Duration(config.Metrics.PushFrequency),
		time.Duration(config.Metrics.PushTimeout), labels)
}

// initMetrics initialises a new metrics instance.
// This is deliberately not exposed but is useful for testing.
func initMetrics(url string, frequency, timeout time.Duration, customLabels map[string]string) *metrics {
	u, err := user.Current()
	if err != nil {
		log.Warning("Can't determine current user name for metrics")
		u = &user.User{Username: "unknown"}
	}
	constLabels := prometheus.Labels{
		"user": u.Username,
		"arch": runtime.GOOS + "_" + runtime.GOARCH,
	}
	for k, v := range customLabels {
		constLabels[k] = deriveLabelValue(v)
	}

	m := &metrics{
		timeout: timeout,
		ticker:  time.NewTicker(frequency),
	}

	// Total number of samples drawn.
	m.drawCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sample_draws",
		Help:        "Count of random samples drawn",
		ConstLabels: constLabels,
	})

	// Passes of the timed loop.
	m.runCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sample_runs",
		Help:        "Count of passes of the timed sampling loop",
		ConstLabels: constLabels,
	}, []string{"success"})

	// Wall-clock durations of each pass.
	m.runHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "sample_run_duration_seconds",
		Help:        "Durations of each pass of the timed sampling loop",
		Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		ConstLabels: constLabels,
	})

	// Mean cost of a draw in the most recent pass.
	m.nsPerDraw = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "sample_ns_per_draw",
		Help:        "Mean nanoseconds per draw in the most recent pass",
		ConstLabels: constLabels,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(m.drawCounter, m.runCounter, m.runHistogram, m.nsPerDraw)
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	m.pusher = push.New(url, jobName).Gatherer(registry).Grouping("instance", hostname)

	go m.keepPushing()

	return m
}

// Stop shuts down the metrics and ensures the final ones are sent before returning.
func Stop() {
	if m != nil {
		m.stop()
	}
}

func (m *metrics) stop() {
	m.ticker.Stop()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.cancelled {
		m.errors = m.pushMetrics()
	}
}

// Record records metrics for a single pass of the loop. err is the error the pass failed with, if any.
func Record(result bench.Result, err error) {
	if m != nil {
		m.record(result, err)
	}
}

func (m *metrics) record(result bench.Result, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err != nil {
		m.runCounter.WithLabelValues(b(false)).Inc()
	} else {
		m.runCounter.WithLabelValues(b(true)).Inc()
		m.drawCounter.Add(float64(result.Draws))
		m.runHistogram.Observe(result.Seconds())
		m.nsPerDraw.Set(result.NsPerDraw())
	}
	m.newMetrics = true
}

func b(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func (m *metrics) keepPushing() {
	for range m.ticker.C {
		m.mutex.Lock()
		m.errors = m.pushMetrics()
		if m.errors >= maxErrors {
			log.Warning("Metrics don't seem to be working, giving up")
			m.cancelled = true
			m.mutex.Unlock()
			return
		}
		m.mutex.Unlock()
	}
}

// deadline applies a deadline to an arbitrary function and returns when either the function
// completes or the deadline expires.
func deadline(f func() error, timeout time.Duration) error {
	c := make(chan error, 1)
	go func() {
		c <- f()
	}()
	select {
	case err := <-c:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("Metrics push timed out")
	}
}

// pushMetrics attempts to send some new metrics to the server. It returns the new number of errors.
// The caller must hold the mutex.
func (m *metrics) pushMetrics() int {
	if !m.newMetrics {
		return m.errors
	}
	start := time.Now()
	m.newMetrics = false
	if err := deadline(m.pusher.Add, m.timeout); err != nil {
		log.Warning("Could not push metrics to the gateway: %s", err)
		m.newMetrics = true
		return m.errors + 1
	}
	m.pushes++
	log.Debug("Push #%d of metrics in %0.3fs", m.pushes, time.Since(start).Seconds())
	return 0
}

// deriveLabelValue runs a command and returns its output.
// It panics if the command can't be run; we'd rather not start at all than push inconsistent labels.
func deriveLabelValue(cmd string) string {
	parts, err := shlex.Split(cmd)
	if err != nil {
		panic(fmt.Sprintf("Invalid custom metric command [%s]: %s", cmd, err))
	} else if len(parts) == 0 {
		panic(fmt.Sprintf("Empty custom metric command [%s]", cmd))
	}
	log.Debug("Running custom label command: %s", cmd)
	b, err := exec.Command(parts[0], parts[1:]...).Output()
	log.Debug("Got output: %s", b)
	if err != nil {
		panic(fmt.Sprintf("Custom metric command [%s] failed: %s", cmd, err))
	}
	value := strings.TrimSpace(string(b))
	if strings.Contains(value, "\n") {
		panic(fmt.Sprintf("Return value of custom metric command [%s] contains newlines: %s", cmd, value))
	}
	return value
}
