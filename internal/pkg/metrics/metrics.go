package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every OTA metric. One-shot binaries dump it to a textfile,
// the bootctl daemon serves it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// InstallTotal counts apply attempts by result (success/error/corrupt/retry).
	InstallTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ota_install_total",
			Help: "Total number of OTA apply attempts by result.",
		},
		[]string{"result"},
	)

	// InstallDuration is the wall time of one apply attempt.
	InstallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ota_install_duration_seconds",
			Help:    "Wall-clock duration of OTA apply attempts.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	// VerifyTotal counts verify-phase runs by outcome
	// (committed/already_successful/failed).
	VerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ota_verify_total",
			Help: "Total number of slot verification runs by outcome.",
		},
		[]string{"outcome"},
	)

	// VerifyBlocksRead counts 4096-byte blocks re-read during verification.
	VerifyBlocksRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ota_verify_blocks_read_total",
			Help: "Total number of blocks re-read by the block integrity verifier.",
		},
	)

	// BootControlRequests counts boot-control RPCs served by the daemon.
	BootControlRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ota_bootctl_requests_total",
			Help: "Total number of boot-control RPCs by method and status code.",
		},
		[]string{"method", "code"},
	)

	// BootControlLatency is the handling time of boot-control RPCs.
	BootControlLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ota_bootctl_request_duration_seconds",
			Help:    "Latency of boot-control RPCs.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(InstallTotal)
	Registry.MustRegister(InstallDuration)
	Registry.MustRegister(VerifyTotal)
	Registry.MustRegister(VerifyBlocksRead)
	Registry.MustRegister(BootControlRequests)
	Registry.MustRegister(BootControlLatency)
}

// RegisterProcessCollectors adds Go runtime and process metrics. Only the
// long-running daemon wants these.
func RegisterProcessCollectors() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
