// Package report publishes the outcome of install and verify runs to the
// fleet backend. Reporting never changes an outcome: every failure here is
// logged and dropped.
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autopeer-io/otarecovery/internal/recovery/install"
	"github.com/autopeer-io/otarecovery/internal/verify"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/mqtt"
	"github.com/autopeer-io/otarecovery/pkg/mqtt/topic"
)

// Phase names which binary produced a report.
type Phase string

const (
	PhaseInstall Phase = "install"
	PhaseVerify  Phase = "verify"
)

// AttemptReport is the JSON document published per finished run.
type AttemptReport struct {
	ID             string  `json:"id"`
	Phase          Phase   `json:"phase"`
	Package        string  `json:"package,omitempty"`
	Result         string  `json:"result"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Retry          int     `json:"retry"`
	WipeCache      bool    `json:"wipeCache"`
	Error          string  `json:"error,omitempty"`
}

// Archiver stores a persisted install log off the device.
type Archiver interface {
	Archive(ctx context.Context, deviceID, attemptID, path string) error
}

// DefaultTimeout bounds each publish and upload.
const DefaultTimeout = 10 * time.Second

// Option configures a Reporter.
type Option func(*Reporter)

// WithPublisher enables MQTT reports on topics.Result(deviceID).
func WithPublisher(p mqtt.Publisher, topics *topic.Builder) Option {
	return func(r *Reporter) {
		r.publisher = p
		r.topics = topics
	}
}

// WithArchiver enables log uploads.
func WithArchiver(a Archiver) Option {
	return func(r *Reporter) { r.archiver = a }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) { r.timeout = d }
}

// Reporter fans a finished run out to the configured sinks. A Reporter
// without sinks only logs.
type Reporter struct {
	deviceID  string
	publisher mqtt.Publisher
	topics    *topic.Builder
	archiver  Archiver
	timeout   time.Duration
}

var _ install.Observer = (*Reporter)(nil)

func New(deviceID string, opts ...Option) *Reporter {
	r := &Reporter{deviceID: deviceID, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AttemptFinished publishes an install attempt and uploads its log file.
func (r *Reporter) AttemptFinished(ctx context.Context, a *install.Attempt) {
	rep := &AttemptReport{
		ID:             a.ID,
		Phase:          PhaseInstall,
		Package:        a.Package,
		Result:         a.Result.String(),
		ElapsedSeconds: a.Elapsed.Seconds(),
		Retry:          a.Retry,
		WipeCache:      a.WipeCache,
	}
	if a.Err != nil {
		rep.Error = a.Err.Error()
	}
	r.publish(ctx, rep)

	if r.archiver != nil && a.LogFile != "" {
		actx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.archiver.Archive(actx, r.deviceID, a.ID, a.LogFile); err != nil {
			log.Warn("Failed to archive install log", "attempt", a.ID, "file", a.LogFile, "error", err.Error())
		}
	}
}

// VerificationFinished publishes a slot verification run.
func (r *Reporter) VerificationFinished(ctx context.Context, res *verify.Result) {
	rep := &AttemptReport{
		ID:             res.ID,
		Phase:          PhaseVerify,
		Result:         string(res.Outcome),
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
	if res.Err != nil {
		rep.Error = res.Err.Error()
	}
	r.publish(ctx, rep)
}

func (r *Reporter) publish(ctx context.Context, rep *AttemptReport) {
	logger := log.WithValues("attempt", rep.ID, "phase", rep.Phase)
	if r.publisher == nil {
		logger.Debug("No report publisher configured", "result", rep.Result)
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		logger.Warn("Failed to encode report", "error", err.Error())
		return
	}

	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	t := r.topics.Result(r.deviceID)
	if err := r.publisher.Publish(pctx, t, 1, false, payload); err != nil {
		logger.Warn("Failed to publish report", "topic", t, "error", err.Error())
		return
	}
	logger.Info("Published report", "topic", t, "result", rep.Result)
}
