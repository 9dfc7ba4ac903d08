// Package install sequences one apply attempt: map, verify, open, build,
// execute and persist the install log.
package install

import (
	"context"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	"github.com/autopeer-io/otarecovery/internal/recovery/command"
	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/internal/recovery/executor"
	"github.com/autopeer-io/otarecovery/internal/recovery/metadata"
	"github.com/autopeer-io/otarecovery/internal/recovery/pkgaccess"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

const (
	// VerificationProgressFraction is the bar share given to verification.
	VerificationProgressFraction = executor.DefaultVerificationShare
	// VerificationProgressTime is the expected verification time in seconds.
	VerificationProgressTime = 60
)

// Mounter prepares the storage an install needs.
type Mounter interface {
	// SetupInstallMounts mounts what the install needs and unmounts the rest.
	SetupInstallMounts() error
	// EnsureMounted mounts the volume that holds path.
	EnsureMounted(path string) error
}

// NopMounter is used when every volume is already mounted.
type NopMounter struct{}

func (NopMounter) SetupInstallMounts() error  { return nil }
func (NopMounter) EnsureMounted(string) error { return nil }

// Verifier makes the signature trust decision over the mapped package.
type Verifier interface {
	Verify(ctx context.Context, s *core.Session, data []byte) bool
}

// Runner executes an update command.
type Runner interface {
	Run(s *core.Session, cmd *command.UpdateCommand) (*executor.Outcome, error)
}

// Observer is told about every finished attempt.
type Observer interface {
	AttemptFinished(ctx context.Context, a *Attempt)
}

// Attempt is the outcome of one InstallPackage call.
type Attempt struct {
	ID        string
	Package   string
	Result    core.Result
	Err       error
	Elapsed   time.Duration
	Retry     int
	WipeCache bool
	Record    *LogRecord
	// LogFile is where Record was written, empty if persisting failed.
	LogFile string
}

// Config carries the file locations and switches of an Installer.
type Config struct {
	LogFile           string
	UncryptStatusFile string
	// NeedsMount asks the Mounter for the package volume first.
	NeedsMount bool
}

// Installer runs apply attempts.
type Installer struct {
	cfg       Config
	mounter   Mounter
	verifier  Verifier
	builder   command.Builder
	runner    Runner
	clock     clock.PassiveClock
	observers []Observer
}

type Option func(*Installer)

func WithMounter(m Mounter) Option { return func(i *Installer) { i.mounter = m } }

func WithClock(c clock.PassiveClock) Option { return func(i *Installer) { i.clock = c } }

func WithObservers(obs ...Observer) Option {
	return func(i *Installer) { i.observers = append(i.observers, obs...) }
}

func New(cfg Config, verifier Verifier, builder command.Builder, runner Runner, opts ...Option) *Installer {
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFile
	}
	if cfg.UncryptStatusFile == "" {
		cfg.UncryptStatusFile = DefaultUncryptStatusFile
	}
	i := &Installer{
		cfg:      cfg,
		mounter:  NopMounter{},
		verifier: verifier,
		builder:  builder,
		runner:   runner,
		clock:    clock.RealClock{},
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// InstallPackage performs one attempt and persists its log record. The
// returned error carries the core.Result category; Attempt is never nil.
func (i *Installer) InstallPackage(ctx context.Context, s *core.Session, path string) (*Attempt, error) {
	s.ModifiedFlash = true
	start := i.clock.Now()
	logger := log.WithValues("attempt", s.ID, "package", path)

	var (
		out *executor.Outcome
		err error
	)
	if mountErr := i.mounter.SetupInstallMounts(); mountErr != nil {
		logger.Error(mountErr, "Failed to set up expected mounts for install; aborting")
		err = core.Wrap(core.Error, mountErr)
	} else {
		out, err = i.reallyInstall(ctx, s, path)
	}
	result := core.ResultOf(err)

	elapsed := i.clock.Since(start)
	i.appendUncryptStatus(s)

	rec := &LogRecord{
		Path:      path,
		Success:   result == core.Success,
		TimeTotal: int(elapsed.Seconds()),
		Retry:     s.RetryCount,
		Lines:     s.Log.Lines(),
	}
	a := &Attempt{
		ID:      s.ID,
		Package: path,
		Result:  result,
		Err:     err,
		Elapsed: elapsed,
		Retry:   s.RetryCount,
		Record:  rec,
	}
	if out != nil {
		a.WipeCache = out.WipeCache
	}

	if perr := rec.Persist(i.cfg.LogFile); perr != nil {
		logger.Error(perr, "Failed to write install log")
	} else {
		a.LogFile = i.cfg.LogFile
	}
	// Copy into last_log.
	logger.Info("Install finished", "result", result.String(), "record", rec.String())

	metrics.InstallTotal.WithLabelValues(result.String()).Inc()
	metrics.InstallDuration.Observe(elapsed.Seconds())
	for _, o := range i.observers {
		o.AttemptFinished(ctx, a)
	}
	return a, err
}

func (i *Installer) reallyInstall(ctx context.Context, s *core.Session, path string) (*executor.Outcome, error) {
	ui := s.UI
	ui.SetBackground(core.BackgroundInstallingUpdate)
	ui.Print("Finding update package...")
	ui.ShowProgress(VerificationProgressFraction, VerificationProgressTime)
	log.Info("Update location", "path", path)

	ui.Print("Opening update package...")
	if path != "" && i.cfg.NeedsMount {
		if err := i.mounter.EnsureMounted(strings.TrimPrefix(path, "@")); err != nil {
			log.Warn("Failed to mount package volume", "path", path, "err", err)
		}
	}

	pkg, err := pkgaccess.Map(path)
	if err != nil {
		log.Error(err, "Failed to map file")
		return nil, core.Wrap(core.Corrupt, err)
	}
	defer func() {
		if err := pkg.Close(); err != nil {
			log.Error(err, "Failed to release update package")
		}
	}()

	if !i.verifier.Verify(ctx, s, pkg.Bytes()) {
		s.Log.Appendf("error: %d", core.ErrCodeZipVerificationFailure)
		return nil, core.Fail(core.Corrupt, "signature verification failed for %s", path)
	}

	if err := pkg.OpenArchive(); err != nil {
		log.Error(err, "Can't open update package", "path", path)
		s.Log.Appendf("error: %d", core.ErrCodeZipOpenFailure)
		return nil, core.Wrap(core.Corrupt, err)
	}

	ui.Print("Installing update...")
	if s.RetryCount > 0 {
		ui.Print("Retry attempt: %d", s.RetryCount)
	}
	ui.SetEnableReboot(false)
	out, err := i.tryUpdateBinary(s, pkg)
	ui.SetEnableReboot(true)
	ui.Print("\n")
	return out, err
}

func (i *Installer) tryUpdateBinary(s *core.Session, pkg *pkgaccess.Package) (*executor.Outcome, error) {
	logBuildNumbers(s, pkg)

	cmd, err := i.builder.Build(s, pkg, executor.ChildStatusFD)
	if err != nil {
		log.Error(err, "Failed to build update command", "package", pkg.Path())
		return nil, err
	}
	return i.runner.Run(s, cmd)
}

// logBuildNumbers is best effort: any failure is only logged.
func logBuildNumbers(s *core.Session, pkg *pkgaccess.Package) {
	meta, err := metadata.Read(pkg)
	if err != nil {
		log.Warn("Failed to read metadata from package", "err", err)
		return
	}
	lines, bad := meta.BuildNumbers()
	for _, l := range bad {
		log.Error(nil, "Failed to parse build number", "line", l)
	}
	for _, l := range lines {
		s.Log.Append(l)
	}
}

func (i *Installer) appendUncryptStatus(s *core.Session) {
	path := i.cfg.UncryptStatusFile
	if err := i.mounter.EnsureMounted(path); err != nil {
		log.Warn("Can't mount uncrypt status volume", "path", path, "err", err)
		return
	}
	status, err := readUncryptStatus(path)
	if err != nil {
		log.Warn("Skipping uncrypt status", "err", err)
		return
	}
	s.Log.Append(status)
}
