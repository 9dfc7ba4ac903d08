package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/internal/recovery/core"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

// Suffixes given to spooled packages once handled.
const (
	InstalledSuffix = ".installed"
	FailedSuffix    = ".failed"
)

// Watcher installs every *.zip dropped into a spool directory. A package is
// picked up once it has been quiet for the settle period, so partially
// copied files are not mapped.
type Watcher struct {
	installer  *Installer
	ui         core.UI
	dir        string
	settle     time.Duration
	maxRetries int
	clock      clock.WithTicker

	pending map[string]time.Time
}

func NewWatcher(i *Installer, ui core.UI, dir string, settle time.Duration, maxRetries int, clk clock.WithTicker) *Watcher {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Watcher{
		installer:  i,
		ui:         ui,
		dir:        dir,
		settle:     settle,
		maxRetries: maxRetries,
		clock:      clk,
		pending:    make(map[string]time.Time),
	}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Info("Watching spool directory", "dir", w.dir, "settle", w.settle.String())

	if err := w.scan(); err != nil {
		return err
	}

	tick := w.settle / 2
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := w.clock.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.observe(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "Spool watcher error")
		case <-ticker.C():
			w.flush(ctx)
		}
	}
}

func isPackage(path string) bool {
	return strings.HasSuffix(path, ".zip")
}

func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	now := w.clock.Now()
	for _, e := range entries {
		if e.Type().IsRegular() && isPackage(e.Name()) {
			w.pending[filepath.Join(w.dir, e.Name())] = now
		}
	}
	return nil
}

func (w *Watcher) observe(ev fsnotify.Event) {
	if !isPackage(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[ev.Name] = w.clock.Now()
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, ev.Name)
	}
}

// flush installs every package that has settled, oldest name first.
func (w *Watcher) flush(ctx context.Context) {
	now := w.clock.Now()
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)

	for _, path := range ready {
		delete(w.pending, path)
		if ctx.Err() != nil {
			return
		}
		w.installOne(ctx, path)
	}
}

func (w *Watcher) installOne(ctx context.Context, path string) {
	a, err := w.installer.InstallWithRetry(ctx, w.ui, path, 0, w.maxRetries)
	suffix := InstalledSuffix
	if err != nil {
		log.Error(err, "Spooled install failed", "package", path, "result", a.Result.String())
		suffix = FailedSuffix
	}
	if rerr := os.Rename(path, path+suffix); rerr != nil {
		log.Error(rerr, "Failed to mark spooled package", "package", path)
	}
}
