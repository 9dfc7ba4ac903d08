package app

import (
	"context"
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/otarecovery/cmd/cpeer-installer/app/options"
	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	"github.com/autopeer-io/otarecovery/internal/recovery/install"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
)

const (
	commandName = "cpeer-installer"
	commandDesc = `The installer applies an OTA package: it verifies the package signature,
checks it against the running device, runs the update executor and persists
the install log record. Exit status: 0 success, 1 error, 2 corrupt package,
3 retries exhausted.`
)

func NewApp() *app.App {
	return app.NewApp(
		commandName,
		"Apply OTA update packages",
		app.WithDescription(commandDesc),
		app.WithSubCommands(newInstallApp(), newWatchApp()),
	)
}

func newInstallApp() *app.App {
	opts := options.NewInstallOptions()
	return app.NewApp(
		"install",
		"Install a single update package",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(runInstall(opts)),
	)
}

func newWatchApp() *app.App {
	opts := options.NewWatchOptions()
	return app.NewApp(
		"watch",
		"Install every package dropped into a spool directory",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(runWatch(opts)),
	)
}

func runInstall(opts *options.InstallOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		rt, err := newDeps(ctx, &opts.CommonOptions, false)
		if err != nil {
			return fmt.Errorf("failed to set up installer: %w", err)
		}
		defer rt.close()
		rt.awaitBroker(ctx)

		attempt, err := rt.installer.InstallWithRetry(ctx, rt.console, opts.UpdatePackage, opts.RetryCount, opts.MaxRetries)
		writeMetrics(opts.MetricsTextfile)
		if code := exitCode(attempt.Result); code != 0 {
			return &app.ExitError{Code: code, Err: err}
		}
		return nil
	}
}

func runWatch(opts *options.WatchOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		rt, err := newDeps(ctx, &opts.CommonOptions, true)
		if err != nil {
			return fmt.Errorf("failed to set up installer: %w", err)
		}
		defer rt.close()
		announce(ctx, rt)

		w := install.NewWatcher(rt.installer, rt.console, opts.SpoolDir, opts.Settle, opts.MaxRetries, clock.RealClock{})
		err = w.Run(ctx)
		writeMetrics(opts.MetricsTextfile)
		if err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("Watcher stopped")
		return nil
	}
}

// announce publishes the retained "online" presence that the will message
// replaces with "offline".
func announce(ctx context.Context, rt *deps) {
	if rt.mqtt == nil {
		return
	}
	rt.awaitBroker(ctx)
	if err := rt.mqtt.Publish(ctx, rt.topics.Status(rt.deviceID), 1, true, []byte("online")); err != nil {
		log.Warn("Failed to publish presence", "error", err.Error())
	}
}

func writeMetrics(path string) {
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn("Failed to write metrics textfile", "path", path, "error", err.Error())
	}
}
