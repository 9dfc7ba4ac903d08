package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/otarecovery/cmd/cpeer-update-verifier/app/options"
	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/internal/device/props"
	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	grpcmiddleware "github.com/autopeer-io/otarecovery/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/otarecovery/internal/report"
	"github.com/autopeer-io/otarecovery/internal/verify"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/mqtt"
	"github.com/autopeer-io/otarecovery/pkg/mqtt/topic"
)

const (
	commandName = "cpeer-update-verifier"
	commandDesc = `The update verifier runs on every boot. When the booted slot is not yet
marked successful it re-reads every block listed in the care map so dm-verity
checks them, then asks boot control to mark the slot successful. Any failure
exits non-zero and leaves the slot unmarked, so the bootloader can fall back.`
)

const brokerWait = 5 * time.Second

func NewApp() *app.App {
	opts := options.NewVerifierOptions()
	return app.NewApp(
		commandName,
		"Verify and commit the booted slot",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.VerifierOptions) app.RunFunc {
	return func() error {
		for i, arg := range os.Args {
			log.Info(fmt.Sprintf("Started with arg %d: %s", i, arg))
		}
		ctx := genericapiserver.SetupSignalContext()

		store, err := opts.Device.Store()
		if err != nil {
			log.Warn("Some device properties could not be read", "error", err.Error())
		}

		client, err := bootctl.Dial(opts.BootControl.Target(),
			grpc.WithUnaryInterceptor(grpcmiddleware.NewUnaryTimeoutInterceptor(opts.BootControl.Timeout)))
		if err != nil {
			return &app.ExitError{Code: 1, Err: err}
		}
		defer client.Close()

		reporter, stop := newReporter(ctx, opts, opts.Device.DeviceID(store))
		defer stop()

		err = verifySlot(ctx, client, store, opts.CareMap, reporter)
		if werr := metrics.WriteTextfile(opts.MetricsTextfile); werr != nil {
			log.Warn("Failed to write metrics textfile", "path", opts.MetricsTextfile, "error", werr.Error())
		}
		return err
	}
}

// verifySlot runs one verification and reports it. A failed outcome becomes
// an ExitError with status 1.
func verifySlot(ctx context.Context, client bootctl.Client, store props.Store, careMap string, reporter *report.Reporter) error {
	res, err := verify.New(client, store, verify.WithCareMapPath(careMap)).Run(ctx)
	reporter.VerificationFinished(ctx, res)
	if !res.Outcome.Succeeded() {
		return &app.ExitError{Code: 1, Err: fmt.Errorf("slot %d: %w", res.Slot, err)}
	}
	return nil
}

// newReporter connects to the broker when one is configured. The returned
// func disconnects it.
func newReporter(ctx context.Context, opts *options.VerifierOptions, deviceID string) (*report.Reporter, func()) {
	if !opts.Mqtt.Enabled() {
		return report.New(deviceID), func() {}
	}

	cfg := opts.Mqtt.ToClientConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = "ota-verifier-" + deviceID
	}
	client, err := mqtt.NewClient(cfg)
	if err == nil {
		err = client.Start(ctx)
	}
	if err != nil {
		log.Warn("Verification result will not be published", "error", err.Error())
		return report.New(deviceID), func() {}
	}

	wctx, cancel := context.WithTimeout(ctx, brokerWait)
	defer cancel()
	if err := client.AwaitConnection(wctx); err != nil {
		log.Warn("MQTT broker not reachable, report may be lost", "error", err.Error())
	}

	stop := func() {
		dctx, cancel := context.WithTimeout(context.Background(), brokerWait)
		defer cancel()
		client.Disconnect(dctx)
	}
	return report.New(deviceID, report.WithPublisher(client, topic.NewBuilder(opts.Mqtt.TopicRoot))), stop
}
