package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gosuri/uitable"
	"google.golang.org/grpc"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/otarecovery/cmd/cpeer-bootctl/app/options"
	"github.com/autopeer-io/otarecovery/internal/bootctl"
	"github.com/autopeer-io/otarecovery/internal/bootctl/daemon"
	"github.com/autopeer-io/otarecovery/internal/pkg/metrics"
	grpcmiddleware "github.com/autopeer-io/otarecovery/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/otarecovery/pkg/app"
	"github.com/autopeer-io/otarecovery/pkg/log"
	pkgoptions "github.com/autopeer-io/otarecovery/pkg/options"
)

const (
	commandName = "cpeer-bootctl"
	commandDesc = `Boot control for A/B devices. "serve" runs the boot-control service
backed by a JSON state file, for development images without a bootloader HAL.
The other commands talk to a running service.`
)

func NewApp() *app.App {
	return app.NewApp(
		commandName,
		"Boot-control service and client",
		app.WithDescription(commandDesc),
		app.WithSubCommands(newServeApp(), newStatusApp(), newMarkSuccessfulApp(), newSetActiveApp()),
	)
}

func newServeApp() *app.App {
	opts := options.NewServeOptions()
	return app.NewApp(
		"serve",
		"Run the boot-control service",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(runServe(opts)),
	)
}

func newStatusApp() *app.App {
	opts := options.NewClientOptions()
	return app.NewApp(
		"status",
		"Print the slots known to the boot-control service",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			c, err := dial(opts.GrpcOptions)
			if err != nil {
				return err
			}
			defer c.Close()
			return printStatus(context.Background(), os.Stdout, c)
		}),
	)
}

func newMarkSuccessfulApp() *app.App {
	opts := options.NewClientOptions()
	return app.NewApp(
		"mark-successful",
		"Mark the running slot as successfully booted",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			c, err := dial(opts.GrpcOptions)
			if err != nil {
				return err
			}
			defer c.Close()
			return markSuccessful(context.Background(), os.Stdout, c)
		}),
	)
}

func newSetActiveApp() *app.App {
	opts := options.NewSetActiveOptions()
	return app.NewApp(
		"set-active",
		"Switch the running slot in the state file, as after an update reboot",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			hal, err := bootctl.NewFileHAL(opts.StateFile)
			if err != nil {
				return err
			}
			if err := hal.SetActiveSlot(opts.Slot); err != nil {
				return err
			}
			log.Info("Switched active slot", "slot", opts.Slot, "state", opts.StateFile)
			return nil
		}),
	)
}

func runServe(opts *options.ServeOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()
		metrics.RegisterProcessCollectors()

		hal, err := bootctl.NewFileHAL(opts.StateFile)
		if err != nil {
			return fmt.Errorf("failed to open boot-control state: %w", err)
		}
		return daemon.NewManager(opts.Config(), hal).Start(ctx)
	}
}

func dial(opts *pkgoptions.GrpcOptions) (*bootctl.GRPCClient, error) {
	return bootctl.Dial(opts.Target(),
		grpc.WithUnaryInterceptor(grpcmiddleware.NewUnaryTimeoutInterceptor(opts.Timeout)))
}

func printStatus(ctx context.Context, w io.Writer, c bootctl.Inspector) error {
	slots, err := c.Slots(ctx)
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}

	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("SLOT", "SUFFIX", "CURRENT", "BOOTABLE", "SUCCESSFUL")
	for _, s := range slots {
		current := ""
		if s.Current {
			current = "*"
		}
		table.AddRow(s.Index, s.Suffix, current, s.Bootable, s.Successful)
	}
	fmt.Fprintln(w, table)
	return nil
}

func markSuccessful(ctx context.Context, w io.Writer, c bootctl.Client) error {
	res, err := c.MarkBootSuccessful(ctx)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("boot control refused: %s", res.Message)
	}
	fmt.Fprintln(w, "Marked boot successful")
	return nil
}
