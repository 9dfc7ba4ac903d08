// Package app builds the cobra commands of every binary: named flag sets,
// optional viper config file, validation and logger setup.
package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/otarecovery/pkg/log"
)

// RunFunc is the body of a command, called after options are complete and valid.
type RunFunc func() error

// NamedFlagSetOptions is implemented by every cmd/*/app/options type.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped into named sections.
	Flags() cliflag.NamedFlagSets

	// Complete fills derived and default fields.
	Complete() error

	// Validate returns an aggregate of every invalid option.
	Validate() error
}

// LoggerOptions is implemented by options carrying a log section. The
// logger is initialised from it before RunFunc.
type LoggerOptions interface {
	LogOptions() *log.Options
}

// ExitError makes App.Run exit with Code instead of 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// App is a command line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	noConfig    bool
	args        cobra.PositionalArgs
	commands    []*App
	cmd         *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithNoConfig drops the --config flag and environment binding.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithValidArgs sets a custom positional argument check.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithSubCommands nests other apps under this one.
func WithSubCommands(apps ...*App) Option {
	return func(a *App) { a.commands = append(a.commands, apps...) }
}

// NewApp creates an App and its cobra command.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command { return a.cmd }

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	err := a.cmd.Execute()
	if err == nil {
		return
	}
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.name, err)
	}
	if exit != nil {
		os.Exit(exit.Code)
	}
	os.Exit(1)
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	for _, sub := range a.commands {
		cmd.AddCommand(sub.Command())
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
		fs := cmd.Flags()
		for _, f := range fss.FlagSets {
			fs.AddFlagSet(f)
		}
	}
	if !a.noConfig && a.options != nil {
		addConfigFlag(a.name, fss.FlagSet("global"))
	}
	globalflag.AddGlobalFlags(fss.FlagSet("global"), cmd.Name())
	cmd.Flags().AddFlagSet(fss.FlagSet("global"))

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if a.options != nil {
		if !a.noConfig {
			if err := loadConfig(cmd.Flags(), a.options); err != nil {
				return err
			}
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}
		if lo, ok := a.options.(LoggerOptions); ok {
			if err := log.Init(lo.LogOptions()); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
		}
	}
	defer func() { _ = log.Sync() }()

	return a.runFunc()
}
