package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/dmutils/internal/app"
	"github.com/specialistvlad/dmutils/internal/config"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Execute runs the command line given by args. Results go to outW; logs and
// diagnostics go to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the dmutils command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "dmutils",
		Short: "A namespace of small utility functions",
		Long: `dmutils exposes a namespace of utility functions for paths, JSON,
dates, text, processes, archives and HTTP. Functions can be called one at a
time, chained together in HCL call files, or served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default is ./dmutils.yaml or $XDG_CONFIG_HOME/dmutils/dmutils.yaml)")
	pf.String("log-level", defaults.LogLevel, "logging level: debug, info, warn, error")
	pf.String("log-format", defaults.LogFormat, "log output format: text or json")
	pf.String("log-file", "", "also write JSON logs to this rotating file")
	pf.StringSlice("modules", nil, "modules to enable (default all)")
	pf.Int("workers", defaults.Workers, "concurrent calls per level when running call files, 0 is unlimited")
	pf.Duration("http-timeout", defaults.HTTPTimeout, "timeout for outgoing HTTP requests")

	// build loads the configuration and creates the app for a subcommand.
	build := func(cmd *cobra.Command) (*app.App, *config.Config, error) {
		cfg, used, err := config.Load(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
		if err != nil {
			return nil, nil, usageError("%v", err)
		}
		a, err := app.NewApp(errW, cfg)
		if err != nil {
			return nil, nil, usageError("%v", err)
		}
		if used != "" {
			a.Logger().Debug("Configuration loaded.", "file", used)
		}
		return a, cfg, nil
	}

	root.AddCommand(
		newListCommand(build),
		newDescribeCommand(build),
		newCallCommand(build),
		newRunCommand(build),
		newServeCommand(build),
	)
	return root
}

type appBuilder func(cmd *cobra.Command) (*app.App, *config.Config, error)

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError("%v", err)
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError("%v", err)
		}
		return nil
	}
}

// closeApp closes a and joins any close failure into err.
func closeApp(a *app.App, err *error) {
	*err = errors.Join(*err, a.Close())
}
