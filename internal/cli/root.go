package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/kilnbuild/kilnd/internal"
)

// Represents the root command for the kilnd daemon.
var RootCmd struct {
	Quiet      bool       `short:"q" help:"Suppress informational output."`
	Verbose    bool       `short:"v" help:"Enable verbose output."`
	Debug      bool       `short:"d" help:"Enable debug output."`
	Socket     string     `short:"s" help:"Override the default Unix socket path." env:"KILND_SOCKET" placeholder:"PATH"`
	Containerd string     `help:"Containerd socket address." env:"KILND_CONTAINERD" placeholder:"PATH"`
	Namespace  string     `help:"Containerd namespace for images and containers." env:"KILND_NAMESPACE"`
	CacheDir   string     `help:"Stage cache directory." env:"KILND_CACHE_DIR" placeholder:"PATH"`
	Start      StartCmd   `cmd:"" help:"Start the daemon."`
	Build      BuildCmd   `cmd:"" help:"Execute a build plan in-process."`
	Version    VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
//
// A .env file in the working directory, when present, seeds the environment
// before flag parsing so env-backed flags pick its values up.
func Execute() error {
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The kiln build daemon.\n\nAssembles container images for single-script Python payloads."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	handler, ok := slog.Default().Handler().(*charmlog.Logger)
	if !ok {
		return // Not a charm handler, nothing to configure
	}

	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()
	internal.SetModes(quiet, debug, verbose)

	if debug {
		handler.SetLevel(charmlog.DebugLevel)
	} else if quiet {
		handler.SetLevel(charmlog.WarnLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	handler.SetReportCaller(verbose)

	if !isatty(os.Stderr) {
		handler.SetFormatter(charmlog.LogfmtFormatter)
	}
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
