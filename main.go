package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/jtarchie/kurtex/commands"
)

// CLI is kurtex's whole command line: commands.Root's flags embedded
// directly, with no subcommand — `kurtex [flags] [files...]`.
type CLI struct {
	commands.Root `kong:",squash"`

	LogLevel  slog.Level `default:"info"      env:"KURTEX_LOG_LEVEL" help:"Set the log level (debug, info, warn, error)"`
	AddSource bool       `env:"KURTEX_ADD_SOURCE" help:"Add source code location to log messages"`
	LogFormat string     `default:"text"      env:"KURTEX_LOG_FORMAT" enum:"text,json" help:"Set the log format (text, json)"`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli)

	if cli.LogFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	}

	err := cli.Root.Run(slog.Default())
	ctx.FatalIfErrorf(err)
}
