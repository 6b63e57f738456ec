package logging

import (
	"io"
	"os"
	"time"

	"github.com/crazy-max/unarchive/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"golang.org/x/term"
)

// Configure configures logger
func Configure(cli config.Cli) {
	var w io.Writer

	// Adds support for NO_COLOR. More info https://no-color.org/
	_, noColor := os.LookupEnv("NO_COLOR")

	if !cli.LogJSON {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			NoColor:    noColor || cli.LogNoColor || !term.IsTerminal(int(os.Stdout.Fd())),
			TimeFormat: time.RFC1123,
		}
	} else {
		w = os.Stdout
	}

	log.Logger = New(w, cli.LogCaller)

	logLevel, err := zerolog.ParseLevel(cli.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown log level")
	} else {
		zerolog.SetGlobalLevel(logLevel)
	}
}

// New creates a logger writing to w with timestamps and error stacks
func New(w io.Writer, caller bool) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	ctx := zerolog.New(w).With().Timestamp()
	if caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
