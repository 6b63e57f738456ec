package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/unarchive/internal/app"
	"github.com/crazy-max/unarchive/internal/logging"
	"github.com/crazy-max/unarchive/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	unarchive *app.Unarchive
	cli       config.Cli
	version   = "dev"
	meta      = config.Meta{
		ID:     "unarchive",
		Name:   "Unarchive",
		Desc:   "Extract contents of a compressed archive in a local folder",
		URL:    "https://github.com/crazy-max/unarchive",
		Author: "CrazyMax",
	}
)

func main() {
	var err error
	runtime.GOMAXPROCS(runtime.NumCPU())

	meta.Version = version

	_ = kong.Parse(&cli,
		kong.Name(meta.ID),
		kong.Description(fmt.Sprintf("%s. More info: %s", meta.Desc, meta.URL)),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s version %s go/%s %s", meta.Name, meta.Version, runtime.Version()[2:], strings.Title(runtime.GOOS)), //nolint:staticcheck // ignoring "SA1019: strings.Title is deprecated", as for our use we don't need full unicode support
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Logging
	logging.Configure(cli)

	// Handle os signals
	channel := make(chan os.Signal, 1)
	signal.Notify(channel, os.Interrupt, SIGTERM)
	go func() {
		sig := <-channel
		log.Warn().Msgf("caught signal %v", sig)
		unarchive.Close()
	}()

	// Init
	if unarchive, err = app.New(meta, cli); err != nil {
		log.Fatal().Err(err).Msg("cannot initialize unarchive")
	}

	// Start
	if err = unarchive.Start(); err != nil {
		log.Fatal().Stack().Err(err).Send()
	}
}
