package app

import (
	"context"

	"github.com/crazy-max/unarchive/pkg/config"
	"github.com/crazy-max/unarchive/pkg/extractor"
	"github.com/crazy-max/unarchive/pkg/extractor/container"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Unarchive represents an active unarchive object
type Unarchive struct {
	ctx    context.Context
	cancel context.CancelFunc
	meta   config.Meta
	cli    config.Cli
	ext    *extractor.Client
}

// New creates new unarchive instance
func New(meta config.Meta, cli config.Cli) (*Unarchive, error) {
	ctx, cancel := context.WithCancel(context.Background())

	ext, err := container.New(ctx, container.Options{
		Source:      cli.Source,
		Includes:    cli.Includes,
		Dist:        cli.Dist,
		RmDist:      cli.RmDist,
		Flags:       cli.Flags(),
		SecurePaths: !cli.UnsafePaths,
		Strict:      cli.Strict,
	})
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "cannot create extractor")
	}

	return &Unarchive{
		ctx:    ctx,
		cancel: cancel,
		meta:   meta,
		cli:    cli,
		ext:    ext,
	}, nil
}

// Start starts unarchive
func (c *Unarchive) Start() error {
	log.Debug().Msgf("Starting %s %s extractor", c.meta.Name, c.ext.Type())
	return c.ext.Extract()
}

// Close stops any extraction in progress
func (c *Unarchive) Close() {
	if c != nil && c.cancel != nil {
		c.cancel()
	}
}
