package container

import (
	"context"
	"os"

	"github.com/crazy-max/unarchive/pkg/disk"
	"github.com/crazy-max/unarchive/pkg/extractor"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client represents an active container file extractor object
type Client struct {
	*extractor.Client
	ctx    context.Context
	opts   Options
	logger zerolog.Logger
}

// Options represents container file extractor options
type Options struct {
	// Source container file
	Source string
	// Includes a subset of files/dirs from the Source container
	Includes []string

	// Dist folder. Entries are only listed if empty.
	Dist string
	// RmDist removes Dist folder before extracting
	RmDist bool

	// Flags selects the attributes restored on extracted files
	Flags disk.Flags
	// SecurePaths keeps extracted files inside Dist
	SecurePaths bool
	// Strict fails the extraction if any entry failed
	Strict bool
}

// New creates new container file extractor instance
func New(ctx context.Context, opts Options) (*extractor.Client, error) {
	if len(opts.Source) == 0 {
		return nil, errors.New("source container file is required")
	}
	return &extractor.Client{
		Handler: &Client{
			ctx:    ctx,
			opts:   opts,
			logger: log.With().Str("src", opts.Source).Logger(),
		},
	}, nil
}

// Type returns the extractor type
func (c *Client) Type() string {
	return "container"
}

// Extract extracts the container file to Dist, or lists its entries if no
// Dist folder is set.
func (c *Client) Extract() error {
	if len(c.opts.Dist) == 0 {
		return c.list()
	}

	if _, err := os.Stat(c.opts.Dist); err == nil && c.opts.RmDist {
		if err := os.RemoveAll(c.opts.Dist); err != nil {
			return errors.Wrapf(err, "failed to remove dist folder %q", c.opts.Dist)
		}
	}

	c.logger.Debug().Str("flags", c.opts.Flags.String()).Msg("Extraction attributes")
	infos, err := extractor.ExtractToDir(c.opts.Source, c.opts.Dist, extractor.ExtractOpts{
		Context:     c.ctx,
		Logger:      c.logger,
		Includes:    c.opts.Includes,
		Flags:       &c.opts.Flags,
		SecurePaths: c.opts.SecurePaths,
	})
	if err != nil {
		return errors.Wrap(err, "cannot extract source")
	}

	var written uint64
	for _, fi := range infos {
		if fi.IsSuccess {
			written += fi.Size
		} else {
			c.logger.Warn().Err(fi.Err).Msgf("Entry %q not extracted", fi.FileName)
		}
	}
	return c.summary(len(infos), extractor.Failed(infos), written)
}

func (c *Client) list() error {
	data, err := extractor.ExtractToMemory(c.opts.Source, extractor.ExtractOpts{
		Context:  c.ctx,
		Logger:   c.logger,
		Includes: c.opts.Includes,
	})
	if err != nil {
		return errors.Wrap(err, "cannot read source")
	}

	var failed int
	var total uint64
	for _, d := range data {
		if !d.IsSuccess {
			failed++
			c.logger.Warn().Err(d.Err).Msgf("Entry %q not readable", d.FileName)
			continue
		}
		total += d.Size
		c.logger.Info().
			Str("size", humanize.IBytes(d.Size)).
			Str("digest", d.Digest().String()).
			Msg(d.FileName)
	}
	return c.summary(len(data), failed, total)
}

func (c *Client) summary(entries, failed int, size uint64) error {
	c.logger.Info().Msgf("%d entries processed (%s), %d failed", entries, humanize.IBytes(size), failed)
	if c.opts.Strict && failed > 0 {
		return errors.Errorf("%d of %d entries failed", failed, entries)
	}
	return nil
}
