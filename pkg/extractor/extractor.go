package extractor

import (
	"context"

	"github.com/crazy-max/unarchive/pkg/archive"
	"github.com/crazy-max/unarchive/pkg/disk"
	"github.com/rs/zerolog"
)

// Handler is an extractor interface
type Handler interface {
	Extract() error
	Type() string
}

// Client represents an active extractor object
type Client struct {
	Handler
}

// ExtractOpts holds extract options
type ExtractOpts struct {
	Context  context.Context
	Logger   zerolog.Logger
	Includes []string

	// Flags selects the attributes restored by ExtractToDir. Nil means
	// disk.DefaultFlags.
	Flags *disk.Flags
	// SecurePaths keeps every destination path inside the target directory.
	// Entry names are joined as is otherwise, "../" included.
	SecurePaths bool
	// BlockSize of the data blocks pulled from each entry
	BlockSize int
}

// openSession creates a read session with every filter and format enabled
// and opens it against filename. The session is released on failure.
func openSession(filename string, opts ExtractOpts) (*archive.Session, error) {
	session, err := archive.New(archive.Opts{
		Context:   opts.Context,
		Logger:    opts.Logger,
		BlockSize: opts.BlockSize,
	})
	if err != nil {
		return nil, err
	}
	if err = session.EnableAllFiltersAndFormats(); err == nil {
		err = session.Open(filename)
	}
	if err != nil {
		_ = session.Release()
		return nil, err
	}
	return session, nil
}
