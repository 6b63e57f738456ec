package errdefs

import (
	"github.com/pkg/errors"
)

// Setup errors
var (
	// ErrCreateFailed is returned when a read session cannot be allocated.
	ErrCreateFailed = errors.New("failed create archive")
	// ErrCloseFailed is returned when closing a session or a write sink fails.
	ErrCloseFailed = errors.New("failed close archive")
	// ErrFreeFailed is returned when releasing a session or a write sink fails.
	ErrFreeFailed = errors.New("failed free archive")
	// ErrUnsupportedFormat is returned when the detected filter or format has
	// not been enabled on the session.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("archive session closed")
	// ErrStaleEntry is returned when an entry is read after the session moved
	// past it.
	ErrStaleEntry = errors.New("archive entry is no longer current")
)

// Source and target validation errors
var (
	ErrNotExists           = errors.New("is not exists")
	ErrNotFile             = errors.New("is not file")
	ErrNotDir              = errors.New("is not dir")
	ErrMetadataUnavailable = errors.New("failed get metadata")
	ErrPathEncoding        = errors.New("path contains a NUL byte")
	ErrCreateDirectory     = errors.New("failed create directory")
)

// Per-entry errors
var (
	ErrPathname         = errors.New("failed get pathname from entry")
	ErrSizeLessThanOne  = errors.New("entry size less than one")
	ErrUncompressFailed = errors.New("failed uncompress")
	ErrWriteHeader      = errors.New("failed write header")
	ErrPathGeneration   = errors.New("failed generate path")
	ErrWriteFailed      = errors.New("failed write file")
)
