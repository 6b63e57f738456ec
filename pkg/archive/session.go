package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultBlockSize is the size of the data blocks pulled from an entry.
const DefaultBlockSize = 64 * 1024

// Opts holds read session options
type Opts struct {
	Context context.Context
	Logger  zerolog.Logger
	// BlockSize of the data blocks returned by Entry.ReadBlock. Zero uses
	// DefaultBlockSize.
	BlockSize int
}

type state int

const (
	stateNew state = iota
	stateOpen
	stateClosed
	stateFreed
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	case stateFreed:
		return "freed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session represents an open read session over one container file
type Session struct {
	ctx       context.Context
	logger    zerolog.Logger
	blockSize int

	filters map[string]archives.Compression
	formats map[string]archives.Extraction

	state  state
	file   *os.File
	filter io.ReadCloser
	format string

	next  func() (walkItem, bool)
	stop  func()
	entry *Entry
	count int
	err   error
	eof   bool
}

type walkItem struct {
	file archives.FileInfo
	err  error
}

var errStopWalk = errors.New("walk stopped")

// New creates a new empty read session
func New(opts Opts) (*Session, error) {
	if opts.BlockSize < 0 {
		return nil, errors.Wrapf(errdefs.ErrCreateFailed, "invalid block size %d", opts.BlockSize)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return &Session{
		ctx:       opts.Context,
		logger:    opts.Logger,
		blockSize: opts.BlockSize,
		filters:   make(map[string]archives.Compression),
		formats:   make(map[string]archives.Extraction),
	}, nil
}

// EnableAllFiltersAndFormats registers every known filter and format so
// detection can succeed for any supported container.
func (s *Session) EnableAllFiltersAndFormats() error {
	for _, f := range Filters() {
		if err := s.EnableFilter(f); err != nil {
			return err
		}
	}
	for _, f := range Formats() {
		if err := s.EnableFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// EnableFilter registers a single decompression filter.
func (s *Session) EnableFilter(f archives.Compression) error {
	if err := s.checkState(stateNew, "enable filter"); err != nil {
		return err
	}
	s.filters[f.Extension()] = f
	return nil
}

// EnableFormat registers a single container format.
func (s *Session) EnableFormat(f archives.Extraction) error {
	if err := s.checkState(stateNew, "enable format"); err != nil {
		return err
	}
	s.formats[f.Extension()] = f
	return nil
}

// Format returns the negotiated filter and format, eg. ".tar.gz". Empty until
// the session is open.
func (s *Session) Format() string {
	return s.format
}

// ValidateSource checks path can be handed to the codec: it must be
// representable without NUL bytes, exist and be a regular file.
func ValidateSource(path string) error {
	if strings.IndexByte(path, 0) >= 0 {
		return errors.Wrapf(errdefs.ErrPathEncoding, "%q", path)
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(errdefs.ErrNotExists, "%s", path)
	} else if err != nil {
		return errors.Wrapf(errdefs.ErrMetadataUnavailable, "%s: %v", path, err)
	}
	if !fi.Mode().IsRegular() {
		return errors.Wrapf(errdefs.ErrNotFile, "%s", path)
	}
	return nil
}

// Open opens the session against the container file at path and negotiates
// its filter and format.
func (s *Session) Open(path string) error {
	if err := s.checkState(stateNew, "open"); err != nil {
		return err
	}
	if err := ValidateSource(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return errdefs.Internal(errors.Wrapf(err, "cannot open %s", path))
	}

	format, _, err := archives.Identify(s.ctx, filepath.Base(path), file)
	if err != nil {
		_ = file.Close()
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Wrapf(err, "cannot identify %s", path))
	}
	filter, extraction, err := s.negotiate(format)
	if err != nil {
		_ = file.Close()
		return errdefs.InternalStatus(errdefs.StatusFatal, err)
	}
	s.logger.Debug().Msgf("Archive format %s detected", format.Extension())

	// identification may have consumed part of the stream
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return errdefs.Internal(errors.Wrapf(err, "cannot rewind %s", path))
	}

	var stream io.Reader = file
	if filter != nil {
		s.filter, err = filter.OpenReader(file)
		if err != nil {
			_ = file.Close()
			return errdefs.Internal(errors.Wrapf(err, "cannot open %s filter", filter.Extension()))
		}
		stream = s.filter
	}

	s.file = file
	s.format = format.Extension()
	s.next, s.stop = iter.Pull(s.walk(extraction, stream))
	s.state = stateOpen
	return nil
}

// walk turns the codec callback walk into a sequence consumed one entry at a
// time by Next. The codec only progresses while Next is waiting on it.
func (s *Session) walk(extraction archives.Extraction, stream io.Reader) iter.Seq[walkItem] {
	return func(yield func(walkItem) bool) {
		err := extraction.Extract(s.ctx, stream, func(_ context.Context, f archives.FileInfo) error {
			if !yield(walkItem{file: f}) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(walkItem{err: err})
		}
	}
}

// Next positions the session on the next entry. It returns io.EOF at the end
// of the archive. Any other error leaves the session unusable for reading.
func (s *Session) Next() (*Entry, error) {
	if err := s.checkState(stateOpen, "read header"); err != nil {
		return nil, err
	}
	s.invalidate()

	switch {
	case s.err != nil:
		return nil, s.err
	case s.eof:
		return nil, io.EOF
	}

	item, ok := s.next()
	if !ok {
		s.eof = true
		return nil, io.EOF
	}
	if item.err != nil {
		s.err = errdefs.Internal(errors.Wrapf(item.err, "cannot read header after entry %d", s.count))
		return nil, s.err
	}

	s.entry = &Entry{
		session: s,
		info:    item.file,
		index:   s.count,
	}
	s.count++
	return s.entry, nil
}

// Close closes the session and the container file. Closing a nil or already
// closed session is a no-op.
func (s *Session) Close() error {
	if s == nil || s.state == stateClosed || s.state == stateFreed {
		return nil
	}
	s.invalidate()
	if s.stop != nil {
		s.stop()
	}

	var errs []string
	if s.filter != nil {
		if err := s.filter.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	s.state = stateClosed

	if len(errs) > 0 {
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Wrap(errdefs.ErrCloseFailed, strings.Join(errs, "; ")))
	}
	s.logger.Trace().Int("entries", s.count).Msg("Archive session closed")
	return nil
}

// Free releases everything held by the session. The session is closed first
// if needed and cannot be used afterwards.
func (s *Session) Free() error {
	if s == nil || s.state == stateFreed {
		return nil
	}
	if s.state != stateClosed {
		if err := s.Close(); err != nil {
			return errors.Wrap(errdefs.ErrFreeFailed, err.Error())
		}
	}
	s.filters = nil
	s.formats = nil
	s.next = nil
	s.stop = nil
	s.filter = nil
	s.file = nil
	s.state = stateFreed
	return nil
}

// Release closes then frees the session.
func (s *Session) Release() error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.Free()
}

func (s *Session) invalidate() {
	if s.entry != nil {
		s.entry.release()
		s.entry = nil
	}
}

func (s *Session) checkState(want state, op string) error {
	if s == nil || s.state == stateFreed || s.state == stateClosed {
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Wrapf(errdefs.ErrSessionClosed, "cannot %s", op))
	}
	if s.state != want {
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Errorf("cannot %s on %s session", op, s.state))
	}
	return nil
}
