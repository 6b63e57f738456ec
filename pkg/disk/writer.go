package disk

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Header describes one entry to materialize on disk
type Header struct {
	// Path is the destination path on disk
	Path string
	Mode fs.FileMode
	// Size is the declared size; regular files are extended to it on finish
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
	// LinkTarget is the symlink target, or the destination path of the
	// previously extracted file for a hard link
	LinkTarget string
	HardLink   bool
	UID        int
	GID        int
	Uname      string
	Gname      string
	Xattrs     map[string]string
	// ACLAccess and ACLDefault are ACLs in text form, used when Xattrs
	// carries no binary ACL
	ACLAccess  string
	ACLDefault string
	FFlags     string
}

// Opts holds disk writer options
type Opts struct {
	Flags  Flags
	Logger zerolog.Logger
}

type state int

const (
	stateOpen state = iota
	stateClosed
	stateFreed
)

// Writer writes archive entries to disk
type Writer struct {
	flags  Flags
	logger zerolog.Logger
	lookup Lookup

	cur    *pending
	fixups []Header
	state  state
}

type pending struct {
	hdr     Header
	file    *os.File
	written int64
}

// New creates a disk writer
func New(opts Opts) (*Writer, error) {
	if opts.Flags&^flagMask != 0 {
		return nil, errors.Wrapf(errdefs.ErrCreateFailed, "unknown extraction flags %#x", uint(opts.Flags&^flagMask))
	}
	return &Writer{
		flags:  opts.Flags,
		logger: opts.Logger,
	}, nil
}

// SetStandardLookup resolves ownership names with NewStandardLookup.
func (w *Writer) SetStandardLookup() {
	w.lookup = NewStandardLookup()
}

// SetLookup sets the Lookup used to resolve ownership names.
func (w *Writer) SetLookup(l Lookup) {
	w.lookup = l
}

// Flags returns the attribute flags of the writer
func (w *Writer) Flags() Flags {
	return w.flags
}

// WriteHeader creates the entry described by hdr. Regular files stay open
// for WriteBlock until FinishEntry.
func (w *Writer) WriteHeader(hdr Header) error {
	if w.state != stateOpen {
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Wrap(errdefs.ErrSessionClosed, "cannot write header"))
	}
	if w.cur != nil {
		if err := w.FinishEntry(); err != nil {
			return err
		}
	}
	if hdr.Path == "" || strings.IndexByte(hdr.Path, 0) >= 0 {
		return errdefs.InternalStatus(errdefs.StatusFailed, errors.Errorf("invalid destination path %q", hdr.Path))
	}

	if err := os.MkdirAll(filepath.Dir(hdr.Path), 0o755); err != nil {
		return errdefs.Internal(errors.Wrapf(err, "cannot create parent of %s", hdr.Path))
	}

	cur := &pending{hdr: hdr}
	switch {
	case hdr.Mode.IsDir():
		if err := removeExisting(hdr.Path, true); err != nil {
			return errdefs.Internal(err)
		}
		if err := os.MkdirAll(hdr.Path, 0o755); err != nil {
			return errdefs.Internal(errors.Wrapf(err, "cannot create directory %s", hdr.Path))
		}
	case hdr.HardLink:
		if err := removeExisting(hdr.Path, false); err != nil {
			return errdefs.Internal(err)
		}
		if err := os.Link(hdr.LinkTarget, hdr.Path); err != nil {
			return errdefs.Internal(errors.Wrapf(err, "cannot link %s", hdr.Path))
		}
	case hdr.Mode&fs.ModeSymlink != 0:
		if hdr.LinkTarget == "" {
			return errdefs.InternalStatus(errdefs.StatusFailed, errors.Errorf("symlink target is empty for %s", hdr.Path))
		}
		if err := removeExisting(hdr.Path, false); err != nil {
			return errdefs.Internal(err)
		}
		if err := os.Symlink(hdr.LinkTarget, hdr.Path); err != nil {
			return errdefs.Internal(errors.Wrapf(err, "cannot create symlink %s", hdr.Path))
		}
	case hdr.Mode.IsRegular():
		if err := removeExisting(hdr.Path, false); err != nil {
			return errdefs.Internal(err)
		}
		f, err := os.OpenFile(hdr.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.Mode.Perm())
		if err != nil {
			return errdefs.Internal(errors.Wrapf(err, "cannot create file %s", hdr.Path))
		}
		cur.file = f
	default:
		return errdefs.InternalStatus(errdefs.StatusFailed, errors.Errorf("cannot handle file mode: %v", hdr.Mode))
	}

	w.cur = cur
	return nil
}

// WriteBlock writes data at offset in the current regular file. Offsets may
// leave gaps that read back as zeros.
func (w *Writer) WriteBlock(data []byte, offset int64) (int, error) {
	if w.cur == nil || w.cur.file == nil {
		return 0, errors.New("no regular file entry open for writing")
	}
	n, err := w.cur.file.WriteAt(data, offset)
	if end := offset + int64(n); end > w.cur.written {
		w.cur.written = end
	}
	if err != nil {
		return n, errors.Wrapf(err, "cannot write %s at offset %d", w.cur.hdr.Path, offset)
	}
	return n, nil
}

// FinishEntry completes the current entry and restores its attributes.
// Regular files are extended to their declared size. Directory attributes
// are restored on Close, after their content.
func (w *Writer) FinishEntry() error {
	return w.finish(true)
}

// FailEntry completes the current entry after a failed transfer. The file
// keeps only the data written so far.
func (w *Writer) FailEntry() error {
	return w.finish(false)
}

func (w *Writer) finish(complete bool) error {
	cur := w.cur
	if cur == nil {
		return nil
	}
	w.cur = nil

	if cur.file != nil {
		var err error
		if complete && cur.hdr.Size > cur.written {
			err = cur.file.Truncate(cur.hdr.Size)
		}
		if cerr := cur.file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errdefs.Internal(errors.Wrapf(err, "cannot finish %s", cur.hdr.Path))
		}
	}

	switch {
	case cur.hdr.Mode.IsDir():
		w.fixups = append(w.fixups, cur.hdr)
	case cur.hdr.HardLink:
		// attributes belong to the link target
	default:
		w.restore(cur.hdr)
	}
	return nil
}

// Close finishes any pending entry and restores directory attributes.
func (w *Writer) Close() error {
	if w == nil || w.state != stateOpen {
		return nil
	}
	err := w.FinishEntry()

	// children first so restoring a parent is not undone by its content
	slices.SortStableFunc(w.fixups, func(a, b Header) int {
		return strings.Count(b.Path, string(filepath.Separator)) - strings.Count(a.Path, string(filepath.Separator))
	})
	for _, hdr := range w.fixups {
		w.restore(hdr)
	}
	w.fixups = nil
	w.state = stateClosed

	if err != nil {
		return errdefs.InternalStatus(errdefs.StatusFatal, errors.Wrap(errdefs.ErrCloseFailed, err.Error()))
	}
	return nil
}

// Free releases the writer, closing it first if needed.
func (w *Writer) Free() error {
	if w == nil || w.state == stateFreed {
		return nil
	}
	if w.state != stateClosed {
		if err := w.Close(); err != nil {
			return errors.Wrap(errdefs.ErrFreeFailed, err.Error())
		}
	}
	w.lookup = nil
	w.state = stateFreed
	return nil
}

// restore applies the attributes selected by the writer flags. Failures are
// not fatal to the entry and are logged.
func (w *Writer) restore(hdr Header) {
	symlink := hdr.Mode&fs.ModeSymlink != 0
	logger := w.logger.With().Str("path", hdr.Path).Logger()

	if w.flags.Has(FlagOwner) && hdr.UID >= 0 && hdr.GID >= 0 {
		uid, gid := hdr.UID, hdr.GID
		if w.lookup != nil {
			uid = w.lookup.UID(hdr.Uname, uid)
			gid = w.lookup.GID(hdr.Gname, gid)
		}
		if err := os.Lchown(hdr.Path, uid, gid); err != nil {
			logger.Warn().Err(err).Msg("Cannot restore owner")
		}
	}
	if w.flags.Has(FlagPerm) && !symlink {
		mode := hdr.Mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		if err := os.Chmod(hdr.Path, mode); err != nil {
			logger.Warn().Err(err).Msg("Cannot restore permissions")
		}
	}
	if w.flags.Has(FlagACL) && !symlink {
		xattrs, err := aclXattrs(hdr, w.lookup)
		if err != nil {
			logger.Warn().Err(err).Msg("Cannot decode ACLs")
		}
		if len(xattrs) > 0 {
			if err = setACLs(hdr.Path, xattrs); err != nil {
				logger.Warn().Err(err).Msg("Cannot restore ACLs")
			}
		}
	}
	if w.flags.Has(FlagTime) && !hdr.ModTime.IsZero() {
		atime := hdr.AccessTime
		if atime.IsZero() {
			atime = hdr.ModTime
		}
		if err := setTimes(hdr.Path, atime, hdr.ModTime, symlink); err != nil {
			logger.Warn().Err(err).Msg("Cannot restore times")
		}
	}
	// last, an immutable flag would prevent any other change
	if w.flags.Has(FlagFFlags) && hdr.FFlags != "" && !symlink {
		if err := setFFlags(hdr.Path, hdr.FFlags); err != nil {
			logger.Warn().Err(err).Msg("Cannot restore file flags")
		}
	}
}

// removeExisting removes whatever is at path unless it is a directory and
// keepDir is set.
func removeExisting(path string, keepDir bool) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "cannot stat %s", path)
	}
	if fi.IsDir() && keepDir {
		return nil
	}
	if err = os.Remove(path); err != nil {
		return errors.Wrapf(err, "cannot replace %s", path)
	}
	return nil
}
