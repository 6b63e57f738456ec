package extractor

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/crazy-max/unarchive/pkg/archive"
	"github.com/crazy-max/unarchive/pkg/disk"
	"github.com/crazy-max/unarchive/pkg/errdefs"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
)

// ExtractToDir writes every entry of the archive at filename under dest,
// creating dest if needed. A failing entry is recorded in its FileInfo and
// the walk goes on; partially written files are kept. Failing to read a
// header or to release the archive or the disk writer discards every record.
func ExtractToDir(filename string, dest string, opts ExtractOpts) (infos []FileInfo, err error) {
	opts.Logger.Info().Msg("Extracting archive")

	if err = archive.ValidateSource(filename); err != nil {
		return nil, err
	}
	if err = ensureDir(dest); err != nil {
		return nil, err
	}

	flags := disk.DefaultFlags
	if opts.Flags != nil {
		flags = *opts.Flags
	}

	session, err := openSession(filename, opts)
	if err != nil {
		return nil, err
	}
	writer, err := disk.New(disk.Opts{
		Flags:  flags,
		Logger: opts.Logger,
	})
	if err != nil {
		_ = session.Release()
		return nil, err
	}
	writer.SetStandardLookup()

	defer func() {
		for _, release := range []func() error{writer.Close, writer.Free, session.Close, session.Free} {
			if rerr := release(); rerr != nil && err == nil {
				err = rerr
			}
		}
		if err != nil {
			infos = nil
		}
	}()

	pathsInArchive := includePaths(opts.Includes)
	for {
		entry, err := session.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		name, ok := entry.Pathname()
		if !ok {
			opts.Logger.Warn().Int("index", entry.Index()).Msg("Cannot get pathname from entry")
			infos = append(infos, failed("", entry.Size(), errors.Wrapf(errdefs.ErrPathname, "entry %d", entry.Index())))
			continue
		}
		if !fileIsIncluded(pathsInArchive, name) {
			continue
		}

		infos = append(infos, extractEntry(entry, name, dest, writer, opts))
	}

	return infos, nil
}

// extractEntry materializes one entry through writer. FinishEntry or
// FailEntry is called exactly once whenever a header was attempted.
func extractEntry(entry *archive.Entry, name string, dest string, writer *disk.Writer, opts ExtractOpts) FileInfo {
	logger := opts.Logger.With().Str("entry", name).Logger()
	size := entry.Size()

	path, err := destinationPath(dest, name, opts.SecurePaths)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot generate destination path")
		return failed(name, size, err)
	}
	hdr, err := header(entry, path, dest, opts.SecurePaths)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot generate destination path")
		return failed(name, size, err)
	}

	if entry.IsDir() {
		logger.Trace().Msgf("Extracting %s", name)
	} else {
		logger.Debug().Msgf("Extracting %s", name)
	}

	if err = writer.WriteHeader(hdr); err != nil {
		logger.Warn().Err(err).Msg("Cannot write header")
		_ = writer.FinishEntry()
		return failed(name, size, errors.Wrapf(errdefs.ErrWriteHeader, "%v", err))
	}

	if size < 1 {
		_ = writer.FinishEntry()
		return failed(name, size, errors.Wrapf(errdefs.ErrSizeLessThanOne, "%s", name))
	}

	n, err := transfer(entry, writer)
	if err != nil {
		_ = writer.FailEntry()
	} else if ferr := writer.FinishEntry(); ferr != nil {
		err = errors.Wrapf(errdefs.ErrWriteFailed, "%v", ferr)
	}
	if err != nil {
		logger.Warn().Err(err).Int64("written", n).Msg("Cannot extract entry")
		return failed(name, size, err)
	}
	return succeeded(name, n)
}

func header(entry *archive.Entry, path string, dest string, secure bool) (disk.Header, error) {
	owner := entry.Owner()
	aclAccess, aclDefault := entry.ACLs()
	hdr := disk.Header{
		Path:       path,
		Mode:       entry.Mode(),
		Size:       entry.Size(),
		ModTime:    entry.ModTime(),
		AccessTime: entry.AccessTime(),
		LinkTarget: entry.LinkTarget(),
		HardLink:   entry.IsHardLink(),
		UID:        owner.UID,
		GID:        owner.GID,
		Uname:      owner.Uname,
		Gname:      owner.Gname,
		Xattrs:     entry.Xattrs(),
		ACLAccess:  aclAccess,
		ACLDefault: aclDefault,
		FFlags:     entry.FFlags(),
	}
	if hdr.HardLink {
		target, err := destinationPath(dest, hdr.LinkTarget, secure)
		if err != nil {
			return hdr, err
		}
		hdr.LinkTarget = target
	}
	return hdr, nil
}

// destinationPath joins name under dest. With secure set the result is
// confined to dest, symlinks already extracted included.
func destinationPath(dest string, name string, secure bool) (string, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return "", errors.Wrapf(errdefs.ErrPathGeneration, "%q contains a NUL byte", name)
	}
	if !secure {
		return filepath.Join(dest, filepath.FromSlash(name)), nil
	}
	path, err := securejoin.SecureJoin(dest, filepath.FromSlash(name))
	if err != nil {
		return "", errors.Wrapf(errdefs.ErrPathGeneration, "%s: %v", name, err)
	}
	return path, nil
}

// ensureDir creates dest if it does not exist and checks it is a directory.
func ensureDir(dest string) error {
	fi, err := os.Stat(dest)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = os.MkdirAll(dest, 0o755); err != nil {
			return errors.Wrapf(errdefs.ErrCreateDirectory, "%s: %v", dest, err)
		}
		return nil
	case err != nil:
		return errors.Wrapf(errdefs.ErrMetadataUnavailable, "%s: %v", dest, err)
	case !fi.IsDir():
		return errors.Wrapf(errdefs.ErrNotDir, "%s", dest)
	}
	return nil
}
