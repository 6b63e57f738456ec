package extractor

import (
	"io"

	"github.com/crazy-max/unarchive/pkg/archive"
	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/pkg/errors"
)

// ExtractToMemory decodes every entry of the archive at filename in memory.
// A failing entry is recorded in its FileInfo and the walk goes on. Failing
// to read a header or to release the archive discards every record.
func ExtractToMemory(filename string, opts ExtractOpts) (data []DecompressedData, err error) {
	if err = archive.ValidateSource(filename); err != nil {
		return nil, err
	}

	session, err := openSession(filename, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := session.Release(); rerr != nil && err == nil {
			err = rerr
		}
		if err != nil {
			data = nil
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
			data = append(data, DecompressedData{
				FileInfo: failed("", entry.Size(), errors.Wrapf(errdefs.ErrPathname, "entry %d", entry.Index())),
			})
			continue
		}
		if !fileIsIncluded(pathsInArchive, name) {
			continue
		}
		logger := opts.Logger.With().Str("entry", name).Logger()

		size := entry.Size()
		if size < 1 {
			logger.Debug().Int64("size", size).Msg("Skipping entry with no content")
			data = append(data, DecompressedData{
				FileInfo: failed(name, size, errors.Wrapf(errdefs.ErrSizeLessThanOne, "%s", name)),
			})
			continue
		}

		logger.Debug().Msgf("Extracting %s", name)
		sink := newMemorySink(size)
		n, err := transfer(entry, sink)
		if err != nil {
			logger.Warn().Err(err).Msg("Cannot extract entry")
			data = append(data, DecompressedData{
				FileInfo: failed(name, size, err),
			})
			continue
		}

		data = append(data, DecompressedData{
			FileInfo: succeeded(name, n),
			Value:    sink.Bytes(),
		})
	}

	return data, nil
}
