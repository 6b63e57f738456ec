package archive

import (
	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Filters lists every decompression filter a session can negotiate.
func Filters() []archives.Compression {
	return []archives.Compression{
		archives.Brotli{},
		archives.Bz2{},
		archives.Gz{},
		archives.Lz4{},
		archives.Lzip{},
		archives.MinLZ{},
		archives.Sz{},
		archives.Xz{},
		archives.Zlib{},
		archives.Zstd{},
	}
}

// Formats lists every container format a session can negotiate.
func Formats() []archives.Extraction {
	return []archives.Extraction{
		archives.Tar{},
		archives.Zip{},
		archives.Rar{},
		archives.SevenZip{},
	}
}

// negotiate splits an identified format into its filter and container parts
// and checks both were enabled on the session.
func (s *Session) negotiate(format archives.Format) (archives.Compression, archives.Extraction, error) {
	var filter archives.Compression
	var extraction archives.Extraction

	switch f := format.(type) {
	case archives.CompressedArchive:
		filter, extraction = f.Compression, f.Extraction
	case archives.Extraction:
		extraction = f
	case archives.Compression:
		filter = f
	}

	if filter != nil {
		if _, ok := s.filters[filter.Extension()]; !ok {
			return nil, nil, errors.Wrapf(errdefs.ErrUnsupportedFormat, "filter %s not enabled", filter.Extension())
		}
	}
	if extraction == nil {
		return nil, nil, errors.Wrapf(errdefs.ErrUnsupportedFormat, "no archive format recognized in %s stream", format.Extension())
	}
	if _, ok := s.formats[extraction.Extension()]; !ok {
		return nil, nil, errors.Wrapf(errdefs.ErrUnsupportedFormat, "format %s not enabled", extraction.Extension())
	}

	return filter, extraction, nil
}
