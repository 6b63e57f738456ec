// Package testutil builds container files for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// ModTime is the modification time recorded for every fixture entry.
var ModTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// Entry describes one fixture entry
type Entry struct {
	Name     string
	Body     string
	Typeflag byte
	Mode     int64
	Linkname string
	// GNU forces the GNU tar format, needed for names that are not valid UTF-8
	GNU bool
	PAX map[string]string
}

// Files returns regular file entries for name/body pairs.
func Files(kv ...string) []Entry {
	var entries []Entry
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, Entry{Name: kv[i], Body: kv[i+1]})
	}
	return entries
}

// WriteTar writes entries as a tar stream to w.
func WriteTar(t *testing.T, w io.Writer, entries []Entry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:       e.Name,
			Typeflag:   e.Typeflag,
			Mode:       e.Mode,
			Size:       int64(len(e.Body)),
			Linkname:   e.Linkname,
			ModTime:    ModTime,
			PAXRecords: e.PAX,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0o755
			}
		}
		if hdr.Typeflag != tar.TypeReg {
			hdr.Size = 0
		}
		if e.GNU {
			hdr.Format = tar.FormatGNU
		} else if len(e.PAX) > 0 {
			hdr.Format = tar.FormatPAX
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := io.WriteString(tw, e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

// Tar creates dir/name as a plain tar file.
func Tar(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return create(t, dir, name, func(w io.Writer) {
		WriteTar(t, w, entries)
	})
}

// TarGz creates dir/name as a gzip compressed tar file.
func TarGz(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return create(t, dir, name, func(w io.Writer) {
		zw := gzip.NewWriter(w)
		WriteTar(t, zw, entries)
		require.NoError(t, zw.Close())
	})
}

// TarZst creates dir/name as a zstandard compressed tar file.
func TarZst(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return create(t, dir, name, func(w io.Writer) {
		zw, err := zstd.NewWriter(w)
		require.NoError(t, err)
		WriteTar(t, zw, entries)
		require.NoError(t, zw.Close())
	})
}

// TarXz creates dir/name as a xz compressed tar file.
func TarXz(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return create(t, dir, name, func(w io.Writer) {
		xw, err := xz.NewWriter(w)
		require.NoError(t, err)
		WriteTar(t, xw, entries)
		require.NoError(t, xw.Close())
	})
}

// Zip creates dir/name as a zip file. Only names and bodies are used.
func Zip(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return writeZip(t, dir, name, entries, zip.Deflate)
}

// ZipStore creates dir/name as a zip file with uncompressed entries, so each
// body appears as is in the file.
func ZipStore(t *testing.T, dir, name string, entries []Entry) string {
	t.Helper()
	return writeZip(t, dir, name, entries, zip.Store)
}

// Corrupt flips the first byte of the first occurrence of needle in the file
// at path.
func Corrupt(t *testing.T, path string, needle string) {
	t.Helper()
	dt, err := os.ReadFile(path)
	require.NoError(t, err)
	i := bytes.Index(dt, []byte(needle))
	require.GreaterOrEqual(t, i, 0, "%q not found in %s", needle, path)
	dt[i] ^= 0xff
	require.NoError(t, os.WriteFile(path, dt, 0o644))
}

// Truncate cuts the file at path to half its size.
func Truncate(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, fi.Size()/2))
}

func writeZip(t *testing.T, dir, name string, entries []Entry, method uint16) string {
	t.Helper()
	return create(t, dir, name, func(w io.Writer) {
		zw := zip.NewWriter(w)
		for _, e := range entries {
			fw, err := zw.CreateHeader(&zip.FileHeader{
				Name:     e.Name,
				Method:   method,
				Modified: ModTime,
			})
			require.NoError(t, err)
			_, err = io.WriteString(fw, e.Body)
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
	})
}

func create(t *testing.T, dir, name string, write func(w io.Writer)) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	write(f)
	require.NoError(t, f.Close())
	return path
}
