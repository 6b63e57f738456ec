package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/crazy-max/unarchive/internal/testutil"
	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, path string, opts Opts) *Session {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.EnableAllFiltersAndFormats())
	require.NoError(t, s.Open(path))
	t.Cleanup(func() {
		_ = s.Release()
	})
	return s
}

func readAll(t *testing.T, e *Entry) ([]byte, []int64) {
	t.Helper()
	var data []byte
	var offsets []int64
	for {
		b, err := e.ReadBlock()
		if err == io.EOF {
			return data, offsets
		}
		require.NoError(t, err)
		data = append(data, b.Data...)
		offsets = append(offsets, b.Offset)
	}
}

func TestSessionFormats(t *testing.T) {
	dir := t.TempDir()
	entries := testutil.Files("a.txt", "alpha", "sub/b.txt", "bravo bravo")

	testCases := []struct {
		desc   string
		path   string
		format string
	}{
		{"tar", testutil.Tar(t, dir, "test.tar", entries), ".tar"},
		{"tar.gz", testutil.TarGz(t, dir, "test.tar.gz", entries), ".tar.gz"},
		{"tar.zst", testutil.TarZst(t, dir, "test.tar.zst", entries), ".tar.zst"},
		{"tar.xz", testutil.TarXz(t, dir, "test.tar.xz", entries), ".tar.xz"},
		{"zip", testutil.Zip(t, dir, "test.zip", entries), ".zip"},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			s := openTest(t, tt.path, Opts{})
			assert.Equal(t, tt.format, s.Format())

			var names []string
			for {
				e, err := s.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				name, ok := e.Pathname()
				require.True(t, ok)
				names = append(names, name)

				data, _ := readAll(t, e)
				assert.Equal(t, int64(len(data)), e.Size())
				assert.Equal(t, entries[e.Index()].Body, string(data))
			}
			assert.Equal(t, []string{"a.txt", "sub/b.txt"}, names)
		})
	}
}

func TestReadBlockOffsets(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "blocks.tar", testutil.Files("data.bin", "0123456789"))

	s := openTest(t, path, Opts{BlockSize: 4})
	e, err := s.Next()
	require.NoError(t, err)

	data, offsets := readAll(t, e)
	assert.Equal(t, "0123456789", string(data))
	assert.Equal(t, []int64{0, 4, 8}, offsets)

	// drained entries keep returning EOF
	_, err = e.ReadBlock()
	assert.Equal(t, io.EOF, err)
}

func TestStaleEntry(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "stale.tar", testutil.Files("a.txt", "alpha", "b.txt", "bravo"))

	s := openTest(t, path, Opts{})
	first, err := s.Next()
	require.NoError(t, err)
	second, err := s.Next()
	require.NoError(t, err)

	_, err = first.ReadBlock()
	assert.True(t, errors.Is(err, errdefs.ErrStaleEntry))

	data, _ := readAll(t, second)
	assert.Equal(t, "bravo", string(data))

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestEntryMetadata(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "meta.tar", []testutil.Entry{
		{
			Name: "acl.txt",
			Body: "x",
			Mode: 0o640,
			PAX: map[string]string{
				"SCHILY.xattr.system.posix_acl_access": "acl",
				"SCHILY.xattr.user.comment":            "hello",
				"SCHILY.fflags":                        "nodump",
			},
		},
		{
			Name: "text-acl.txt",
			Body: "y",
			PAX: map[string]string{
				"SCHILY.acl.access":  "user::rw-,user:alice:r--:1001,group::r--,mask::r--,other::---",
				"SCHILY.acl.default": "user::rwx,group::r-x,other::r-x",
			},
		},
		{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "acl.txt"},
		{Name: "hard", Typeflag: tar.TypeLink, Linkname: "acl.txt"},
		{Name: "dir/", Typeflag: tar.TypeDir},
	})

	s := openTest(t, path, Opts{})

	e, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), e.Mode().Perm())
	assert.True(t, e.ModTime().Equal(testutil.ModTime))
	assert.Equal(t, map[string]string{
		"system.posix_acl_access": "acl",
		"user.comment":            "hello",
	}, e.Xattrs())
	assert.Equal(t, "nodump", e.FFlags())
	assert.False(t, e.IsHardLink())
	access, def := e.ACLs()
	assert.Empty(t, access)
	assert.Empty(t, def)

	e, err = s.Next()
	require.NoError(t, err)
	access, def = e.ACLs()
	assert.Equal(t, "user::rw-,user:alice:r--:1001,group::r--,mask::r--,other::---", access)
	assert.Equal(t, "user::rwx,group::r-x,other::r-x", def)

	e, err = s.Next()
	require.NoError(t, err)
	assert.NotZero(t, e.Mode()&os.ModeSymlink)
	assert.Equal(t, "acl.txt", e.LinkTarget())

	e, err = s.Next()
	require.NoError(t, err)
	assert.True(t, e.IsHardLink())
	assert.Equal(t, "acl.txt", e.LinkTarget())

	e, err = s.Next()
	require.NoError(t, err)
	assert.True(t, e.IsDir())
	assert.Equal(t, int64(0), e.Size())
}

func TestPathname(t *testing.T) {
	testCases := []struct {
		desc string
		name string
		ok   bool
	}{
		{"valid", "dir/file.txt", true},
		{"empty", "", false},
		{"invalid utf8", "bad\xff\xfe.txt", false},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			e := &Entry{info: archives.FileInfo{NameInArchive: tt.name}}
			name, ok := e.Pathname()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.name, name)
			} else {
				assert.Empty(t, name)
			}
			assert.Equal(t, int64(-1), e.Size())
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(text, []byte("just some text, not an archive\n"), 0o644))

	testCases := []struct {
		desc     string
		path     string
		expected error
	}{
		{"not exists", filepath.Join(dir, "missing.tar"), errdefs.ErrNotExists},
		{"directory", dir, errdefs.ErrNotFile},
		{"nul byte", filepath.Join(dir, "a\x00.tar"), errdefs.ErrPathEncoding},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			s, err := New(Opts{})
			require.NoError(t, err)
			require.NoError(t, s.EnableAllFiltersAndFormats())
			err = s.Open(tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), err.Error())
			assert.NoError(t, s.Release())
		})
	}

	t.Run("not an archive", func(t *testing.T) {
		s, err := New(Opts{})
		require.NoError(t, err)
		require.NoError(t, s.EnableAllFiltersAndFormats())
		err = s.Open(text)
		require.Error(t, err)
		assert.Equal(t, errdefs.StatusFatal, errdefs.StatusOf(err))
		assert.NoError(t, s.Release())
	})
}

func TestUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := testutil.TarGz(t, dir, "test.tar.gz", testutil.Files("a.txt", "alpha"))

	s, err := New(Opts{})
	require.NoError(t, err)
	require.NoError(t, s.EnableFormat(archives.Tar{}))

	err = s.Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrUnsupportedFormat))
	assert.Equal(t, errdefs.StatusFatal, errdefs.StatusOf(err))
	assert.NoError(t, s.Release())
}

func TestLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "test.tar", testutil.Files("a.txt", "alpha"))

	_, err := New(Opts{BlockSize: -1})
	assert.True(t, errors.Is(err, errdefs.ErrCreateFailed))

	s := openTest(t, path, Opts{})

	// registration and open only on a new session
	err = s.EnableAllFiltersAndFormats()
	assert.Equal(t, errdefs.StatusFatal, errdefs.StatusOf(err))
	assert.Error(t, s.Open(path))

	e, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next()
	assert.True(t, errors.Is(err, errdefs.ErrSessionClosed))
	_, err = e.ReadBlock()
	assert.True(t, errors.Is(err, errdefs.ErrStaleEntry))

	require.NoError(t, s.Free())
	require.NoError(t, s.Free())
	require.NoError(t, s.Close())

	var nilSession *Session
	assert.NoError(t, nilSession.Close())
	assert.NoError(t, nilSession.Free())
}

func TestFreeClosesSession(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "test.tar", testutil.Files("a.txt", "alpha", "b.txt", "bravo"))

	s := openTest(t, path, Opts{})
	_, err := s.Next()
	require.NoError(t, err)

	// stops the walk halfway
	require.NoError(t, s.Free())
	_, err = s.Next()
	assert.True(t, errors.Is(err, errdefs.ErrSessionClosed))
}

func TestReadBlockCanceled(t *testing.T) {
	dir := t.TempDir()
	path := testutil.Tar(t, dir, "test.tar", testutil.Files("a.txt", "alpha"))

	ctx, cancel := context.WithCancel(context.Background())
	s := openTest(t, path, Opts{Context: ctx})
	e, err := s.Next()
	require.NoError(t, err)

	cancel()
	_, err = e.ReadBlock()
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, errdefs.StatusFatal, errdefs.StatusOf(err))
}
