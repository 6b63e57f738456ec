package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crazy-max/unarchive/pkg/errdefs"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

const (
	paxXattrPrefix = "SCHILY.xattr."
	paxFFlags      = "SCHILY.fflags"
	paxACLAccess   = "SCHILY.acl.access"
	paxACLDefault  = "SCHILY.acl.default"
)

// Entry is the entry a session is currently positioned on. It becomes stale
// as soon as the session advances.
type Entry struct {
	session *Session
	info    archives.FileInfo
	index   int

	rc     fs.File
	r      io.Reader
	buf    []byte
	offset int64
	err    error
	done   bool
	stale  bool
}

// Block is one chunk of decoded entry data at its logical offset. Data is
// only valid until the next call to ReadBlock.
type Block struct {
	Data   []byte
	Offset int64
}

// Owner holds the ownership recorded in the archive.
type Owner struct {
	UID   int
	GID   int
	Uname string
	Gname string
}

// Index returns the position of the entry in the archive.
func (e *Entry) Index() int {
	return e.index
}

// Pathname returns the entry name. ok is false if the name is missing or is
// not valid UTF-8.
func (e *Entry) Pathname() (name string, ok bool) {
	name = e.info.NameInArchive
	if name == "" || !utf8.ValidString(name) {
		return "", false
	}
	return name, true
}

// Size returns the declared uncompressed size, -1 if unknown.
func (e *Entry) Size() int64 {
	if e.info.FileInfo == nil {
		return -1
	}
	return e.info.Size()
}

func (e *Entry) Mode() fs.FileMode {
	if e.info.FileInfo == nil {
		return 0
	}
	return e.info.Mode()
}

func (e *Entry) IsDir() bool {
	return e.Mode().IsDir()
}

func (e *Entry) ModTime() time.Time {
	if e.info.FileInfo == nil {
		return time.Time{}
	}
	return e.info.ModTime()
}

// AccessTime returns the recorded access time, falling back to ModTime.
func (e *Entry) AccessTime() time.Time {
	if hdr := e.tarHeader(); hdr != nil && !hdr.AccessTime.IsZero() {
		return hdr.AccessTime
	}
	return e.ModTime()
}

// LinkTarget returns the symlink or hard link target as stored in the archive.
func (e *Entry) LinkTarget() string {
	return e.info.LinkTarget
}

// IsHardLink reports whether the entry is a hard link to a previous entry.
func (e *Entry) IsHardLink() bool {
	hdr := e.tarHeader()
	return hdr != nil && hdr.Typeflag == tar.TypeLink
}

// Owner returns the recorded ownership. Formats without ownership return -1
// ids.
func (e *Entry) Owner() Owner {
	hdr := e.tarHeader()
	if hdr == nil {
		return Owner{UID: -1, GID: -1}
	}
	return Owner{
		UID:   hdr.Uid,
		GID:   hdr.Gid,
		Uname: hdr.Uname,
		Gname: hdr.Gname,
	}
}

// Xattrs returns the extended attributes recorded for the entry, ACLs
// included.
func (e *Entry) Xattrs() map[string]string {
	hdr := e.tarHeader()
	if hdr == nil {
		return nil
	}
	var xattrs map[string]string
	for k, v := range hdr.PAXRecords {
		if !strings.HasPrefix(k, paxXattrPrefix) {
			continue
		}
		if xattrs == nil {
			xattrs = make(map[string]string)
		}
		xattrs[strings.TrimPrefix(k, paxXattrPrefix)] = v
	}
	return xattrs
}

// FFlags returns the comma separated file flags recorded for the entry.
func (e *Entry) FFlags() string {
	if hdr := e.tarHeader(); hdr != nil {
		return hdr.PAXRecords[paxFFlags]
	}
	return ""
}

// ACLs returns the access and default ACLs recorded in text form, as written
// by bsdtar and star.
func (e *Entry) ACLs() (access, def string) {
	if hdr := e.tarHeader(); hdr != nil {
		return hdr.PAXRecords[paxACLAccess], hdr.PAXRecords[paxACLDefault]
	}
	return "", ""
}

func (e *Entry) tarHeader() *tar.Header {
	switch hdr := e.info.Header.(type) {
	case *tar.Header:
		return hdr
	case tar.Header:
		return &hdr
	}
	return nil
}

// ReadBlock pulls the next data block. It returns io.EOF once the entry has
// no more data.
func (e *Entry) ReadBlock() (Block, error) {
	if e.stale {
		return Block{}, errors.Wrapf(errdefs.ErrStaleEntry, "entry %d", e.index)
	}
	if e.err != nil {
		return Block{}, e.err
	}
	if e.done {
		return Block{}, io.EOF
	}

	if e.rc == nil {
		if e.info.Open == nil {
			e.err = errdefs.InternalStatus(errdefs.StatusFailed, errors.Errorf("entry %d has no data", e.index))
			return Block{}, e.err
		}
		rc, err := e.info.Open()
		if err != nil {
			e.err = errdefs.Internal(errors.Wrapf(err, "cannot open entry %d", e.index))
			return Block{}, e.err
		}
		e.rc = rc
		e.r = readerContext(e.session.ctx, rc)
		e.buf = make([]byte, e.session.blockSize)
	}

	n, err := fill(e.r, e.buf)
	if err == io.EOF {
		e.done = true
	} else if err != nil {
		e.err = errdefs.Internal(errors.Wrapf(err, "cannot read entry %d at offset %d", e.index, e.offset+int64(n)))
	}
	if n == 0 {
		if e.err != nil {
			return Block{}, e.err
		}
		return Block{}, io.EOF
	}

	block := Block{
		Data:   e.buf[:n],
		Offset: e.offset,
	}
	e.offset += int64(n)
	return block, nil
}

func (e *Entry) release() {
	if e.rc != nil {
		_ = e.rc.Close()
		e.rc = nil
	}
	e.r = nil
	e.buf = nil
	e.stale = true
}

// fill reads into buf until it is full or r fails.
func fill(r io.Reader, buf []byte) (int, error) {
	var n int
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
