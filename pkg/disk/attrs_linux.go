//go:build linux

package disk

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func setACLs(path string, xattrs map[string]string) error {
	for _, name := range []string{xattrACLAccess, xattrACLDefault} {
		value, ok := xattrs[name]
		if !ok {
			continue
		}
		if err := unix.Lsetxattr(path, name, []byte(value), 0); err != nil {
			return errors.Wrapf(err, "cannot set %s", name)
		}
	}
	return nil
}

func setTimes(path string, atime, mtime time.Time, symlink bool) error {
	if !symlink {
		return os.Chtimes(path, atime, mtime)
	}
	return unix.Lutimes(path, []unix.Timeval{
		unix.NsecToTimeval(atime.UnixNano()),
		unix.NsecToTimeval(mtime.UnixNano()),
	})
}

func setFFlags(path string, fflags string) error {
	bits, perr := parseFFlags(fflags)
	if bits == 0 {
		return perr
	}

	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	cur, err := unix.IoctlGetInt(int(f.Fd()), unix.FS_IOC_GETFLAGS)
	if err != nil {
		return errors.Wrap(err, "cannot get file flags")
	}
	if err = unix.IoctlSetPointerInt(int(f.Fd()), unix.FS_IOC_SETFLAGS, cur|bits); err != nil {
		return errors.Wrap(err, "cannot set file flags")
	}
	return perr
}
