//go:build !linux

package disk

import (
	"os"
	"time"
)

// ACLs and file flags are only restored on linux.
func setACLs(string, map[string]string) error {
	return nil
}

func setTimes(path string, atime, mtime time.Time, symlink bool) error {
	if symlink {
		return nil
	}
	return os.Chtimes(path, atime, mtime)
}

func setFFlags(string, string) error {
	return nil
}
