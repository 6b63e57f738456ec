//go:build unix

package disk

import (
	"github.com/moby/sys/user"
)

func lookupUser(name string) (int, bool) {
	u, err := user.LookupUser(name)
	if err != nil {
		return 0, false
	}
	return u.Uid, true
}

func lookupGroup(name string) (int, bool) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, false
	}
	return g.Gid, true
}
