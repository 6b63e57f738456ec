package disk

import (
	"strings"
)

// Flags selects which attributes are restored on extracted files
type Flags uint

const (
	// FlagTime restores access and modification times.
	FlagTime Flags = 1 << iota
	// FlagPerm restores exact permission bits, setuid/setgid/sticky included.
	// Without it the process umask applies.
	FlagPerm
	// FlagACL restores POSIX ACLs.
	FlagACL
	// FlagFFlags restores filesystem flags (append-only, immutable, nodump...).
	FlagFFlags
	// FlagOwner restores ownership, resolving user and group names first.
	FlagOwner

	flagMask = FlagTime | FlagPerm | FlagACL | FlagFFlags | FlagOwner
)

// DefaultFlags is used when no flags are given.
const DefaultFlags = FlagTime | FlagPerm | FlagACL | FlagFFlags

// Has reports whether all bits of flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var names []string
	for _, n := range []struct {
		flag Flags
		name string
	}{
		{FlagTime, "time"},
		{FlagPerm, "perm"},
		{FlagACL, "acl"},
		{FlagFFlags, "fflags"},
		{FlagOwner, "owner"},
	} {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
