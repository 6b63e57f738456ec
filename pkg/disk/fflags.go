package disk

import (
	"strings"

	"github.com/pkg/errors"
)

// inode flags as defined by linux/fs.h
const (
	fsSyncFl      = 0x00000008
	fsImmutableFl = 0x00000010
	fsAppendFl    = 0x00000020
	fsNodumpFl    = 0x00000040
	fsNoatimeFl   = 0x00000080
)

var fflagBits = map[string]int{
	"sappnd":     fsAppendFl,
	"sappend":    fsAppendFl,
	"uappnd":     fsAppendFl,
	"uappend":    fsAppendFl,
	"append":     fsAppendFl,
	"schg":       fsImmutableFl,
	"schange":    fsImmutableFl,
	"simmutable": fsImmutableFl,
	"uchg":       fsImmutableFl,
	"immutable":  fsImmutableFl,
	"nodump":     fsNodumpFl,
	"noatime":    fsNoatimeFl,
	"sync":       fsSyncFl,
}

// parseFFlags converts a comma separated list of file flag names into inode
// flag bits. Unknown names are returned as an error along with the bits of
// the known ones.
func parseFFlags(s string) (int, error) {
	var bits int
	var unknown []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if bit, ok := fflagBits[name]; ok {
			bits |= bit
		} else {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return bits, errors.Errorf("unknown file flags: %s", strings.Join(unknown, ","))
	}
	return bits, nil
}
