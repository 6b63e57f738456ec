package disk

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	xattrACLAccess  = "system.posix_acl_access"
	xattrACLDefault = "system.posix_acl_default"

	aclVersion     = 2
	aclUndefinedID = 0xffffffff
)

// ACL entry tags as defined by linux/posix_acl.h
const (
	aclUserObj  = 0x01
	aclUser     = 0x02
	aclGroupObj = 0x04
	aclGroup    = 0x08
	aclMask     = 0x10
	aclOther    = 0x20
)

type aclEntry struct {
	tag  uint16
	perm uint16
	id   uint32
}

// encodeACL converts an ACL in text form, as recorded by bsdtar and star in
// SCHILY.acl.access and SCHILY.acl.default, into the value of a
// system.posix_acl_* extended attribute. Entries look like
// "user:alice:rw-:1001" and are separated by commas or newlines. Named
// entries without a numeric id are resolved with lookup.
func encodeACL(text string, lookup Lookup) ([]byte, error) {
	var entries []aclEntry
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		field = strings.TrimSpace(field)
		if field == "" || strings.HasPrefix(field, "#") {
			continue
		}
		entry, err := parseACLEntry(field, lookup)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, errors.New("empty ACL")
	}

	// the kernel expects entries ordered by tag then id
	slices.SortStableFunc(entries, func(a, b aclEntry) int {
		if a.tag != b.tag {
			return int(a.tag) - int(b.tag)
		}
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})

	buf := make([]byte, 4, 4+8*len(entries))
	binary.LittleEndian.PutUint32(buf, aclVersion)
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, e.tag)
		buf = binary.LittleEndian.AppendUint16(buf, e.perm)
		buf = binary.LittleEndian.AppendUint32(buf, e.id)
	}
	return buf, nil
}

func parseACLEntry(field string, lookup Lookup) (aclEntry, error) {
	parts := strings.Split(field, ":")
	if len(parts) < 2 {
		return aclEntry{}, errors.Errorf("invalid ACL entry %q", field)
	}

	var e aclEntry
	var qualifier, perms, extraID string
	switch parts[0] {
	case "mask", "m", "other", "o":
		// "other::r--" or "other:r--"
		perms = parts[len(parts)-1]
	default:
		if len(parts) < 3 {
			return aclEntry{}, errors.Errorf("invalid ACL entry %q", field)
		}
		qualifier, perms = parts[1], parts[2]
		if len(parts) > 3 {
			extraID = parts[3]
		}
	}

	switch parts[0] {
	case "user", "u":
		e.tag = aclUserObj
		if qualifier != "" {
			e.tag = aclUser
		}
	case "group", "g":
		e.tag = aclGroupObj
		if qualifier != "" {
			e.tag = aclGroup
		}
	case "mask", "m":
		e.tag = aclMask
	case "other", "o":
		e.tag = aclOther
	default:
		return aclEntry{}, errors.Errorf("unknown ACL tag in %q", field)
	}

	perm, err := parseACLPerms(perms)
	if err != nil {
		return aclEntry{}, errors.Wrapf(err, "invalid ACL entry %q", field)
	}
	e.perm = perm

	e.id = aclUndefinedID
	if e.tag == aclUser || e.tag == aclGroup {
		id, ok := aclID(e.tag, qualifier, extraID, lookup)
		if !ok {
			return aclEntry{}, errors.Errorf("cannot resolve %q in ACL entry %q", qualifier, field)
		}
		e.id = uint32(id)
	}
	return e, nil
}

func parseACLPerms(s string) (uint16, error) {
	var perm uint16
	for _, c := range s {
		switch c {
		case 'r':
			perm |= 4
		case 'w':
			perm |= 2
		case 'x':
			perm |= 1
		case '-':
		default:
			return 0, errors.Errorf("unknown permission %q", c)
		}
	}
	return perm, nil
}

func aclID(tag uint16, qualifier, extraID string, lookup Lookup) (int, bool) {
	if id, err := strconv.Atoi(extraID); err == nil && id >= 0 {
		return id, true
	}
	if id, err := strconv.Atoi(qualifier); err == nil && id >= 0 {
		return id, true
	}
	if lookup == nil {
		return 0, false
	}
	var id int
	if tag == aclUser {
		id = lookup.UID(qualifier, -1)
	} else {
		id = lookup.GID(qualifier, -1)
	}
	return id, id >= 0
}

// aclXattrs returns the ACL extended attributes to set for hdr. Binary
// xattrs recorded in the archive take precedence over the text form.
func aclXattrs(hdr Header, lookup Lookup) (map[string]string, error) {
	xattrs := make(map[string]string)
	for _, name := range []string{xattrACLAccess, xattrACLDefault} {
		if v, ok := hdr.Xattrs[name]; ok {
			xattrs[name] = v
		}
	}
	for _, acl := range []struct{ name, text string }{
		{xattrACLAccess, hdr.ACLAccess},
		{xattrACLDefault, hdr.ACLDefault},
	} {
		if _, ok := xattrs[acl.name]; ok || acl.text == "" {
			continue
		}
		value, err := encodeACL(acl.text, lookup)
		if err != nil {
			return xattrs, errors.Wrapf(err, "cannot encode %s", acl.name)
		}
		xattrs[acl.name] = string(value)
	}
	return xattrs, nil
}
