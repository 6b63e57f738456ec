package disk

// Lookup resolves user and group names recorded in an archive to numeric
// ids on the local system.
type Lookup interface {
	// UID returns the local id for name, or id if name cannot be resolved.
	UID(name string, id int) int
	// GID returns the local id for name, or id if name cannot be resolved.
	GID(name string, id int) int
}

// standardLookup resolves names through the system user and group databases
// and caches every answer.
type standardLookup struct {
	users  map[string]cachedID
	groups map[string]cachedID
}

// cachedID is a lookup answer. Misses are cached too so the system databases
// are read once per name, but fall back to the id of the asking entry.
type cachedID struct {
	id int
	ok bool
}

// NewStandardLookup returns the Lookup backed by /etc/passwd and /etc/group.
func NewStandardLookup() Lookup {
	return &standardLookup{
		users:  make(map[string]cachedID),
		groups: make(map[string]cachedID),
	}
}

func (l *standardLookup) UID(name string, id int) int {
	return resolve(l.users, lookupUser, name, id)
}

func (l *standardLookup) GID(name string, id int) int {
	return resolve(l.groups, lookupGroup, name, id)
}

func resolve(cache map[string]cachedID, lookup func(string) (int, bool), name string, id int) int {
	if name == "" {
		return id
	}
	c, cached := cache[name]
	if !cached {
		c.id, c.ok = lookup(name)
		cache[name] = c
	}
	if !c.ok {
		return id
	}
	return c.id
}
