package config

import (
	"github.com/alecthomas/kong"
	"github.com/crazy-max/unarchive/pkg/disk"
)

type Cli struct {
	Version kong.VersionFlag

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	Includes    []string `kong:"name=include,help='Include a subset of files/dirs from the source container.'"`
	NoTime      bool     `kong:"name=no-time,default=false,help='Do not restore modification and access times.'"`
	NoPerms     bool     `kong:"name=no-perms,default=false,help='Do not restore exact permissions, apply umask instead.'"`
	NoACLs      bool     `kong:"name=no-acls,default=false,help='Do not restore POSIX ACLs.'"`
	NoFFlags    bool     `kong:"name=no-fflags,default=false,help='Do not restore filesystem flags.'"`
	SameOwner   bool     `kong:"name=same-owner,default=false,help='Restore ownership recorded in the container.'"`
	UnsafePaths bool     `kong:"name=unsafe-paths,env=UNARCHIVE_UNSAFE_PATHS,default=false,help='Join entry names to dist folder as is, allowing them to escape it.'"`
	RmDist      bool     `kong:"name=rm-dist,default=false,help='Removes dist folder.'"`
	Strict      bool     `kong:"name=strict,default=false,help='Exit with an error if any entry cannot be extracted.'"`

	Source string `kong:"arg,required,name=source,type=path,help='Source container file. (eg. ./archive.tar.gz)'"`
	Dist   string `kong:"arg,optional,name=dist,type=path,help='Dist folder. Entries are listed if omitted. (eg. ./dist)'"`
}

// Flags returns the extraction attribute flags selected on the command line
func (c Cli) Flags() disk.Flags {
	flags := disk.DefaultFlags
	if c.NoTime {
		flags &^= disk.FlagTime
	}
	if c.NoPerms {
		flags &^= disk.FlagPerm
	}
	if c.NoACLs {
		flags &^= disk.FlagACL
	}
	if c.NoFFlags {
		flags &^= disk.FlagFFlags
	}
	if c.SameOwner {
		flags |= disk.FlagOwner
	}
	return flags
}
