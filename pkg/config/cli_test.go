package config

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/unarchive/pkg/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliFlags(t *testing.T) {
	testCases := []struct {
		desc     string
		args     []string
		expected disk.Flags
	}{
		{
			desc:     "defaults",
			args:     []string{"archive.tar"},
			expected: disk.DefaultFlags,
		},
		{
			desc:     "no time no perms",
			args:     []string{"--no-time", "--no-perms", "archive.tar", "dist"},
			expected: disk.FlagACL | disk.FlagFFlags,
		},
		{
			desc:     "same owner",
			args:     []string{"--same-owner", "--no-acls", "--no-fflags", "archive.tar", "dist"},
			expected: disk.FlagTime | disk.FlagPerm | disk.FlagOwner,
		},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			var cli Cli
			parser, err := kong.New(&cli, kong.Vars{"version": "test"})
			require.NoError(t, err)
			_, err = parser.Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cli.Flags())
			assert.NotEmpty(t, cli.Source)
			assert.False(t, cli.UnsafePaths)
		})
	}
}

func TestCliMissingSource(t *testing.T) {
	var cli Cli
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	_, err = parser.Parse([]string{"--strict"})
	assert.Error(t, err)
}
