package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crazy-max/unarchive/internal/testutil"
	"github.com/crazy-max/unarchive/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Zip(t, dir, "test.zip", testutil.Files("a.txt", "alpha"))
	dist := filepath.Join(dir, "dist")

	u, err := New(config.Meta{Name: "Unarchive"}, config.Cli{Source: src, Dist: dist})
	require.NoError(t, err)
	defer u.Close()
	require.NoError(t, u.Start())

	dt, err := os.ReadFile(filepath.Join(dist, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(dt))
}

func TestStartCanceled(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Tar(t, dir, "test.tar", testutil.Files("a.txt", "alpha"))

	u, err := New(config.Meta{}, config.Cli{Source: src, Dist: filepath.Join(dir, "dist")})
	require.NoError(t, err)
	u.Close()
	assert.Error(t, u.Start())
}

func TestNewMissingSource(t *testing.T) {
	_, err := New(config.Meta{}, config.Cli{})
	assert.Error(t, err)
}
