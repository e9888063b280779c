package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
}

func TestResolve_Annual(t *testing.T) {
	root := t.TempDir()
	sim := filepath.Join(root, "ajnjm")
	touch(t, sim, "ajnjma.py19920101.nc", "ajnjma.py19900101.nc", "ajnjma.py19910101.nc",
		"ajnjma.ps1990djf.nc", "notes.txt")

	files, err := New(root, "").Resolve("ajnjm", "ann")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(sim, "ajnjma.py19900101.nc"),
		filepath.Join(sim, "ajnjma.py19910101.nc"),
		filepath.Join(sim, "ajnjma.py19920101.nc"),
	}, files)
}

func TestResolve_Seasonal(t *testing.T) {
	root := t.TempDir()
	sim := filepath.Join(root, "ajnjm")
	touch(t, sim, "ajnjma.ps1991djf.nc", "ajnjma.ps1990djf.nc", "ajnjma.ps1990jja.nc", "ajnjma.py19900101.nc")

	files, err := New(root, ".nc").Resolve("ajnjm", "djf")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(sim, "ajnjma.ps1990djf.nc"),
		filepath.Join(sim, "ajnjma.ps1991djf.nc"),
	}, files)
}

func TestResolve_Suffix(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "ajnjm"), "ajnjma.py19900101.pp", "ajnjma.py19900101.nc")

	files, err := New(root, "pp").Resolve("ajnjm", "ann")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".pp", filepath.Ext(files[0]))
}

func TestResolve_NoFiles(t *testing.T) {
	files, err := New(t.TempDir(), "").Resolve("missing", "ann")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_MonthlyRejected(t *testing.T) {
	_, err := New(t.TempDir(), "").Resolve("ajnjm", "jan")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "not implemented")
}

func TestResolve_UnknownPeriod(t *testing.T) {
	_, err := New(t.TempDir(), "").Resolve("ajnjm", "winter")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
