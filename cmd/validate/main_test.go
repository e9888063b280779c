package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapField(name string, values ...float64) domain.Field {
	f := domain.NewField(name, "kg m^2 yr", []string{domain.DimLatitude, domain.DimLongitude}, []int{1, 2})
	copy(f.Data.Elements, values)
	f.Lat = []float64{0}
	f.Lon = []float64{90, 270}
	return f
}

func artifactsOf(fields ...domain.Field) []artifact {
	out := make([]artifact, len(fields))
	for i, f := range fields {
		out[i] = artifact{path: f.Name + ".nc", field: f}
	}
	return out
}

func TestValidateAnomalies_Consistent(t *testing.T) {
	p := validateAnomalies(artifactsOf(
		mapField("NPP_Ensemble_Mean_Historical_ann", 1, 2),
		mapField("NPP_Ensemble_Mean_RCP85_ann", 4, 6),
		mapField("NPP_[RCP85-Historical]_(1990-1991)_ann", 3, 4),
		mapField("NPP_[ajnjm-ajnjg]_(1990-1991)_ann", 100, 100),
	), 1e-9)
	assert.True(t, p.passed(), p.errors)
}

func TestValidateAnomalies_Mismatch(t *testing.T) {
	p := validateAnomalies(artifactsOf(
		mapField("NPP_Ensemble_Mean_Historical_ann", 1, 2),
		mapField("NPP_Ensemble_Mean_RCP85_ann", 4, 6),
		mapField("NPP_[RCP85-Historical]_(1990-1991)_ann", 3, 5),
	), 1e-9)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "cell 1")
}

func TestValidateNaming(t *testing.T) {
	p := validateNaming(artifactsOf(
		mapField("NPP_(1990-1991)_ajnjg_ann"),
		mapField("NPP_Ensemble_Mean_Historical_djf"),
		mapField("NPP_[RCP85-Historical]_(1990-1991)_ann"),
		mapField("NPP_(1991-1990)_ajnjg_ann"),
		mapField("npp map"),
	))
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "reversed")
	assert.Contains(t, p.errors[1], "no output naming convention")
}

func TestValidateFinite(t *testing.T) {
	p := validateFinite(artifactsOf(
		mapField("ok", 1, math.NaN()),
		mapField("inf", math.Inf(1), 1),
		mapField("missing", math.NaN(), math.NaN()),
	))
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "inf: 1 infinite values")
	assert.Contains(t, p.errors[1], "missing: every value is missing")
}

func TestValidateStructure_MissingUnits(t *testing.T) {
	f := mapField("NPP_Ensemble_Mean_Historical_ann", 1, 2)
	f.Units = ""
	p := validateStructure(artifactsOf(f))
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "no units")
}

func TestRun_WrittenArtifacts(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []domain.Field{
		mapField("NPP_Ensemble_Mean_Historical_ann", 1, 2),
		mapField("NPP_Ensemble_Mean_RCP85_ann", 4, 6),
		mapField("NPP_[RCP85-Historical]_(1990-1991)_ann", 3, 4),
	} {
		require.NoError(t, netcdf.WriteFile(filepath.Join(dir, f.Name+".nc"), f))
	}
	assert.Equal(t, 0, run(dir, 1e-9))
}

func TestRun_EmptyDirectory(t *testing.T) {
	assert.Equal(t, 1, run(t.TempDir(), 1e-9))
}
