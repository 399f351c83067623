package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ghcnRawCSV = `ID,DATE,ELEMENT,DATA_VALUE,M,Q,S,OBS
USC1,20230201,PRCP,127,,,7,0700
USC1,20230201,SNOW,0,,,7,0700
USC1,20230202,PRCP,0,,,7,0700
`

func TestClean_GHCNPrecipitation(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader(ghcnRawCSV), SourcePrecipitation)
	require.NoError(t, err)

	cleaned, err := Clean(raw)
	require.NoError(t, err)

	assert.Equal(t, ghcnColumns, cleaned.Header)
	require.Equal(t, 2, cleaned.Len())
	for i := range cleaned.Len() {
		v, _ := cleaned.Value(i, "element")
		assert.Equal(t, "PRCP", v)
	}

	series, err := PrecipitationSeries(cleaned)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.InDelta(t, 12.7, series[0].Precipitation, 1e-9)
}

func TestClean_OtherTablesUnchanged(t *testing.T) {
	precip, err := ReadCSV(strings.NewReader(precipitationCSV), SourcePrecipitation)
	require.NoError(t, err)
	cleaned, err := Clean(precip)
	require.NoError(t, err)
	assert.Same(t, precip, cleaned)

	// Eight columns outside the precipitation source are not GHCN.
	wide, err := ReadCSV(strings.NewReader("a,b,c,d,e,f,g,h\n1,2,3,4,5,6,7,8\n"), SourceLandUse)
	require.NoError(t, err)
	cleaned, err = Clean(wide)
	require.NoError(t, err)
	assert.Same(t, wide, cleaned)
}

func TestCleanDir(t *testing.T) {
	rawDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "processed")
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, DefaultFiles[SourceReservoir]), []byte(reservoirCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(rawDir, DefaultFiles[SourcePrecipitation]), []byte(ghcnRawCSV), 0o600))

	missing, err := CleanDir(rawDir, outDir, DefaultFiles)
	require.NoError(t, err)
	assert.Equal(t, []Source{SourceClimate, SourceLandUse, SourceStreamflow}, missing)

	reservoir, err := LoadCSV(filepath.Join(outDir, DefaultFiles[SourceReservoir]), SourceReservoir)
	require.NoError(t, err)
	assert.Equal(t, []string{"DATE", "VALUE"}, reservoir.Header)
	assert.Equal(t, 5, reservoir.Len())

	precip, err := LoadCSV(filepath.Join(outDir, DefaultFiles[SourcePrecipitation]), SourcePrecipitation)
	require.NoError(t, err)
	assert.Equal(t, ghcnColumns, precip.Header)
	assert.Equal(t, 2, precip.Len())
}
