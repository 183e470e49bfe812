package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtractDate_FromXMLTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.xml")
	xmlDoc := `<?xml version="1.0"?>
<n1:Level-2A_Tile_ID xmlns:n1="https://psd-14.sentinel2.eo.esa.int/PSD/User_Product_Level-2A.xsd">
  <n1:General_Info>
    <DATATAKE_SENSING_START>2023-06-15T13:12:41.024Z</DATATAKE_SENSING_START>
  </n1:General_Info>
</n1:Level-2A_Tile_ID>`
	require.NoError(t, os.WriteFile(path, []byte(xmlDoc), 0o644))

	got, err := ExtractDate(path, "S2A_MSIL2A_20230615T131241_N0509_R000_T23LLF_20230615T170000.zip")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2023, got.Year())
	require.Equal(t, time.June, got.Month())
	require.Equal(t, 15, got.Day())
}

func TestExtractDate_FallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.xml")
	require.NoError(t, os.WriteFile(path, []byte("<xml/>"), 0o644))

	got, err := ExtractDate(path, "S2A_MSIL2A_20230615T131241_N0509_R000_T23LLF_20230615T170000.zip")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2023, got.Year())
	require.Equal(t, 15, got.Day())
}

func TestExtractDate_NoDateAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.xml")
	require.NoError(t, os.WriteFile(path, []byte("<xml/>"), 0o644))

	got, err := ExtractDate(path, "no_date_here.zip")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestExtractOrbit(t *testing.T) {
	orbit := ExtractOrbit("S2A_MSIL2A_20230615T131241_N0509_R047_T23LLF_20230615T170000.zip")
	require.NotNil(t, orbit)
	require.Equal(t, 47, *orbit)

	require.Nil(t, ExtractOrbit("no_orbit_token_here.zip"))
}
