package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestBundle(t *testing.T, dir string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestExtract_AllMembersPresent(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeTestBundle(t, dir, map[string]string{
		"S2A_MSIL2A_20230615T131241_MTD_MSIL2A.xml":  "<xml/>",
		"S2A_MSIL2A_MSK_CLDPRB_20m.jp2":              "cloud-data",
		"S2A_MSIL2A_TCI_10m.jp2":                     "tci-data",
	})

	b, err := Extract(bundlePath, dir)
	require.NoError(t, err)
	defer b.Cleanup()

	require.FileExists(t, b.MetadataPath)
	require.FileExists(t, b.CloudMaskPath)
	require.FileExists(t, b.TCIPath)
}

func TestExtract_MissingMemberFails(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeTestBundle(t, dir, map[string]string{
		"S2A_MSIL2A_MTD_MSIL2A.xml": "<xml/>",
		"S2A_MSIL2A_TCI_10m.jp2":    "tci-data",
	})

	_, err := Extract(bundlePath, dir)
	require.Error(t, err)
}

func TestExtract_CorruptArchiveFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Extract(path, dir)
	require.Error(t, err)
}
