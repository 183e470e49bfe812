// Package ingest implements C2: for one bundle, locate the required
// rasters and metadata document, compute coverage/cloud statistics
// against the AOI, classify the tile, and persist the result (spec §4.2).
package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Delevati/occmosaic/internal/occerr"
)

// Required member-name substrings every bundle must contain at least one
// match of (spec §6). When several members match, the first one in
// archive order is extracted and the rest are ignored.
const (
	metadataSubstring = "MTD_MSIL2A.xml"
	cloudSubstring    = "MSK_CLDPRB_20m.jp2"
	tciSubstring      = "TCI_10m.jp2"
)

// ExtractedBundle holds the on-disk paths of the three resources a bundle
// must contain, extracted into a scratch directory scoped to this bundle
// alone (spec §5: temp directories are single-bundle-scoped and removed
// regardless of outcome).
type ExtractedBundle struct {
	MetadataPath  string
	CloudMaskPath string
	TCIPath       string
	dir           string
}

// Cleanup removes the bundle's scratch extraction directory. Callers must
// defer this on every exit path.
func (b *ExtractedBundle) Cleanup() error {
	if b == nil || b.dir == "" {
		return nil
	}
	return os.RemoveAll(b.dir)
}

// Extract opens the zip bundle at path and extracts its three required
// members (safe_extract in the Python original's greedy_utils/file_utils.py)
// into a fresh temp directory under scratchRoot. Missing any of the three
// required resources is fatal with occerr.ErrMissingArtifact.
func Extract(path, scratchRoot string) (*ExtractedBundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrMissingArtifact, path, fmt.Errorf("open bundle: %w", err))
	}
	defer r.Close()

	dir, err := os.MkdirTemp(scratchRoot, "occmosaic-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	bundle := &ExtractedBundle{dir: dir}
	found := map[string]string{metadataSubstring: "", cloudSubstring: "", tciSubstring: ""}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		for pattern := range found {
			if found[pattern] != "" || !strings.Contains(name, pattern) {
				continue
			}
			dst := filepath.Join(dir, name)
			if err := extractOne(f, dst); err != nil {
				os.RemoveAll(dir)
				return nil, occerr.Tag(occerr.ErrMissingArtifact, path, fmt.Errorf("extract %s: %w", name, err))
			}
			found[pattern] = dst
		}
	}

	for pattern, got := range found {
		if got == "" {
			os.RemoveAll(dir)
			return nil, occerr.Tag(occerr.ErrMissingArtifact, path, fmt.Errorf("bundle missing required member matching %q", pattern))
		}
	}

	bundle.MetadataPath = found[metadataSubstring]
	bundle.CloudMaskPath = found[cloudSubstring]
	bundle.TCIPath = found[tciSubstring]
	return bundle, nil
}

func extractOne(f *zip.File, dst string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
