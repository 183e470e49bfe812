package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Delevati/occmosaic/internal/occerr"
)

// WriteOptimizationParameters writes params to path as the canonical
// optimization_parameters.json artifact (spec §6).
func WriteOptimizationParameters(path string, params OptimizationParameters) error {
	return writeJSON(path, params)
}

// ReadOptimizationParameters reads an optimization_parameters.json or
// *-precalc.json artifact (both share the OptimizationParameters shape;
// the precalc variant simply has its optional fields populated).
func ReadOptimizationParameters(path string) (OptimizationParameters, error) {
	var out OptimizationParameters
	data, err := os.ReadFile(path)
	if err != nil {
		return out, occerr.Tag(occerr.ErrMissingArtifact, path, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, occerr.Tag(occerr.ErrBadInput, path, fmt.Errorf("parse %s: %w", path, err))
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MergeCatalogs merges several optimization_parameters.json shards (e.g.
// from chunked ingestion runs) into one, de-duplicating image_catalog
// entries by filename and concatenating mosaic_groups. Grounded on the
// Python original's external_utils/unify_jsons_to_download.py, which
// performs the same shard-union for its download-queue JSONs.
func MergeCatalogs(paths []string) (OptimizationParameters, error) {
	var merged OptimizationParameters
	seen := make(map[string]bool)

	for _, p := range paths {
		part, err := ReadOptimizationParameters(p)
		if err != nil {
			return merged, err
		}
		for _, entry := range part.ImageCatalog {
			if seen[entry.Filename] {
				continue
			}
			seen[entry.Filename] = true
			merged.ImageCatalog = append(merged.ImageCatalog, entry)
		}
		merged.MosaicGroups = append(merged.MosaicGroups, part.MosaicGroups...)
	}
	return merged, nil
}
