// Command occmosaic ingests Sentinel-2 bundles, composes candidate
// mosaics, and selects a non-redundant subset over an area of interest.
package main

import "github.com/Delevati/occmosaic/internal/cmd"

func main() {
	cmd.Execute()
}
