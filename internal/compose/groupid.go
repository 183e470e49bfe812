package compose

import "fmt"

// GroupID derives a stable, deterministic mosaic identifier from the base
// image's filename and the pass that produced it, rather than a random
// UUID — spec §3 requires group_id to be a *stable* string, and a
// filename-derived id reproduces identically across runs on identical
// input (spec §8's round-trip/idempotence requirement).
func GroupID(pass, baseFilename string) string {
	return fmt.Sprintf("%s-%s", baseFilename, pass)
}
