package ingest

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateTags is the fixed candidate tag-name list spec §4.2 step 2 names.
// Matching is by substring against the element's local name (namespace
// prefix ignored), mirroring the Python original's
// `.//*[contains(local-name(), tag_name)]` XPath probe.
var dateTags = []string{"DATATAKE_SENSING_START", "SENSING_TIME", "PRODUCT_START_TIME", "GENERATION_TIME"}

// dateFormats is the fixed candidate ISO layout list spec §4.2 step 2
// names, tried in order against each matching element's text.
var dateFormats = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

var filenameDateRe = regexp.MustCompile(`_(\d{8}T\d{6})_`)
var filenameOrbitRe = regexp.MustCompile(`_R(\d{3})_`)

// ExtractDate implements spec §4.2 step 2: parse the metadata XML first,
// falling back to the bundle filename's embedded timestamp. Returns nil,
// nil if neither strategy succeeds — date-dependent features are then
// disabled for this tile, but ingestion continues.
func ExtractDate(metadataPath, bundleFilename string) (*time.Time, error) {
	if t := dateFromXML(metadataPath); t != nil {
		return t, nil
	}
	if t := dateFromFilename(bundleFilename); t != nil {
		return t, nil
	}
	return nil, nil
}

func dateFromXML(path string) *time.Time {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				return nil
			}
			return nil
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !matchesAnyTag(start.Name.Local) {
			continue
		}
		text, err := readCharData(dec)
		if err != nil {
			continue
		}
		if t := parseAnyFormat(strings.TrimSpace(text)); t != nil {
			return t
		}
	}
}

func matchesAnyTag(local string) bool {
	for _, tag := range dateTags {
		if strings.Contains(local, tag) {
			return true
		}
	}
	return false
}

func readCharData(dec *xml.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	cd, ok := tok.(xml.CharData)
	if !ok {
		return "", nil
	}
	return string(cd), nil
}

func parseAnyFormat(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func dateFromFilename(filename string) *time.Time {
	m := filenameDateRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return nil
	}
	t, err := time.Parse("20060102T150405", m[1])
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// ExtractOrbit implements spec §4.2 step 3: regex-capture the R### token
// in the filename. Returns nil if absent.
func ExtractOrbit(filename string) *int {
	m := filenameOrbitRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// optionalTags extracts the supplemented-feature metadata fields
// (mgrs_tile, processing_baseline) the Python original's
// greedy_utils/metadata_utils.py pulls from the same XML document.
// Absence of either is never an ingestion failure.
var optionalTags = []string{"TILE_ID", "PROCESSING_BASELINE"}

func extractOptionalMetadata(metadataPath string) (mgrsTile, processingBaseline string) {
	f, err := os.Open(metadataPath)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err != nil {
			return mgrsTile, processingBaseline
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case mgrsTile == "" && strings.Contains(start.Name.Local, "TILE_ID"):
			text, _ := readCharData(dec)
			mgrsTile = strings.TrimSpace(text)
		case processingBaseline == "" && strings.Contains(start.Name.Local, "PROCESSING_BASELINE"):
			text, _ := readCharData(dec)
			processingBaseline = strings.TrimSpace(text)
		}
		if mgrsTile != "" && processingBaseline != "" {
			return mgrsTile, processingBaseline
		}
	}
}
