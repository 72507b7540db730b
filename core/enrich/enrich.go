// Package enrich splices an uploaded screenshot URL into an already-written
// artifact pair. The JSON and CSV are patched as a single unit: both new
// versions are written to temporary files and re-parsed, and only when both
// validate are they renamed over the originals. A failure at any point
// leaves the original files byte-for-byte untouched.
package enrich

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"beceharvest/core"
)

const screenshotField = "page_screenshot"

// PatchArtifacts sets the page_screenshot field at the JSON root and the
// page_screenshot column on every CSV row. A nil url records an explicit
// null. The patch is idempotent: applying the same URL twice produces the
// same bytes as applying it once.
func PatchArtifacts(jsonPath, csvPath string, url *string) error {
	jsonData, err := patchJSON(jsonPath, url)
	if err != nil {
		return err
	}
	csvData, err := patchCSV(csvPath, url)
	if err != nil {
		return err
	}

	jsonTmp, err := writeTemp(jsonPath, jsonData)
	if err != nil {
		return err
	}
	csvTmp, err := writeTemp(csvPath, csvData)
	if err != nil {
		os.Remove(jsonTmp)
		return err
	}

	// Validate both temps before the first rename; the pair either moves
	// together or not at all.
	if err := validateJSON(jsonTmp); err != nil {
		os.Remove(jsonTmp)
		os.Remove(csvTmp)
		return fmt.Errorf("%w: temp validation: %v", core.ErrEnrichment, err)
	}
	if err := validateCSV(csvTmp); err != nil {
		os.Remove(jsonTmp)
		os.Remove(csvTmp)
		return fmt.Errorf("%w: temp validation: %v", core.ErrEnrichment, err)
	}

	return replacePair(jsonTmp, jsonPath, csvTmp, csvPath)
}

// replacePair renames both validated temps over the originals. The JSON
// moves first; if the CSV rename then fails, the original JSON bytes are
// written back so the pair never diverges.
func replacePair(jsonTmp, jsonPath, csvTmp, csvPath string) error {
	origJSON, err := os.ReadFile(jsonPath)
	if err != nil {
		os.Remove(jsonTmp)
		os.Remove(csvTmp)
		return fmt.Errorf("%w: reading %s: %v", core.ErrEnrichment, jsonPath, err)
	}

	if err := os.Rename(jsonTmp, jsonPath); err != nil {
		os.Remove(jsonTmp)
		os.Remove(csvTmp)
		return fmt.Errorf("%w: replacing %s: %v", core.ErrEnrichment, jsonPath, err)
	}
	if err := os.Rename(csvTmp, csvPath); err != nil {
		os.Remove(csvTmp)
		if restoreErr := os.WriteFile(jsonPath, origJSON, 0644); restoreErr != nil {
			return fmt.Errorf("%w: replacing %s: %v (restoring %s also failed: %v)",
				core.ErrEnrichment, csvPath, err, jsonPath, restoreErr)
		}
		return fmt.Errorf("%w: replacing %s: %v", core.ErrEnrichment, csvPath, err)
	}
	return nil
}

// UpdateMetadata records the screenshot URL under stats in the metadata
// artifact, using the same temp-write-then-rename discipline.
func UpdateMetadata(metadataPath, url string) error {
	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", core.ErrEnrichment, metadataPath, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", core.ErrEnrichment, metadataPath, err)
	}
	stats, ok := doc["stats"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s has no stats block", core.ErrEnrichment, metadataPath)
	}
	stats[screenshotField] = url

	data, err := marshalIndent(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrEnrichment, err)
	}

	tmp, err := writeTemp(metadataPath, data)
	if err != nil {
		return err
	}
	if err := validateJSON(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: temp validation: %v", core.ErrEnrichment, err)
	}
	if err := os.Rename(tmp, metadataPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", core.ErrEnrichment, metadataPath, err)
	}
	return nil
}

// ScreenshotURL reads the page_screenshot value back out of a JSON artifact.
func ScreenshotURL(jsonPath string) (string, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", core.ErrEnrichment, jsonPath, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", core.ErrEnrichment, jsonPath, err)
	}
	url, _ := doc[screenshotField].(string)
	return url, nil
}

// patchJSON builds the new JSON bytes in memory without touching the file.
// Unmarshaling into a generic map keeps fields this version of the schema
// does not know about.
func patchJSON(path string, url *string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrEnrichment, path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrEnrichment, path, err)
	}

	if url != nil {
		doc[screenshotField] = *url
	} else {
		doc[screenshotField] = nil
	}

	data, err := marshalIndent(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEnrichment, err)
	}
	return data, nil
}

// patchCSV sets the screenshot column on every row, inserting it as the
// first column when the file predates the schema.
func patchCSV(path string, url *string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrEnrichment, path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrEnrichment, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrEnrichment, path)
	}

	col := slices.Index(rows[0], screenshotField)
	if col == -1 {
		rows[0] = append([]string{screenshotField}, rows[0]...)
		for i := 1; i < len(rows); i++ {
			rows[i] = append([]string{""}, rows[i]...)
		}
		col = 0
	}

	value := ""
	if url != nil {
		value = *url
	}
	for i := 1; i < len(rows); i++ {
		rows[i][col] = value
	}

	var buf bytes.Buffer
	wr := csv.NewWriter(&buf)
	if err := wr.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("%w: encoding %s: %v", core.ErrEnrichment, path, err)
	}
	wr.Flush()
	return buf.Bytes(), nil
}

func writeTemp(path string, data []byte) (string, error) {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", core.ErrEnrichment, tmp, err)
	}
	return tmp, nil
}

func validateJSON(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var v any
	return json.Unmarshal(raw, &v)
}

func validateCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = csv.NewReader(f).ReadAll()
	return err
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
