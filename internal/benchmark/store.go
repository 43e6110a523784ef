// internal/benchmark/store.go
package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/inference"
	"go.yaml.in/yaml/v3"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// WriteRecord writes the record to dir as JSON or YAML and returns the file path.
// The name is <slug(modelA-modelB)>-<first 8 characters of the record id>.
func WriteRecord(dir, format string, rec *Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating results directory: %w", err)
	}

	data, err := EncodeRecord(format, rec)
	if err != nil {
		return "", err
	}

	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	ext := appconfig.FormatJSON
	if format == appconfig.FormatYAML {
		ext = appconfig.FormatYAML
	}
	base := Slugify(rec.Report.ModelA + "-" + rec.Report.ModelB)
	fileName := filepath.Join(dir, fmt.Sprintf("%s-%s.%s", base, id, ext))
	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		return "", fmt.Errorf("error writing results to file: %w", err)
	}

	log.Printf("Comparison results written to %s", fileName)
	return fileName, nil
}

// EncodeRecord renders the record in the given format. YAML output keeps the JSON field
// names and order.
func EncodeRecord(format string, rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if format != appconfig.FormatYAML {
		return buf.Bytes(), nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(buf.Bytes(), &node); err != nil {
		return nil, fmt.Errorf("convert record to yaml: %w", err)
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("encode record as yaml: %w", err)
	}
	return out, nil
}

// ReadRecord loads a record written by WriteRecord in either format.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &rec, nil
}

// LoadRun reads one saved model run. The model is named after the file unless the
// document names it.
func LoadRun(path string) (comparison.ModelRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return comparison.ModelRun{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	run, err := inference.DecodeRun("", data)
	if err != nil {
		return comparison.ModelRun{}, fmt.Errorf("%s: %w", path, err)
	}
	if run.Model == "" {
		run.Model = name
	}
	return run, nil
}

// CompareFiles compares two saved runs offline.
func CompareFiles(pathA, pathB string) (*Record, error) {
	runA, err := LoadRun(pathA)
	if err != nil {
		return nil, err
	}
	runB, err := LoadRun(pathB)
	if err != nil {
		return nil, err
	}
	return Build(runA, runB, nil)
}

// CompareCombined compares the two models of one combined service document.
func CompareCombined(path, modelA, modelB string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	runA, runB, err := inference.DecodeCombined(data, modelA, modelB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(runA, runB, nil)
}

// Slugify converts a string into a "slug" format,
// including replacing colons (:) with underscores (_).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "_")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")

	return s
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
