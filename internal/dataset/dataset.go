// internal/dataset/dataset.go
// Package dataset loads flow-feature CSV files and draws reproducible samples from them.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mwiater/nidsbench/internal/comparison"
)

// LabelColumn is the ground-truth column of CIC-IDS style datasets.
const LabelColumn = "Label"

var (
	// ErrNotCSV marks an upload whose name does not end in .csv.
	ErrNotCSV = errors.New("dataset: only CSV files are supported")
	// ErrEmpty marks a file with a header but no data rows, or no content at all.
	ErrEmpty = errors.New("dataset: CSV file is empty")
	// ErrNoLabels marks a dataset without a Label column where one is required.
	ErrNoLabels = errors.New("dataset: no Label column")
)

// Dataset is a parsed CSV file: one header row and its data rows.
type Dataset struct {
	Name     string
	Header   []string
	Rows     [][]string
	labelCol int
}

// FileInfo describes the file a benchmark was run on.
type FileInfo struct {
	Filename     string `json:"filename"`
	TotalRows    int    `json:"totalRows"`
	AnalyzedRows int    `json:"analyzedRows"`
}

// CheckFilename rejects anything that is not a .csv file.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(name)), ".csv") {
		return fmt.Errorf("%w: %q", ErrNotCSV, name)
	}
	return nil
}

// LoadFile reads and parses the CSV file at path.
func LoadFile(path string) (*Dataset, error) {
	if err := CheckFilename(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, filepath.Base(path))
}

// Load parses CSV data. Rows may not be ragged.
func Load(r io.Reader, name string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", name, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}

	ds := &Dataset{Name: name, Header: records[0], Rows: records[1:], labelCol: -1}
	for i, col := range ds.Header {
		if strings.EqualFold(strings.TrimSpace(col), LabelColumn) {
			ds.labelCol = i
			break
		}
	}
	return ds, nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// HasLabels reports whether the dataset carries a Label column.
func (d *Dataset) HasLabels() bool { return d.labelCol >= 0 }

// Labels returns the ground-truth label of every row, in row order.
func (d *Dataset) Labels() ([]string, error) {
	if !d.HasLabels() {
		return nil, ErrNoLabels
	}
	labels := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		labels[i] = strings.TrimSpace(row[d.labelCol])
	}
	return labels, nil
}

// Sample draws n rows with a seeded generator, keeping their original order.
// The same seed over the same file always yields the same rows.
func (d *Dataset) Sample(n int, seed int64) *Dataset {
	if n <= 0 || n >= len(d.Rows) {
		return d.subset(allIndices(len(d.Rows)))
	}
	rng := newRand(seed)
	picked := rng.Perm(len(d.Rows))[:n]
	slices.Sort(picked)
	return d.subset(picked)
}

// Balanced draws up to benign benign rows and up to malicious malicious rows, by label.
func (d *Dataset) Balanced(benign, malicious int, seed int64) (*Dataset, error) {
	labels, err := d.Labels()
	if err != nil {
		return nil, err
	}
	var benignIdx, maliciousIdx []int
	for i, l := range labels {
		if comparison.IsBenignLabel(l) {
			benignIdx = append(benignIdx, i)
		} else {
			maliciousIdx = append(maliciousIdx, i)
		}
	}

	rng := newRand(seed)
	picked := append(pick(rng, benignIdx, benign), pick(rng, maliciousIdx, malicious)...)
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: balanced sample of %s selected no rows", ErrEmpty, d.Name)
	}
	slices.Sort(picked)
	return d.subset(picked), nil
}

// PerClass draws up to n rows of every distinct label, so that rare attack types are
// represented next to the common ones. Rows keep their original order.
func (d *Dataset) PerClass(n int, seed int64) (*Dataset, error) {
	labels, err := d.Labels()
	if err != nil {
		return nil, err
	}
	var classes []string
	byClass := make(map[string][]int)
	for i, l := range labels {
		if _, ok := byClass[l]; !ok {
			classes = append(classes, l)
		}
		byClass[l] = append(byClass[l], i)
	}

	rng := newRand(seed)
	var picked []int
	for _, c := range classes {
		picked = append(picked, pick(rng, byClass[c], n)...)
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: per-class sample of %s selected no rows", ErrEmpty, d.Name)
	}
	slices.Sort(picked)
	return d.subset(picked), nil
}

// LabelCounts returns how many rows carry each label.
func (d *Dataset) LabelCounts() (map[string]int, error) {
	labels, err := d.Labels()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts, nil
}

// Encode writes the dataset back out as CSV.
func (d *Dataset) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(d.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(d.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Info describes this sample relative to the file it was drawn from.
func (d *Dataset) Info(totalRows int) FileInfo {
	return FileInfo{Filename: d.Name, TotalRows: totalRows, AnalyzedRows: len(d.Rows)}
}

func (d *Dataset) subset(idx []int) *Dataset {
	rows := make([][]string, len(idx))
	for i, j := range idx {
		rows[i] = slices.Clone(d.Rows[j])
	}
	return &Dataset{Name: d.Name, Header: slices.Clone(d.Header), Rows: rows, labelCol: d.labelCol}
}

func pick(rng *rand.Rand, from []int, n int) []int {
	if n <= 0 {
		return nil
	}
	if n >= len(from) {
		return slices.Clone(from)
	}
	out := make([]int, n)
	for i, p := range rng.Perm(len(from))[:n] {
		out[i] = from[p]
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x6e696473))
}
