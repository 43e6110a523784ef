package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = `Flow Duration, Label
10,BENIGN
20,DDoS
30,BENIGN
40,PortScan
50,BENIGN
60,DDoS
`

func mustLoad(t *testing.T, data string) *Dataset {
	t.Helper()
	ds, err := Load(strings.NewReader(data), "flows.csv")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return ds
}

func TestLoad(t *testing.T) {
	ds := mustLoad(t, sampleCSV)
	if ds.Len() != 6 || !ds.HasLabels() {
		t.Fatalf("unexpected dataset: len=%d labels=%v", ds.Len(), ds.HasLabels())
	}
	labels, err := ds.Labels()
	if err != nil {
		t.Fatalf("Labels error: %v", err)
	}
	if labels[1] != "DDoS" {
		t.Fatalf("unexpected label %q", labels[1])
	}
}

func TestLoadEmpty(t *testing.T) {
	for _, data := range []string{"", "a,b\n"} {
		if _, err := Load(strings.NewReader(data), "empty.csv"); !errors.Is(err, ErrEmpty) {
			t.Fatalf("expected ErrEmpty for %q, got %v", data, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flows.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if ds.Name != "flows.csv" {
		t.Fatalf("unexpected name %q", ds.Name)
	}
	if _, err := LoadFile(filepath.Join(dir, "flows.txt")); !errors.Is(err, ErrNotCSV) {
		t.Fatalf("expected ErrNotCSV, got %v", err)
	}
}

func TestCheckFilename(t *testing.T) {
	if err := CheckFilename("DATA.CSV"); err != nil {
		t.Fatalf("expected upper-case extension to pass: %v", err)
	}
	if err := CheckFilename("data.csv.gz"); !errors.Is(err, ErrNotCSV) {
		t.Fatalf("expected ErrNotCSV, got %v", err)
	}
}

func TestNoLabels(t *testing.T) {
	ds := mustLoad(t, "a,b\n1,2\n")
	if _, err := ds.Labels(); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("expected ErrNoLabels, got %v", err)
	}
	if _, err := ds.Balanced(1, 1, 42); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("expected ErrNoLabels from Balanced, got %v", err)
	}
}

func TestSampleDeterministicAndOrdered(t *testing.T) {
	ds := mustLoad(t, sampleCSV)

	a := ds.Sample(3, 42)
	b := ds.Sample(3, 42)
	if diff := cmp.Diff(a.Rows, b.Rows); diff != "" {
		t.Fatalf("same seed produced different samples:\n%s", diff)
	}
	if a.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", a.Len())
	}
	for i := 1; i < len(a.Rows); i++ {
		if a.Rows[i][0] <= a.Rows[i-1][0] {
			t.Fatalf("sample is not in file order: %v", a.Rows)
		}
	}
	if all := ds.Sample(100, 42); all.Len() != ds.Len() {
		t.Fatalf("oversized sample should return every row, got %d", all.Len())
	}
}

func TestSampleDoesNotAlias(t *testing.T) {
	ds := mustLoad(t, sampleCSV)
	s := ds.Sample(0, 1)
	s.Rows[0][0] = "changed"
	if ds.Rows[0][0] != "10" {
		t.Fatal("sample shares row storage with its source")
	}
}

func TestBalanced(t *testing.T) {
	ds := mustLoad(t, sampleCSV)
	s, err := ds.Balanced(2, 2, 7)
	if err != nil {
		t.Fatalf("Balanced error: %v", err)
	}
	labels, _ := s.Labels()
	var benign, malicious int
	for _, l := range labels {
		if l == "BENIGN" {
			benign++
		} else {
			malicious++
		}
	}
	if benign != 2 || malicious != 2 {
		t.Fatalf("expected 2/2 split, got %d/%d (%v)", benign, malicious, labels)
	}

	if _, err := ds.Balanced(0, 0, 7); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for an empty selection, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	ds := mustLoad(t, sampleCSV)
	data, err := ds.Sample(2, 42).Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	again := mustLoad(t, string(data))
	if again.Len() != 2 || !again.HasLabels() {
		t.Fatalf("unexpected re-parsed dataset: %+v", again)
	}
	if info := again.Info(ds.Len()); info.TotalRows != 6 || info.AnalyzedRows != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestPerClass(t *testing.T) {
	ds := mustLoad(t, sampleCSV)

	one, err := ds.PerClass(1, 42)
	if err != nil {
		t.Fatalf("PerClass error: %v", err)
	}
	counts, err := one.LabelCounts()
	if err != nil {
		t.Fatalf("LabelCounts error: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"BENIGN": 1, "DDoS": 1, "PortScan": 1}, counts); diff != "" {
		t.Fatalf("unexpected per-class counts (-want +got):\n%s", diff)
	}
	for i := 1; i < len(one.Rows); i++ {
		if one.Rows[i][0] <= one.Rows[i-1][0] {
			t.Fatalf("sample is not in file order: %v", one.Rows)
		}
	}

	again, _ := ds.PerClass(1, 42)
	if diff := cmp.Diff(one.Rows, again.Rows); diff != "" {
		t.Fatalf("same seed produced different samples:\n%s", diff)
	}

	// Classes smaller than n contribute every row they have.
	two, err := ds.PerClass(2, 42)
	if err != nil || two.Len() != 5 {
		t.Fatalf("expected 5 rows for n=2, got %d (%v)", two.Len(), err)
	}

	if _, err := ds.PerClass(0, 42); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for n=0, got %v", err)
	}
	unlabeled := mustLoad(t, "a,b\n1,2\n")
	if _, err := unlabeled.PerClass(1, 42); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("expected ErrNoLabels, got %v", err)
	}
}
