package comparison

import "strings"

// NormalThreatType is the threat label that always means benign traffic.
const NormalThreatType = "Normal"

// BenignLabel is the ground-truth label used by CIC-IDS style datasets for benign flows.
const BenignLabel = "BENIGN"

// Verdict is the canonical binary classification of a sample.
type Verdict int

const (
	Benign Verdict = iota
	Malicious
)

func (v Verdict) String() string {
	if v == Malicious {
		return "MALICIOUS"
	}
	return "BENIGN"
}

// MarshalText renders the verdict by name in JSON and YAML output.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ClassifyVerdict folds the binary head and the multiclass head of a result into one verdict.
// Either head saying benign is enough; MALICIOUS needs both.
func ClassifyVerdict(r ClassificationResult) Verdict {
	if !r.IsMalicious || r.ThreatType == NormalThreatType {
		return Benign
	}
	return Malicious
}

// IsBenignLabel reports whether a ground-truth label denotes benign traffic.
func IsBenignLabel(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, BenignLabel) || label == NormalThreatType
}

// LabelVerdict maps a ground-truth label to the verdict a correct model would give.
func LabelVerdict(label string) Verdict {
	if IsBenignLabel(label) {
		return Benign
	}
	return Malicious
}

// Correct reports whether the result's verdict matches its ground-truth label.
// ok is false when the result has no label.
func Correct(r ClassificationResult) (correct bool, ok bool) {
	if !r.HasLabel() {
		return false, false
	}
	return ClassifyVerdict(r) == LabelVerdict(*r.OriginalLabel), true
}
