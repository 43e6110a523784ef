package comparison

import "testing"

func TestClassifyVerdict(t *testing.T) {
	tests := []struct {
		name   string
		result ClassificationResult
		want   Verdict
	}{
		{"both heads malicious", ClassificationResult{IsMalicious: true, ThreatType: "DDoS"}, Malicious},
		{"binary head benign", ClassificationResult{IsMalicious: false, ThreatType: "DDoS"}, Benign},
		{"multiclass head normal", ClassificationResult{IsMalicious: true, ThreatType: "Normal"}, Benign},
		{"both heads benign", ClassificationResult{IsMalicious: false, ThreatType: "Normal"}, Benign},
		{"sentinel is case sensitive", ClassificationResult{IsMalicious: true, ThreatType: "normal"}, Malicious},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyVerdict(tt.result); got != tt.want {
				t.Fatalf("ClassifyVerdict() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsBenignLabel(t *testing.T) {
	for _, l := range []string{"BENIGN", "benign", " BENIGN ", "Normal"} {
		if !IsBenignLabel(l) {
			t.Fatalf("expected %q to be benign", l)
		}
	}
	for _, l := range []string{"DDoS", "PortScan", ""} {
		if IsBenignLabel(l) {
			t.Fatalf("expected %q to be malicious", l)
		}
	}
}

func TestCorrect(t *testing.T) {
	if _, ok := Correct(ClassificationResult{IsMalicious: true, ThreatType: "DDoS"}); ok {
		t.Fatal("expected ok=false without a label")
	}
	got, ok := Correct(ClassificationResult{IsMalicious: true, ThreatType: "Normal", OriginalLabel: label("BENIGN")})
	if !ok || !got {
		t.Fatalf("expected a Normal prediction to be correct for a BENIGN label, got %v/%v", got, ok)
	}
}

func TestVerdictMarshalText(t *testing.T) {
	text, err := Malicious.MarshalText()
	if err != nil || string(text) != "MALICIOUS" {
		t.Fatalf("unexpected text %q (%v)", text, err)
	}
}
