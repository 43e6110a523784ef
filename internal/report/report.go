// internal/report/report.go
// Package report renders comparison records for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/metrics"
)

// HighAgreement is the agreement rate, in percent, at or above which the models are
// considered aligned.
const HighAgreement = 90.0

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)

	aligned  = color.New(color.FgGreen).SprintFunc()
	diverged = color.New(color.FgYellow).SprintFunc()
)

// Render writes a human-readable view of rec. At most limit disagreements are listed;
// a non-positive limit lists all of them.
func Render(w io.Writer, rec *benchmark.Record, limit int) error {
	var b strings.Builder
	r := rec.Report

	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("Model Comparison: %s vs %s", r.ModelA, r.ModelB)))
	fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("Record %s  %s", rec.ID, rec.Timestamp.Format(time.RFC3339))))
	if rec.File != nil {
		fmt.Fprintln(&b, mutedStyle.Render(fmt.Sprintf("File %s: %d of %d rows analyzed", rec.File.Filename, rec.File.AnalyzedRows, rec.File.TotalRows)))
	}
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "  Samples:            %d\n", r.Count)
	fmt.Fprintf(&b, "  Agreements:         %d\n", r.Agreements)
	fmt.Fprintf(&b, "  Disagreements:      %d\n", r.DisagreementsCount)
	fmt.Fprintf(&b, "  Agreement Rate:     %s\n", AgreementColor(r.AgreementRate)(fmt.Sprintf("%.2f%%", r.AgreementRate)))
	fmt.Fprintf(&b, "  Disagreement Rate:  %.2f%%\n", r.DisagreementRate)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sectionStyle.Render("Models"))
	fmt.Fprintln(&b, modelTable(rec.SummaryA, rec.SummaryB))
	if rec.Throughput.Faster != "" {
		fmt.Fprintf(&b, "  Faster model: %s (%.2fx)\n", rec.Throughput.Faster, rec.Throughput.Speedup)
	}
	if rec.BetterModel != "" {
		fmt.Fprintf(&b, "  Better model: %s\n", rec.BetterModel)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sectionStyle.Render("Threat Distribution"))
	for _, s := range []metrics.ModelSummary{rec.SummaryA, rec.SummaryB} {
		fmt.Fprintf(&b, "  %s: %s\n", s.Model, threatLine(s.ThreatCounts))
	}
	fmt.Fprintln(&b)

	shown := r.TopDisagreements(limit)
	if len(shown) == 0 {
		fmt.Fprintln(&b, sectionStyle.Render("Disagreements: none"))
	} else {
		fmt.Fprintln(&b, sectionStyle.Render(fmt.Sprintf("Disagreements (showing %d of %d)", len(shown), r.DisagreementsCount)))
		fmt.Fprintln(&b, disagreementTable(r.ModelA, r.ModelB, shown))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// AgreementColor picks the colour an agreement rate is printed in.
func AgreementColor(rate float64) func(a ...any) string {
	if rate >= HighAgreement {
		return aligned
	}
	return diverged
}

func modelTable(summaries ...metrics.ModelSummary) string {
	t := newTable("Model", "Malicious Verdicts", "Detection", "Mean Conf", "Conf StdDev", "Processing", "Avg/Sample", "Samples/s", "Accuracy")
	for _, s := range summaries {
		t.Row(
			s.Model,
			fmt.Sprintf("%d/%d", s.MaliciousVerdicts, s.Samples),
			fmt.Sprintf("%.2f%%", s.DetectionRate),
			fmt.Sprintf("%.3f", s.Confidence.Mean),
			fmt.Sprintf("%.3f", s.Confidence.StdDev),
			formatDuration(s.ProcessingTime),
			formatDuration(s.AvgTimePerSample),
			fmt.Sprintf("%.1f", s.SamplesPerSecond),
			formatAccuracy(s.Accuracy),
		)
	}
	return t.String()
}

func disagreementTable(modelA, modelB string, rows []comparison.Disagreement) string {
	t := newTable("Sample", modelA, modelB, "Label")
	for _, d := range rows {
		t.Row(
			fmt.Sprintf("%d", d.SampleID),
			prediction(d.IsMaliciousA, d.ThreatTypeA, d.ConfidenceA, d.CorrectA),
			prediction(d.IsMaliciousB, d.ThreatTypeB, d.ConfidenceB, d.CorrectB),
			labelText(d.OriginalLabel),
		)
	}
	return t.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func prediction(malicious bool, threat string, confidence float64, correct *bool) string {
	verdict := comparison.ClassifyVerdict(comparison.ClassificationResult{IsMalicious: malicious, ThreatType: threat})
	s := fmt.Sprintf("%s (%s) %.2f", verdict, threat, confidence)
	if correct != nil {
		if *correct {
			s += " ✓"
		} else {
			s += " ✗"
		}
	}
	return s
}

func labelText(label *string) string {
	if label == nil {
		return "N/A"
	}
	return *label
}

func threatLine(counts []metrics.ThreatCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s %d (%.1f%%)", c.ThreatType, c.Count, c.Share))
	}
	return strings.Join(parts, ", ")
}

func formatAccuracy(acc *float64) string {
	if acc == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *acc)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}
