package nidsbench

import (
	"fmt"

	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/inference"
	"github.com/mwiater/nidsbench/internal/report"
	"github.com/spf13/cobra"
)

var (
	newService  = func(cfg *appconfig.Config) benchmark.Service { return inference.New(cfg) }
	writeRecord = benchmark.WriteRecord
)

// emitRecord prints rec as JSON or as the terminal report, then saves it when asked.
func emitRecord(cmd *cobra.Command, cfg *appconfig.Config, rec *benchmark.Record, save bool) error {
	out := cmd.OutOrStdout()
	if cfg.JSONMode {
		data, err := benchmark.EncodeRecord(appconfig.FormatJSON, rec)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	} else if err := report.Render(out, rec, cfg.DisagreementLimit); err != nil {
		return err
	}

	if !save {
		return nil
	}
	path, err := writeRecord(cfg.ResultsPath(), cfg.OutputFormat(), rec)
	if err != nil {
		return err
	}
	if !cfg.JSONMode {
		fmt.Fprintf(out, "\nResults written to %s\n", path)
	}
	return nil
}
