package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary. In debug mode the full
// structure is dumped as well.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		d := Default()
		cfg = &d
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Service URL:        %s\n", cfg.Service.BaseURL)
	fmt.Fprintf(out, "  Request Timeout:    %s\n", cfg.RequestTimeout())
	for i, m := range cfg.Models {
		fmt.Fprintf(out, "  Model %c:            %s (%s)\n", 'A'+rune(i), m.Name, m.Endpoint)
	}
	fmt.Fprintf(out, "  Sample Size:        %d (seed %d)\n", cfg.SampleSize, cfg.Seed)
	fmt.Fprintf(out, "  Disagreement Limit: %d\n", cfg.DisagreementLimit)
	fmt.Fprintf(out, "  Results Dir:        %s (%s)\n", cfg.ResultsPath(), cfg.OutputFormat())
	fmt.Fprintf(out, "  Listen:             %s\n", cfg.Listen)
	fmt.Fprintf(out, "  Log File:           %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Debug:              %v\n", cfg.Debug)
	fmt.Fprintf(out, "  JSON Mode:          %v\n", cfg.JSONMode)

	if cfg.Debug {
		fmt.Fprintln(out)
		pp.Fprintln(out, *cfg)
	}
}
