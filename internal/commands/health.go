package nidsbench

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/inference"
	"github.com/spf13/cobra"
)

// healthCmd checks the inference service and both models once.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the inference service and both models are up",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.ValidateService(); err != nil {
			return err
		}
		h := benchmark.NewRunner(cfg, newService(cfg)).Health(cmd.Context())

		out := cmd.OutOrStdout()
		if cfg.JSONMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(h); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out, "Inference service %s: %s\n", cfg.Service.BaseURL, h.Status)
			fmt.Fprintln(out, statusLine("service", h.Service))
			names := make([]string, 0, len(h.Models))
			for name := range h.Models {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(out, statusLine(name, h.Models[name]))
			}
		}

		if h.Status != "healthy" {
			return fmt.Errorf("inference service is %s", h.Status)
		}
		return nil
	},
}

var (
	healthy   = color.New(color.FgGreen).SprintFunc()
	unhealthy = color.New(color.FgRed).SprintFunc()
)

func statusLine(name string, s inference.HealthStatus) string {
	paint := unhealthy
	if s.Healthy {
		paint = healthy
	}
	line := fmt.Sprintf("  %-10s %s", name, paint(s.Status))
	if s.Error != "" {
		line += " (" + s.Error + ")"
	}
	return line
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
