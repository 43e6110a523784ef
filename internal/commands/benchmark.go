// internal/commands/benchmark.go
package nidsbench

import (
	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/dataset"
	"github.com/spf13/cobra"
)

// benchmarkCmd scores a dataset sample with both models and compares them.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <dataset.csv>",
	Short: "Run both models on a dataset sample and compare their verdicts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.ValidateService(); err != nil {
			return err
		}

		opts := benchmark.Options{SampleSize: cfg.SampleSize, Seed: cfg.Seed}
		if cmd.Flags().Changed("sample-size") {
			opts.SampleSize, _ = cmd.Flags().GetInt("sample-size")
		}
		if cmd.Flags().Changed("seed") {
			opts.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		opts.Balanced, _ = cmd.Flags().GetBool("balanced")
		opts.Benign, _ = cmd.Flags().GetInt("benign")
		opts.Malicious, _ = cmd.Flags().GetInt("malicious")
		opts.PerClass, _ = cmd.Flags().GetInt("per-class")
		save, _ := cmd.Flags().GetBool("save")

		ds, err := dataset.LoadFile(args[0])
		if err != nil {
			return err
		}
		rec, err := benchmark.NewRunner(cfg, newService(cfg)).Run(cmd.Context(), ds, opts)
		if err != nil {
			return err
		}
		return emitRecord(cmd, cfg, rec, save)
	},
}

func init() {
	benchmarkCmd.Flags().Int("sample-size", 0, "rows to sample from the dataset, 1-1000 (default from config)")
	benchmarkCmd.Flags().Int64("seed", 0, "sampling seed (default from config)")
	benchmarkCmd.Flags().Bool("balanced", false, "sample benign and malicious rows separately by Label")
	benchmarkCmd.Flags().Int("benign", 50, "benign rows in a balanced sample")
	benchmarkCmd.Flags().Int("malicious", 50, "malicious rows in a balanced sample")
	benchmarkCmd.Flags().Int("per-class", 0, "sample up to N rows of every Label value instead of --sample-size")
	benchmarkCmd.Flags().Bool("save", true, "write the comparison record to the results directory")
	rootCmd.AddCommand(benchmarkCmd)
}
