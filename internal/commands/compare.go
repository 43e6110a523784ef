package nidsbench

import (
	"errors"

	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/spf13/cobra"
)

// compareCmd compares two saved model runs without contacting the service.
var compareCmd = &cobra.Command{
	Use:   "compare [runA.json runB.json]",
	Short: "Compare two saved model runs",
	Long: `Compare two saved model runs offline. Each file holds one model's predictions,
either as a bare result array or as an object with "results" and "processing_time".
With --combined, both runs are read from one document keyed by model name.`,
	Args: func(cmd *cobra.Command, args []string) error {
		combined, _ := cmd.Flags().GetString("combined")
		if combined != "" {
			return cobra.NoArgs(cmd, args)
		}
		if len(args) != 2 {
			return errors.New("compare needs two run files, or --combined <file>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		combined, _ := cmd.Flags().GetString("combined")
		save, _ := cmd.Flags().GetBool("save")

		var rec *benchmark.Record
		var err error
		if combined != "" {
			var modelA, modelB string
			if len(cfg.Models) == 2 {
				modelA, modelB = cfg.Models[0].Name, cfg.Models[1].Name
			}
			if cmd.Flags().Changed("modelA") {
				modelA, _ = cmd.Flags().GetString("modelA")
			}
			if cmd.Flags().Changed("modelB") {
				modelB, _ = cmd.Flags().GetString("modelB")
			}
			if modelA == "" || modelB == "" {
				return errors.New("--combined needs two configured models, or --modelA and --modelB")
			}
			rec, err = benchmark.CompareCombined(combined, modelA, modelB)
		} else {
			rec, err = benchmark.CompareFiles(args[0], args[1])
		}
		if err != nil {
			return err
		}
		return emitRecord(cmd, cfg, rec, save)
	},
}

func init() {
	compareCmd.Flags().String("combined", "", "read both runs from one combined benchmark document")
	compareCmd.Flags().String("modelA", "", "section name of model A in the combined document (default: first configured model)")
	compareCmd.Flags().String("modelB", "", "section name of model B in the combined document (default: second configured model)")
	compareCmd.Flags().Bool("save", false, "write the comparison record to the results directory")
	rootCmd.AddCommand(compareCmd)
}
