package nidsbench

import (
	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/spf13/cobra"
)

// showCmd groups commands that print local state without contacting the service.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show local settings",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long: `Show config settings ensuring that the config file is loaded properly and overridden by flags accordingly.
With --file, another config file is loaded and validated on its own, without flags, and shown instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			loaded, err := appconfig.Load(path)
			if err != nil {
				return err
			}
			cfg = &loaded
		}
		file := ""
		if cfg != nil {
			file = cfg.ConfigPath
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), file, cfg)
		return nil
	},
}

func init() {
	showConfigCmd.Flags().String("file", "", "load and show this config file instead of the active one")
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
