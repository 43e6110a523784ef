package nidsbench

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serve = func(ctx context.Context, srv *server.Server) error { return srv.ListenAndServe(ctx) }

// serveCmd exposes compare and benchmark over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := cfg.ValidateService(); err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := benchmark.NewRunner(cfg, newService(cfg))
		return serve(ctx, server.New(cfg, runner, save))
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	serveCmd.Flags().Bool("save", true, "write each benchmark record to the results directory")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}
