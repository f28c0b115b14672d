package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/api/runs"
	"github.com/kilianp07/oncall/infra/metrics"
	"github.com/kilianp07/oncall/infra/runlog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API and Prometheus metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/runs", runs.NewHandler(store, cfg.API.Token))
	return metrics.Serve(ctx, cfg.API.Addr, mux)
}
