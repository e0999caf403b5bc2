package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/events"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
	"github.com/KaramelBytes/dataagent-cli/internal/server"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

var (
	serveAddr string
	serveFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset conversation over HTTP",
	Example: `  dataagent serve
  dataagent serve --addr :9090 --file sales.csv
  curl -F file=@sales.csv http://127.0.0.1:8080/api/v1/dataset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}

		m := metrics.NewPrometheusMetrics()
		gw, provider, model, err := newGateway(log, m)
		if err != nil {
			return err
		}
		bus := events.NewBus(log)
		defer bus.Close()

		opts := server.Options{Addr: serveAddr}
		if cfg != nil {
			if !cmd.Flags().Changed("addr") && cfg.ServerAddr != "" {
				opts.Addr = cfg.ServerAddr
			}
			opts.RateLimit = server.RateLimitConfig{RequestsPerSecond: cfg.ServerRatePerSec, Burst: cfg.ServerBurst}
			opts.ContextRows = cfg.ContextRows
			opts.PreviewRows = cfg.PreviewRows
		}
		srv := server.New(gw, bus, m, log.Named("server"), opts)

		if serveFile != "" {
			t, err := table.LoadFile(serveFile)
			if err != nil {
				return err
			}
			srv.LoadDataset(t)
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("starting server", zap.String("provider", provider), zap.String("model", model))
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (provider=%s model=%s)\n", opts.Addr, provider, model)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "listen address")
	serveCmd.Flags().StringVar(&serveFile, "file", "", "optional CSV to load at startup")
}
