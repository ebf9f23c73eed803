package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/biwstack/biw-advisor/advisor/api"
	"github.com/biwstack/biw-advisor/advisor/engine"
	"github.com/biwstack/biw-advisor/advisor/metrics"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve decisions and outcome feedback over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		storage, closeStorage, err := openStorage(ctx, cfg.PageSize)
		if err != nil {
			return err
		}
		defer closeStorage()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		eng, err := engine.New(cfg, storage, engine.WithMetrics(m))
		if err != nil {
			return err
		}
		srv := api.NewServer(eng, m, reg)
		srv.Start(listenAddr)

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logrus.Errorf("Shutdown: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	addStorageFlags(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address")
}
