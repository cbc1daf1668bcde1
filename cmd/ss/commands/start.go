package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shrey715/network-file-system-sub002/internal/adminhttp"
	"github.com/shrey715/network-file-system-sub002/internal/config"
	"github.com/shrey715/network-file-system-sub002/internal/logging"
	"github.com/shrey715/network-file-system-sub002/internal/metrics"
	ssserver "github.com/shrey715/network-file-system-sub002/ss/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a Storage Server",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadSS(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.Logging.Level, cfg.Logging.Format == "json")
	log := logging.Named("ss")

	m := metrics.NewSSMetrics()
	srv, err := ssserver.New(ssserver.Config{
		ListenAddr:        cfg.ListenAddr,
		NMAddr:            cfg.NMAddr,
		BaseDir:           cfg.BaseDir,
		HeartbeatInterval: cfg.HeartbeatInterval,
		AllowExec:         cfg.AllowExec,
		ExecOutputCap:     int(cfg.ExecOutputCap),
		ExecTimeout:       cfg.ExecTimeout,
	}, m)
	if err != nil {
		return fmt.Errorf("create ss server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var adminSrv *http.Server
	if cfg.Metrics.Enabled {
		adminSrv = &http.Server{
			Addr: cfg.Metrics.ListenAddr,
			Handler: adminhttp.New(m.Registry, func() (bool, string) {
				return true, "ok"
			}),
		}
		go func() {
			log.Info("admin http listening", "addr", cfg.Metrics.ListenAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("admin http server error", "error", err)
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- srv.Serve(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("ss listening", "addr", cfg.ListenAddr, "id", srv.ID(), "nm_addr", cfg.NMAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		log.Info("shutdown signal received")
		cancel()
		if adminSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = adminSrv.Shutdown(shutdownCtx)
		}
		if err := <-serverDone; err != nil {
			return fmt.Errorf("ss server shutdown: %w", err)
		}
		log.Info("ss stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			return fmt.Errorf("ss server error: %w", err)
		}
	}
	return nil
}
