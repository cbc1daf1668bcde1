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
	nmserver "github.com/shrey715/network-file-system-sub002/nm/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Name Manager",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, loader, err := config.LoadNM(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.Logging.Level, cfg.Logging.Format == "json")
	log := logging.Named("nm")

	m := metrics.NewNMMetrics()
	srv, err := nmserver.New(nmserver.Config{
		ListenAddr:       cfg.ListenAddr,
		DataDir:          cfg.DataDir,
		LivenessInterval: cfg.Placement.LivenessInterval,
		SSDialTimeout:    cfg.Lock.SSDialTimeout,
	}, m)
	if err != nil {
		return fmt.Errorf("create nm server: %w", err)
	}

	loader.WatchLockAndPlacement(func(lock config.LockConfig, placement config.PlacementConfig) {
		srv.SetSSDialTimeout(lock.SSDialTimeout)
		srv.SetLivenessInterval(placement.LivenessInterval)
		log.Info("hot-reloaded lock/placement config",
			"ss_dial_timeout", lock.SSDialTimeout, "liveness_interval", placement.LivenessInterval)
	})

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

	log.Info("nm listening", "addr", cfg.ListenAddr, "data_dir", cfg.DataDir)

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
			return fmt.Errorf("nm server shutdown: %w", err)
		}
		log.Info("nm stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			return fmt.Errorf("nm server error: %w", err)
		}
	}
	return nil
}
