// Command seqbrowse serves the RNA-Seq object-store browser: a JSON API over
// the browsing service plus static serving of report previews and extracted
// FastQC bundles.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/seqops/seqbrowse/internal/browser"
	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/filestore"
	"github.com/seqops/seqbrowse/internal/filestore/minio"
	"github.com/seqops/seqbrowse/internal/logger"
	"github.com/seqops/seqbrowse/internal/render"
	"github.com/seqops/seqbrowse/internal/server"
)

func main() {
	gridView := flag.Bool("grid", true, "render listings as grid-widget JSON instead of HTML tables")
	noPoll := flag.Bool("no-poll", false, "disable timer-driven listing refresh")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(nil).Fatal("invalid configuration: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeCfg := filestore.DefaultConfig(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey)
	storeCfg.Region = cfg.Region
	storeCfg.UseSSL = cfg.UseSSL

	store, err := minio.New(ctx, storeCfg)
	if err != nil {
		log.Fatal("cannot connect to object store: " + err.Error())
	}
	defer store.Close()

	svc := browser.NewService(store, cfg, log)

	var renderer render.Renderer = render.NewTable()
	if *gridView {
		renderer = render.NewGrid()
	}

	srv := server.New(svc, renderer, cfg, log)

	if !*noPoll {
		svc.StartPolling(ctx, cfg.PollInterval)
		defer svc.StopPolling()
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		log.Infof("received %v, shutting down", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.With().
		Str("addr", cfg.ListenAddr).
		Str("bucket", cfg.Bucket).
		Str("base_prefix", cfg.BasePrefix).
		Logger().Info("seqbrowse listening")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed: " + err.Error())
	}
}
