package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/psdconvert/internal/config"
	"github.com/local/psdconvert/internal/converter"
	"github.com/local/psdconvert/internal/filetype"
	logpkg "github.com/local/psdconvert/internal/logger"
	"github.com/local/psdconvert/internal/metrics"
	"github.com/local/psdconvert/internal/orchestrator"
	"github.com/local/psdconvert/internal/storage"
	"github.com/local/psdconvert/internal/sweeper"
	"github.com/local/psdconvert/internal/validate"
	web "github.com/local/psdconvert/internal/web"
)

func main() {
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	log.Info().
		Int64("max_total_request_size_mb", cfg.Limits.MaxTotalRequestSize/(1024*1024)).
		Int64("max_single_file_size_mb", cfg.Limits.MaxSingleFileSize/(1024*1024)).
		Int("max_files_count", cfg.Limits.MaxFilesCount).
		Dur("conversion_timeout", cfg.Conversion.Timeout).
		Msg("starting PSD converter")

	// Working directories
	dirs := storage.NewDirs(cfg.Storage)
	if err := dirs.Ensure(); err != nil {
		log.Fatal().Err(err).Msg("failed to create working directories")
	}

	// Rasterizer
	conv := converter.NewImageMagick(cfg.Conversion)
	if err := conv.CheckInstallation(); err != nil {
		log.Warn().Err(err).Msg("rasterizer not available; conversions will fail")
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Rasterizer: conv,
		Validator:  validate.New(cfg.Limits),
		Sweeper:    sweeper.New(cfg.Storage.RetentionAge, dirs.Upload, dirs.Converted),
		Detector:   filetype.New(),
		Dirs:       dirs,
		Limits:     cfg.Limits,
		Conversion: cfg.Conversion,
	})
	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)

	// Landing page
	web.New(cfg.Limits).RegisterRoutes(mux)

	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
