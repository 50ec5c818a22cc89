package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/simd"
	"github.com/GoSim-25-26J-441/sweep-core/internal/store"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/config"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.LoadDaemonFromEnv()
	if err != nil {
		logger.Error("invalid daemon configuration", "error", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json, text)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite archive path (empty keeps runs in memory only)")
	flag.Parse()

	var log *slog.Logger
	if cfg.LogFormat == "text" {
		log = logger.NewText(cfg.LogLevel, os.Stdout)
	} else {
		log = logger.New(cfg.LogLevel, os.Stdout)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := simd.NewRunStore()
	runs.SetStepLimit(cfg.MaxSnapshots)

	notifier := simd.NewNotifier()
	opts := []simd.ExecutorOption{simd.WithNotifier(notifier)}

	var archive *store.Store
	if cfg.DBPath != "" {
		archive, err = store.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open archive", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		opts = append(opts, simd.WithArchive(archive))
		logger.Info("archiving runs", "path", cfg.DBPath)
	}

	executor := simd.NewRunExecutor(runs, opts...)

	grpcImpl := simd.NewSweepGRPCServer(runs, executor)
	httpImpl := simd.NewHTTPServer(runs, executor)
	if archive != nil {
		grpcImpl.SetArchive(archive)
		httpImpl.SetArchive(archive)
	}

	// TODO: add TLS credentials once sweepd listens beyond localhost.
	grpcServer := grpc.NewServer()
	simd.RegisterSweepServiceServer(grpcServer, grpcImpl)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", cfg.GRPCAddr, "error", err)
		stop()
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpImpl.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start servers.
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	// running sweeps finish their current step and are archived as cancelled
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Error("executor shutdown error", "error", err)
	}
	notifier.Wait()
	grpcServer.GracefulStop()
}
