// Command optimize-server serves the optimization pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Marwanelaks/optimize"
	"github.com/Marwanelaks/optimize/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	pflag.String("addr", ":8080", "listen address")
	pflag.Int("concurrency", 0, "worker pool size (default: number of CPUs)")
	pflag.Int("jpeg-quality", optimize.DefaultJPEGQuality, "JPEG re-encode quality (1-100)")
	pflag.Bool("aggressive", false, "enable rewrites beyond minification")
	pflag.Int64("max-upload-size", server.DefaultMaxUploadBytes, "upload payload ceiling in bytes")
	pflag.Duration("file-timeout", 30*time.Second, "per-file transform time budget")
	pflag.Duration("batch-timeout", 10*time.Minute, "whole-batch wall-clock budget")
	pflag.Bool("verbose", false, "enable debug logging")
	pflag.Parse()

	viper.SetEnvPrefix("OPTIMIZE")
	viper.AutomaticEnv()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return err
	}

	logger, err := buildLogger(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	p := optimize.New(
		optimize.WithConcurrency(viper.GetInt("concurrency")),
		optimize.WithJPEGQuality(viper.GetInt("jpeg-quality")),
		optimize.WithAggressive(viper.GetBool("aggressive")),
		optimize.WithFileTimeout(viper.GetDuration("file-timeout")),
		optimize.WithBatchTimeout(viper.GetDuration("batch-timeout")),
		optimize.WithLogger(logger),
	)

	srv := server.New(p, logger, server.Config{
		MaxUploadBytes: viper.GetInt64("max-upload-size"),
	})

	httpSrv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
