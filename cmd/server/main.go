// Command mt-mockserver serves the in-memory marketplace API over HTTP so
// the CLI and other clients can run against it without the real backend.
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

	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/api/mockapi"
	"github.com/and161185/machtrueke/internal/config"
	"github.com/and161185/machtrueke/internal/limiter"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type serverConfig struct {
	addr     string
	tokenTTL time.Duration
	maxFails int
	lockout  time.Duration
	certFile string
	keyFile  string
	logLevel string
}

func newServer(sc serverConfig, logger *zap.Logger) *http.Server {
	b := mockapi.New(
		mockapi.WithLogger(logger),
		mockapi.WithTokenTTL(sc.tokenTTL),
		mockapi.WithLimiter(limiter.NewMemory(sc.lockout, sc.maxFails, sc.lockout)),
	)
	return &http.Server{
		Addr:              sc.addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// main parses flags and serves until SIGINT/SIGTERM.
func main() {
	var sc serverConfig
	flag.StringVar(&sc.addr, "addr", "127.0.0.1:8000", "listen address")
	flag.DurationVar(&sc.tokenTTL, "token-ttl", time.Hour, "access token TTL")
	flag.IntVar(&sc.maxFails, "max-fails", 5, "failed logins before lockout")
	flag.DurationVar(&sc.lockout, "lockout", 15*time.Minute, "login failure window and lockout time")
	flag.StringVar(&sc.certFile, "tls-cert", "", "TLS certificate (PEM), enables HTTPS with -tls-key")
	flag.StringVar(&sc.keyFile, "tls-key", "", "TLS private key (PEM)")
	flag.StringVar(&sc.logLevel, "log-level", "info", "debug|info|warn|error")
	flag.Parse()

	logger, err := config.NewLogger(sc.logLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", sc.addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := newServer(sc, logger)
	errCh := make(chan error, 1)
	go func() {
		if sc.certFile != "" && sc.keyFile != "" {
			logger.Info("listening (TLS)", zap.String("addr", sc.addr))
			errCh <- srv.ListenAndServeTLS(sc.certFile, sc.keyFile)
			return
		}
		logger.Info("listening", zap.String("addr", sc.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forced shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
