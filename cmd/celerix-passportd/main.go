package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-passport/internal/api"
	"github.com/celerix-dev/celerix-passport/internal/config"
	"github.com/celerix-dev/celerix-passport/internal/engine"
	"github.com/celerix-dev/celerix-passport/internal/logging"
	"github.com/celerix-dev/celerix-passport/internal/server"
	"github.com/celerix-dev/celerix-passport/internal/vault"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)
	log := logging.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: celerix-passportd migrate <from> <to>   (file, sqlite, redis)")
			os.Exit(2)
		}
		if err := migrate(ctx, cfg, os.Args[2], os.Args[3]); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("daemon stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting celerix-passportd", "backend", cfg.Backend, "encoding", cfg.FieldEncoding)

	backend, err := engine.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	store, err := engine.New(ctx, backend, append(engine.Options(cfg), engine.WithLogger(log))...)
	if err != nil {
		backend.Close()
		return err
	}
	defer store.Close()
	log.Info("engine started", "records", store.Len())

	router := server.NewRouter(store)
	if cfg.DisableTLS {
		log.Warn("TLS encryption disabled (CELERIX_DISABLE_TLS=true)")
	} else {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
		log.Info("TLS encryption enabled")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newHTTPHandler(store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("passport engine listening", "port", cfg.Port, "proto", "tcp")
		if err := router.Listen(cfg.Port); err != nil {
			errCh <- fmt.Errorf("tcp server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-errCh:
	}

	router.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("http shutdown", "error", shutdownErr)
	}
	return err
}

func newHTTPHandler(store *engine.Engine) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, "+api.CallerHeader)
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &api.Handler{Store: store}
	h.Register(r)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "code": api.CodeNotFound})
	})
	return r
}

// migrate copies every record from one configured backend into another.
func migrate(ctx context.Context, cfg config.Config, from, to string) error {
	src, err := openAs(ctx, cfg, from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := openAs(ctx, cfg, to)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := engine.Migrate(ctx, src, dst)
	if err != nil {
		return err
	}
	slog.Info("migration complete", "from", from, "to", to, "records", n)
	return nil
}

func openAs(ctx context.Context, cfg config.Config, backend string) (engine.Backend, error) {
	cfg.Backend = strings.ToLower(backend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return engine.OpenBackend(ctx, cfg)
}
