package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edirooss/logickeys/internal/app"
	"github.com/edirooss/logickeys/internal/config"
	"github.com/edirooss/logickeys/internal/hotkey"
	"github.com/edirooss/logickeys/pkg/fmtt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var (
	configPath  = flag.String("config", config.DefaultPath, "path to the YAML config file")
	printConfig = flag.Bool("print-config", false, "print the effective config and exit")
)

func main() {
	// Handle version display; also parses the remaining flags
	handleVersion()

	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s:\n", *configPath)
		fmtt.PrintErrChain(os.Stderr, err)
		os.Exit(1)
	}
	if *printConfig {
		fmtt.Dump(os.Stdout, cfg)
		os.Exit(0)
	}

	// Create Zap logger
	log := buildLogger(cfg.Log.Level)
	defer log.Sync()
	log = log.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := app.New(ctx, log, cfg, app.Options{})
	ctrl.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	// Reconnect monitor and fire-and-forget tasks
	g.Go(func() error {
		ctrl.Run(gctx)
		return nil
	})

	// Control API
	if cfg.HTTP.Enabled() {
		httpsrv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           buildRouter(log, ctrl, isDev, cfg.Mixer.SocketTimeout),
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}

		g.Go(func() error {
			log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
			if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			log.Info("server closed")
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpsrv.Shutdown(shutdownCtx)
		})
	}

	// Keyboard
	if *cfg.Hotkeys.Terminal {
		listener := hotkey.NewTerminalListener(log, os.Stdin)
		events, err := listener.Start(gctx)
		if err != nil {
			log.Warn("keyboard listener unavailable", zap.Error(err))
		} else {
			log.Info("press Ctrl+C to exit")
			g.Go(func() error {
				defer listener.Stop()
				if err := hotkey.Pump(gctx, log, events, ctrl.OnKey); err != nil {
					return nil
				}
				if err := listener.Err(); errors.Is(err, hotkey.ErrInterrupted) {
					return err
				}
				log.Info("keyboard input closed")
				return nil
			})
		}
	}

	err = g.Wait()
	log.Info("exiting")

	if cerr := ctrl.Close(); cerr != nil {
		log.Warn("shutdown", zap.Error(cerr))
	}
	if err != nil && !errors.Is(err, hotkey.ErrInterrupted) {
		log.Fatal("application error", zap.Error(err))
	}
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("logickeys %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// helpers

func buildLogger(level string) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	logConfig.Level.SetLevel(lvl)
	return zap.Must(logConfig.Build())
}
