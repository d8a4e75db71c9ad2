// Package main is the entry point for the renderpulsed demo daemon.
// It wires the performance governor to a synthetic frame source, an LRU cache
// and a process memory probe, and exposes metrics and status over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/renderpulse/renderpulse/internal/framesim"
	"github.com/renderpulse/renderpulse/internal/lrucache"
	"github.com/renderpulse/renderpulse/internal/memprobe"
	"github.com/renderpulse/renderpulse/pkg/config"
	"github.com/renderpulse/renderpulse/pkg/governor"
	"github.com/renderpulse/renderpulse/pkg/logging"
	"github.com/renderpulse/renderpulse/pkg/telemetry"
)

const (
	defaultListenAddr    = ":9190"
	defaultLogLevel      = "info"
	defaultCacheCapacity = 1024
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "renderpulsed",
		Short: "Adaptive performance governor demo daemon",
		Long: `Runs the performance governor against a synthetic frame source so its
mode transitions, health scoring and reporting can be observed end to end.

Endpoints:
  /metrics  Prometheus scrape endpoint
  /statusz  current performance snapshot as JSON

Signals:
  SIGUSR1   simulates the host being backgrounded (forces memory reclamation)`,
		RunE: runDaemon,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML, hot-reloaded)")
	rootCmd.Flags().StringP("listen", "a", defaultListenAddr, "HTTP listen address")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("pretty", false, "Human-readable log output instead of JSON")
	rootCmd.Flags().Int("cache-capacity", defaultCacheCapacity, "Demo cache capacity in entries")
	rootCmd.Flags().Int64("seed", time.Now().UnixNano(), "Frame simulation random seed")

	return rootCmd
}

// sigLifecycle implements domain.LifecycleSignal on top of SIGUSR1 so the
// backgrounded path can be exercised from a shell.
type sigLifecycle struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
	stop chan struct{}
	once sync.Once
}

func newSigLifecycle() *sigLifecycle {
	l := &sigLifecycle{
		subs: make(map[int]func()),
		stop: make(chan struct{}),
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-ch:
				l.mu.Lock()
				fns := make([]func(), 0, len(l.subs))
				for _, fn := range l.subs {
					fns = append(fns, fn)
				}
				l.mu.Unlock()
				for _, fn := range fns {
					fn()
				}
			case <-l.stop:
				signal.Stop(ch)
				return
			}
		}
	}()

	return l
}

func (l *sigLifecycle) Subscribe(onBackgrounded func()) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.subs[id] = onBackgrounded
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

func (l *sigLifecycle) Close() {
	l.once.Do(func() { close(l.stop) })
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	listenAddr, _ := cmd.Flags().GetString("listen")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	cacheCapacity, _ := cmd.Flags().GetInt("cache-capacity")
	seed, _ := cmd.Flags().GetInt64("seed")

	logger := logging.NewLogger(logging.Config{
		Level:  logLevel,
		Pretty: pretty,
	})
	slog.SetDefault(logger)

	// Configuration: file with hot reload when given, defaults otherwise.
	cfg := config.DefaultConfig()
	var provider *config.FileProvider
	if configPath != "" {
		var err error
		provider, err = config.NewFileProvider(configPath, logger)
		if err != nil {
			logger.Error("Failed to load configuration", "path", configPath, "error", err)
			return err
		}
		defer func() { _ = provider.Close() }()
		cfg = provider.Current()
	}

	// Collaborators.
	sim := framesim.New(nil, seed, logger)
	cache := lrucache.New(cacheCapacity, logger)
	probe := memprobe.New(logger)
	sink := telemetry.NewPromSink()
	lifecycle := newSigLifecycle()
	defer lifecycle.Close()

	gov, err := governor.New(cfg, governor.Deps{
		Frames:    sim,
		Cache:     cache,
		Memory:    probe,
		Sink:      sink,
		Lifecycle: lifecycle,
	}, logger)
	if err != nil {
		logger.Error("Failed to create governor", "error", err)
		return err
	}

	if err := gov.Initialize(); err != nil {
		logger.Error("Failed to initialize governor", "error", err)
		return err
	}
	defer gov.Dispose()

	sim.Start()
	defer sim.Stop()

	// Config hot reload feeds updated thresholds into the running governor.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if provider != nil {
		updates := provider.Subscribe()
		go func() {
			for {
				select {
				case updated, ok := <-updates:
					if !ok {
						return
					}
					if err := gov.ApplyConfig(updated); err != nil {
						logger.Error("Rejected configuration update", "error", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	server := newHTTPServer(listenAddr, gov, sink, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Starting renderpulsed",
		"listen", listenAddr,
		"config", configPath,
		"cache_capacity", cacheCapacity,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during HTTP shutdown", "error", err)
		}
	}

	logger.Info("renderpulsed stopped")
	return nil
}

func newHTTPServer(addr string, gov *governor.Governor, sink *telemetry.PromSink, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", sink.Handler())

	mux.HandleFunc("/statusz", func(w http.ResponseWriter, r *http.Request) {
		snap, err := gov.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"snapshot": snap,
			"modes":    gov.ModeStats(),
		}); err != nil {
			logger.Error("Failed to encode status response", "error", err)
		}
	})

	mux.HandleFunc("/optimize", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gov.ForceMemoryOptimization(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(mux, "renderpulsed"),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
