package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warraq-labs/warraq/internal/adapters/driving/httpapi"
	"github.com/warraq-labs/warraq/internal/adapters/driving/watch"
	"github.com/warraq-labs/warraq/internal/config"
	"github.com/warraq-labs/warraq/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// termination signal. Chat streams are cut at this point.
const shutdownTimeout = 10 * time.Second

var (
	serveAddr        string
	serveLexicalOnly bool
	serveStaticDir   string
	serveWatch       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Builds the index and serves search, chat and status over HTTP.

The index is built before the listener starts, so the first request is
as fast as any other. With --watch, changes under the corpus directory
trigger a debounced rebuild; readers keep the old index until the swap.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "bind address host:port (overrides config)")
	serveCmd.Flags().BoolVar(&serveLexicalOnly, "lexical-only", false, "skip embeddings, keyword scoring only")
	serveCmd.Flags().StringVar(&serveStaticDir, "static", "", "serve this directory at the web root")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild when corpus artifacts change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.UseJSON()

	if err := ensureServices(serveOverrides); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receipt, err := retrievalService.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("initial index build failed: %w", err)
	}
	logger.Info("index ready: %d chunks, %d documents, mode %s",
		receipt.Status.ChunkCount, receipt.Status.DocumentCount, receipt.Status.Mode)

	srv := httpapi.NewServer(httpapi.Config{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		StaticDir:      appCfg.Server.StaticDir,
		AllowedOrigins: appCfg.Server.AllowedOrigins,
	}, retrievalService, chatService)

	if appCfg.Watch.Enabled {
		watcher, err := watch.New(watch.Config{
			Root:     appCfg.Corpus.TextsRoot,
			Debounce: time.Duration(appCfg.Watch.DebounceSeconds) * time.Second,
		}, retrievalService)
		if err != nil {
			logger.Warn("corpus watcher disabled: %v", err)
		} else {
			defer watcher.Close()
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Warn("corpus watcher stopped: %v", err)
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on http://%s", srv.Addr())
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// serveOverrides applies the serve flags onto the loaded config before
// the service stack is wired.
func serveOverrides(cfg *config.Config) {
	if serveAddr != "" {
		if host, port, err := splitAddr(serveAddr); err == nil {
			cfg.Server.Host = host
			cfg.Server.Port = port
		} else {
			logger.Warn("ignoring --addr %q: %v", serveAddr, err)
		}
	}
	if serveLexicalOnly {
		cfg.Embedding.Provider = config.ProviderNone
	}
	if serveStaticDir != "" {
		cfg.Server.StaticDir = serveStaticDir
	}
	if serveWatch {
		cfg.Watch.Enabled = true
	}
}

// splitAddr parses "host:port" and ":port" forms.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q is not a number", portStr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}
