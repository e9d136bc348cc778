package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/livetemplate/demobox/internal/cache"
	"github.com/livetemplate/demobox/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Start the development server",
		Example: `  demobox serve
  demobox serve ./docs --watch
  DEMOBOX_PORT=3000 demobox serve ./docs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, v, dir)
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("host", "localhost", "Host to bind to")
	cmd.Flags().BoolP("watch", "w", false, "Reload browsers when pages or demos change")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("host", cmd.Flags().Lookup("host"))
	_ = v.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, v *viper.Viper, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	logger := newLogger(v, cmd.ErrOrStderr())
	cfg, err := loadConfig(v, absDir)
	if err != nil {
		return err
	}

	highlights := cache.NewMemoryCache()
	defer highlights.Stop()

	md := newMarkdown(v, cfg, logger, highlights)
	srv := server.New(absDir, md,
		server.WithLogger(logger),
		server.WithCache(highlights),
		server.WithWatchDirs(cfg.DemoDir),
	)
	defer srv.Close()

	if err := srv.Discover(); err != nil {
		return fmt.Errorf("failed to discover pages: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Serving: %s\n\nPages discovered:\n", absDir)
	for _, route := range srv.Routes() {
		fmt.Fprintf(out, "  %-30s %s\n", route.Pattern, route.FilePath)
	}

	if v.GetBool("watch") {
		if err := srv.EnableWatch(); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Fprintln(out, "\nWatch mode enabled: pages reload when files change")
	}

	addr := net.JoinHostPort(v.GetString("host"), strconv.Itoa(v.GetInt("port")))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(out, "\nServer running at http://%s\nPress Ctrl+C to stop\n", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
