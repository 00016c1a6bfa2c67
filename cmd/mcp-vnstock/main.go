// Package main provides the entry point for the mcp-vnstock server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-vnstock/internal/server"
	"github.com/txn2/mcp-vnstock/pkg/platform"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (serverOptions, error) {
	opts := serverOptions{}
	fs := flag.NewFlagSet("mcp-vnstock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.transport, "transport", "", "Transport type: stdio, http (overrides config)")
	fs.StringVar(&opts.address, "address", "", "Listen address for the http transport (overrides config)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

// loadConfig reads the config file, or falls back to a config built from
// the environment when no file is given.
func loadConfig(opts serverOptions) (*platform.Config, error) {
	var (
		cfg *platform.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = platform.LoadConfig(opts.configPath)
	} else {
		cfg, err = platform.ParseConfig([]byte(defaultConfig))
	}
	if err != nil {
		return nil, err
	}

	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}
	return cfg, nil
}

// defaultConfig is used without -config.
const defaultConfig = `
vnstock:
  base_url: ${VNSTOCK_BASE_URL}
  api_key: ${VNSTOCK_API_KEY}
  accept_terms: ${VNSTOCK_ACCEPT_TERMS}
`

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "mcp-vnstock version %s\n", mcpserver.Version)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries the stdio transport, so logs always go to stderr.
	logger, err := platform.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, p, err := mcpserver.New(cfg, platform.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("closing platform", "error", err)
		}
	}()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}

	return serve(ctx, p, logger)
}

func serve(ctx context.Context, p *platform.Platform, logger *slog.Logger) error {
	cfg := p.Config().Server
	switch cfg.Transport {
	case platform.TransportStdio:
		if err := p.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serving stdio: %w", err)
		}
		return nil
	case platform.TransportHTTP:
		return serveHTTP(ctx, p, logger)
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}

func serveHTTP(ctx context.Context, p *platform.Platform, logger *slog.Logger) error {
	cfg := p.Config().Server
	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           mcpserver.NewHTTPHandler(p),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Address)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("stopping platform", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
