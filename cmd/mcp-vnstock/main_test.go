package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/txn2/mcp-vnstock/internal/server"
	"github.com/txn2/mcp-vnstock/pkg/platform"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "c.yaml", "-transport", "http", "-address", ":9090"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := serverOptions{configPath: "c.yaml", transport: "http", address: ":9090"}
	if opts != want {
		t.Errorf("got %+v, want %+v", opts, want)
	}

	if _, err := parseFlags([]string{"-bogus"}, io.Discard); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if err := run([]string{"-version"}, &stdout, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "mcp-vnstock version " + mcpserver.Version + "\n"
	if stdout.String() != want {
		t.Errorf("got %q, want %q", stdout.String(), want)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Setenv("VNSTOCK_BASE_URL", "")

	t.Run("missing file", func(t *testing.T) {
		err := run([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, io.Discard, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "loading config") {
			t.Errorf("expected loading config error, got %v", err)
		}
	})

	t.Run("no base url", func(t *testing.T) {
		err := run(nil, io.Discard, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "vnstock.base_url is required") {
			t.Errorf("expected base_url validation error, got %v", err)
		}
	})

	t.Run("bad transport flag", func(t *testing.T) {
		t.Setenv("VNSTOCK_BASE_URL", "http://vnstock.invalid")
		err := run([]string{"-transport", "sse"}, io.Discard, io.Discard)
		if err == nil || !strings.Contains(err.Error(), "server.transport") {
			t.Errorf("expected transport validation error, got %v", err)
		}
	})
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server:\n  transport: stdio\n  address: \":8080\"\nvnstock:\n  base_url: http://x\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(serverOptions{configPath: path, transport: "http", address: ":9999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != platform.TransportHTTP {
		t.Errorf("transport = %q, want http", cfg.Server.Transport)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("address = %q, want :9999", cfg.Server.Address)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("VNSTOCK_BASE_URL", "https://vnstock.example")
	t.Setenv("VNSTOCK_API_KEY", "secret")
	t.Setenv("VNSTOCK_ACCEPT_TERMS", "true")

	cfg, err := loadConfig(serverOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VNStock.BaseURL != "https://vnstock.example" {
		t.Errorf("base_url = %q", cfg.VNStock.BaseURL)
	}
	if cfg.VNStock.APIKey != "secret" {
		t.Errorf("api_key = %q", cfg.VNStock.APIKey)
	}
	if !cfg.VNStock.AcceptTerms {
		t.Error("expected accept_terms to be true")
	}
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	cfg, err := platform.ParseConfig([]byte(
		"server:\n  transport: http\n  address: 127.0.0.1:0\n  shutdown_timeout: 2s\nvnstock:\n  base_url: http://vnstock.invalid\n  accept_terms: true\n"))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	_, p, err := mcpserver.New(cfg)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, p, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
