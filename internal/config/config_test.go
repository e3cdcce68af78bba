package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wallet = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"

// setEnv clears every known variable, then applies vars.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for key := range defaults {
		t.Setenv(strings.ToUpper(key), "")
	}
	for key, value := range vars {
		t.Setenv(key, value)
	}
}

func required() map[string]string {
	return map[string]string{
		"SERVER_WALLET_ADDRESS": wallet,
		"CDP_API_KEY_ID":        "key-id",
		"CDP_API_KEY_SECRET":    "secret",
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, required())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WalletAddress != wallet || cfg.CDPAPIKeyID != "key-id" || cfg.CDPAPIKeySecret != "secret" {
		t.Errorf("required values not loaded: %+v", cfg)
	}
	if cfg.FacilitatorURL != "https://x402.org/facilitator" {
		t.Errorf("FacilitatorURL = %q", cfg.FacilitatorURL)
	}
	if cfg.FallbackURL != "" {
		t.Errorf("FallbackURL = %q; want empty", cfg.FallbackURL)
	}
	if cfg.ResourceURL != "mcp://tools/make-purchase" {
		t.Errorf("ResourceURL = %q", cfg.ResourceURL)
	}
	if cfg.Transport != TransportHTTP || cfg.ListenAddr != ":3000" || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	vars := required()
	vars["FACILITATOR_URL"] = "https://api.cdp.coinbase.com/platform/v2/x402"
	vars["FALLBACK_FACILITATOR_URL"] = "https://x402.org/facilitator"
	vars["MCP_TRANSPORT"] = "STDIO"
	vars["LISTEN_ADDR"] = "127.0.0.1:8080"
	vars["LOG_LEVEL"] = "Debug"
	setEnv(t, vars)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FacilitatorURL != vars["FACILITATOR_URL"] || cfg.FallbackURL != vars["FALLBACK_FACILITATOR_URL"] {
		t.Errorf("facilitator URLs = %q, %q", cfg.FacilitatorURL, cfg.FallbackURL)
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %q; want stdio", cfg.Transport)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		unset string
	}{
		{"SERVER_WALLET_ADDRESS"},
		{"CDP_API_KEY_ID"},
		{"CDP_API_KEY_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.unset, func(t *testing.T) {
			vars := required()
			delete(vars, tt.unset)
			setEnv(t, vars)

			_, err := Load("")
			var missing *MissingEnvError
			if !errors.As(err, &missing) {
				t.Fatalf("Load() error = %v; want MissingEnvError", err)
			}
			if missing.Name != tt.unset {
				t.Errorf("Name = %q; want %q", missing.Name, tt.unset)
			}
			if err.Error() != "Missing required environment variable: "+tt.unset {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestLoad_ReportsFirstMissing(t *testing.T) {
	setEnv(t, nil)

	_, err := Load("")
	if err == nil || err.Error() != "Missing required environment variable: SERVER_WALLET_ADDRESS" {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad wallet", "SERVER_WALLET_ADDRESS", "not-an-address", "invalid SERVER_WALLET_ADDRESS"},
		{"bad transport", "MCP_TRANSPORT", "websocket", "invalid MCP_TRANSPORT"},
		{"bad log level", "LOG_LEVEL", "verbose", "invalid LOG_LEVEL"},
		{"bad facilitator", "FACILITATOR_URL", "not a url", "invalid FACILITATOR_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := required()
			vars[tt.key] = tt.value
			setEnv(t, vars)

			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v; want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	setEnv(t, map[string]string{"CDP_API_KEY_ID": "from-env"})

	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"SERVER_WALLET_ADDRESS=" + wallet,
		"CDP_API_KEY_ID=from-file",
		"CDP_API_KEY_SECRET=file-secret",
		"LISTEN_ADDR=:4000",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WalletAddress != wallet || cfg.CDPAPIKeySecret != "file-secret" || cfg.ListenAddr != ":4000" {
		t.Errorf("file values not loaded: %+v", cfg)
	}
	if cfg.CDPAPIKeyID != "from-env" {
		t.Errorf("CDPAPIKeyID = %q; environment should override the file", cfg.CDPAPIKeyID)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	setEnv(t, required())

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}
