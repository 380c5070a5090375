package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		enabled string
		token   string
		wantErr bool
		want    bool
	}{
		{"unset", "", "", false, false},
		{"disabled", "false", "", false, false},
		{"enabled with token", "true", "abc", false, true},
		{"enabled without token", "1", "", true, true},
		{"not a bool", "yes please", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RVA_AUTH_ENABLED", tt.enabled)
			t.Setenv("RVA_AUTH_TOKEN", tt.token)
			cfg, err := loadAuthConfig(discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if cfg.Enabled != tt.want {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.want)
			}
		})
	}
}

func TestLoadEphemerisConfig(t *testing.T) {
	t.Setenv("RVA_EPHE_PATH", "")
	t.Setenv("RVA_EPHEMERIS_MODE", "")
	t.Setenv("RVA_SIDEREAL_MODE", "")
	t.Setenv("RVA_HORIZONS_URL", "")
	t.Setenv("RVA_HORIZONS_TIMEOUT", "")

	cfg := loadEphemerisConfig(discard())
	if cfg.Mode != ephemeris.ModeAnalytic || cfg.EphePath != "./ephe" || cfg.Sidereal != ephemeris.SiderealLahiri {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.HorizonsTimeout != 30*time.Second {
		t.Errorf("HorizonsTimeout = %v, want 30s", cfg.HorizonsTimeout)
	}

	t.Setenv("RVA_EPHEMERIS_MODE", "AUTO")
	t.Setenv("RVA_SIDEREAL_MODE", "raman")
	t.Setenv("RVA_HORIZONS_TIMEOUT", "5")
	t.Setenv("RVA_EPHE_PATH", "/data/ephe")
	cfg = loadEphemerisConfig(discard())
	if cfg.Mode != ephemeris.ModeAuto || cfg.Sidereal != ephemeris.SiderealRaman {
		t.Errorf("mode = %v sidereal = %v", cfg.Mode, cfg.Sidereal)
	}
	if cfg.HorizonsTimeout != 5*time.Second || cfg.EphePath != "/data/ephe" {
		t.Errorf("overrides = %+v", cfg)
	}

	// Bad values fall back to defaults.
	t.Setenv("RVA_EPHEMERIS_MODE", "swiss")
	t.Setenv("RVA_HORIZONS_TIMEOUT", "-1")
	cfg = loadEphemerisConfig(discard())
	if cfg.Mode != ephemeris.ModeAnalytic || cfg.HorizonsTimeout != 30*time.Second {
		t.Errorf("fallback = %+v", cfg)
	}
}

func TestLoadBatchConfig(t *testing.T) {
	t.Setenv("RVA_BATCH_WORKERS", "3")
	t.Setenv("RVA_BATCH_MAX_ITEMS", "zero")
	cfg := loadBatchConfig(discard())
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.MaxItems != 100 {
		t.Errorf("MaxItems = %d, want 100", cfg.MaxItems)
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RVA_CORS_ORIGINS", "")
	t.Setenv("RVA_TRUST_PROXY", "")
	cfg := loadServerConfig(discard())
	if cfg.Addr != ":3000" || len(cfg.CORSOrigins) != 0 || cfg.TrustProxy {
		t.Errorf("defaults = %+v", cfg)
	}

	t.Setenv("PORT", "8080")
	t.Setenv("RVA_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RVA_TRUST_PROXY", "true")
	cfg = loadServerConfig(discard())
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy = false")
	}

	t.Setenv("PORT", "99999")
	if got := loadServerConfig(discard()).Addr; got != ":3000" {
		t.Errorf("Addr = %q, want :3000 for out-of-range port", got)
	}
}

func TestLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := logLevel(in); got != want {
			t.Errorf("logLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogStarting(t *testing.T) {
	var buf bytes.Buffer
	logStarting(slog.New(slog.NewJSONHandler(&buf, nil)), ":3000", "analytic", true)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["msg"] != "starting server" {
		t.Errorf("msg = %v, want starting server", rec["msg"])
	}
	if rec["addr"] != ":3000" || rec["engine"] != "analytic" || rec["auth_enabled"] != true {
		t.Errorf("attrs = %v", rec)
	}
}
