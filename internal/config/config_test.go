package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults_AreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Storage.Backend != "sqlite" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

// TestLoad_Precedence applies file values over defaults and env over file.
func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
addr = ":9000"
log_level = "debug"

[storage]
db_path = "/tmp/shop.db"
write_timeout = "2s"

[session]
compare_policy = "evict-oldest"

[pricing]
pix_discount_percent = 5.0
max_installments = 12
`)
	t.Setenv("STOREFRONT_ADDR", ":7000")
	t.Setenv("STOREFRONT_PERF_SLOW_QUERY", "10ms")
	t.Setenv("STOREFRONT_SECURITY_TRUSTED_ORIGINS", "loja.example,www.loja.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, env should win", cfg.Addr)
	}
	if cfg.LogLevel != "debug" || cfg.Storage.DBPath != "/tmp/shop.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.WriteTimeout.Std() != 2*time.Second || cfg.Perf.SlowQuery.Std() != 10*time.Millisecond {
		t.Errorf("durations = %v / %v", cfg.Storage.WriteTimeout.Std(), cfg.Perf.SlowQuery.Std())
	}
	if cfg.Session.ComparePolicy != "evict-oldest" {
		t.Errorf("policy = %q", cfg.Session.ComparePolicy)
	}
	if cfg.Pricing.PixDiscountPercent != 5 || cfg.Pricing.MaxInstallments != 12 || cfg.Pricing.FreeShippingMinimum != 299 {
		t.Errorf("pricing = %+v", cfg.Pricing)
	}
	if strings.Join(cfg.Security.TrustedOrigins, "|") != "loja.example|www.loja.example" {
		t.Errorf("origins = %v", cfg.Security.TrustedOrigins)
	}
}

func TestLoad_PathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, writeConfig(t, `env = "production"`))
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production() {
		t.Error("expected production")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"bad toml", "addr = ", nil},
		{"bad backend", `[storage]
backend = "mongo"`, nil},
		{"redis without url", `[storage]
backend = "redis"`, nil},
		{"empty db path with redis", `[storage]
backend = "redis"
redis_url = "redis://localhost:6379/0"
db_path = ""`, nil},
		{"bad duration", "", map[string]string{"STOREFRONT_OUTBOX_INTERVAL": "soon"}},
		{"max below base", "", map[string]string{"STOREFRONT_OUTBOX_MAX_DELAY": "1s"}},
		{"bad policy", "", map[string]string{"STOREFRONT_SESSION_COMPARE_POLICY": "replace"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeConfig(t, tc.file)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
