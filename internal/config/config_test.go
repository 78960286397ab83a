package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env here
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.InsightsCacheTTL != 30*time.Minute || cfg.CreateAIMaxRetries != 3 || !cfg.EnableLocalAuth {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestLoadEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("REDIS_ADDR=from-file:6379\nCREATEAI_MODEL_NAME=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CREATEAI_MODEL_NAME", "from-env")
	t.Setenv("INSIGHTS_CACHE_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PUBLIC_URL", "https://coach.example.edu/")
	// godotenv sets variables that are absent; clear it afterwards
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	cfg, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RedisAddr != "from-file:6379" || cfg.CreateAIModelName != "from-env" {
		t.Fatalf("redis = %q, model = %q", cfg.RedisAddr, cfg.CreateAIModelName)
	}
	if cfg.InsightsCacheTTL != 5*time.Minute || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.GoogleRedirectURI != "https://coach.example.edu/auth/google/callback" {
		t.Fatalf("redirect = %q", cfg.GoogleRedirectURI)
	}
}

func TestLoadValidation(t *testing.T) {
	chdir(t, t.TempDir())
	cases := map[string]map[string]string{
		"bad mode":          {"MODE": "cloud"},
		"online dev secret": {"MODE": "online"},
		"google incomplete": {"ENABLE_GOOGLE_AUTH": "true"},
		"negative retries":  {"CREATEAI_MAX_RETRIES": "-1"},
		"unparseable ttl":   {"INSIGHTS_CACHE_TTL": "soon"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "a-real-secret")
	if cfg, err := Load(); err != nil || !cfg.Online() {
		t.Fatalf("online cfg err = %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
