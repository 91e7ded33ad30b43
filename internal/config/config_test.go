package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("AI_MODEL", "gemini-2.0-flash")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MINUTE", "7")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, ,172.16.0.0/12")

	cfgPath := writeConfig(t, `
port: "9090"
logLevel: "debug"
redisAddr: "localhost:6379"
sessionTTL: "12h"
aiProvider: "openai"
aiModel: "gpt-4o-mini"
signupRateLimitPerMinute: 3
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9090" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected port/log level %q/%q", cfg.Port, cfg.LogLevel)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Fatalf("redis = %q db %d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.AIProvider != "openai" || cfg.AIModel != "gemini-2.0-flash" {
		t.Fatalf("ai = %q/%q", cfg.AIProvider, cfg.AIModel)
	}
	if cfg.SignupRateLimitPerMinute != 3 || cfg.LoginRateLimitPerMinute != 7 {
		t.Fatalf("rate limits = %d/%d", cfg.SignupRateLimitPerMinute, cfg.LoginRateLimitPerMinute)
	}
	if want := []string{"10.0.0.0/8", "172.16.0.0/12"}; !reflect.DeepEqual(cfg.TrustedProxyCIDRs, want) {
		t.Fatalf("trusted proxies = %v", cfg.TrustedProxyCIDRs)
	}
	if cfg.MaxUploadBytes != defaultMaxUploadBytes {
		t.Fatalf("maxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != defaultPort || cfg.AIProvider != "gemini" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoadMinioSettings(t *testing.T) {
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("MINIO_USE_SSL", "TRUE")
	cfg, err := Load(writeConfig(t, `
minioEndpoint: "minio:9000"
minioAccessKey: "scibrain"
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MinioBucket != "scibrain-uploads" || !cfg.MinioUseSSL || cfg.MinioSecretKey != "secret" {
		t.Fatalf("unexpected minio settings %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "port: [unterminated")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateConfig(t *testing.T) {
	base := FileConfig{Port: "8080", AIProvider: "gemini"}
	if err := validateConfig(base); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]func(*FileConfig){
		"missing port":   func(c *FileConfig) { c.Port = "" },
		"bad ttl":        func(c *FileConfig) { c.SessionTTL = "forever" },
		"negative ttl":   func(c *FileConfig) { c.SessionTTL = "-1h" },
		"bad provider":   func(c *FileConfig) { c.AIProvider = "mystery" },
		"negative rate":  func(c *FileConfig) { c.LoginRateLimitPerMinute = -1 },
		"negative db":    func(c *FileConfig) { c.RedisDB = -1 },
		"negative bytes": func(c *FileConfig) { c.MaxUploadBytes = -5 },
		"minio no keys":  func(c *FileConfig) { c.MinioEndpoint = "minio:9000" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseSessionTTL(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 0 {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	if d, err := ParseSessionTTL("90m"); err != nil || d != 90*time.Minute {
		t.Fatalf("90m: d=%v err=%v", d, err)
	}
}
