package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Storage.Path != "./watchx.bolt" {
			t.Errorf("expected storage path ./watchx.bolt, got %s", config.Storage.Path)
		}

		if config.Database.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %s", config.Database.Driver)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Remote.Timeout.Duration != 10*time.Second {
			t.Errorf("expected remote timeout 10s, got %s", config.Remote.Timeout)
		}

		if config.Feeds.CacheTTL.Duration != 10*time.Minute {
			t.Errorf("expected feed cache ttl 10m, got %s", config.Feeds.CacheTTL)
		}

		if len(config.Auth.Scopes) != 3 {
			t.Errorf("expected 3 default scopes, got %v", config.Auth.Scopes)
		}

		if config.Server.Addr() != "127.0.0.1:3000" {
			t.Errorf("unexpected server addr %s", config.Server.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "postgres"
dsn = "postgres://watchx@localhost/watchx"

[server]
host = "0.0.0.0"
port = 8080

[remote]
timeout = "3s"

[feeds]
allowed_hosts = ["feeds.example.com"]
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != "postgres" {
			t.Errorf("expected postgres driver, got %s", config.Database.Driver)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Remote.Timeout.Duration != 3*time.Second {
			t.Errorf("expected timeout 3s, got %s", config.Remote.Timeout)
		}

		if len(config.Feeds.AllowedHosts) != 1 || config.Feeds.AllowedHosts[0] != "feeds.example.com" {
			t.Errorf("unexpected allowed hosts %v", config.Feeds.AllowedHosts)
		}

		if config.Storage.Path != "./watchx.bolt" {
			t.Errorf("missing keys should keep defaults, got storage path %q", config.Storage.Path)
		}
	})

	t.Run("LoadConfig Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[remote]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WATCHX_CLIENT_SECRET", "from-env")
	t.Setenv("WATCHX_SERVER_PORT", "9090")
	t.Setenv("WATCHX_REMOTE_TIMEOUT", "250ms")
	t.Setenv("WATCHX_FEED_ALLOWED_HOSTS", "a.example.com, b.example.com,")
	t.Setenv("WATCHX_API_TOKEN", "")

	cfg := DefaultConfig()
	ApplyEnv(cfg, filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Auth.ClientSecret != "from-env" {
		t.Errorf("expected client secret from env, got %s", cfg.Auth.ClientSecret)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Remote.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("expected 250ms timeout, got %s", cfg.Remote.Timeout)
	}
	if len(cfg.Feeds.AllowedHosts) != 2 || cfg.Feeds.AllowedHosts[1] != "b.example.com" {
		t.Errorf("unexpected allowed hosts %v", cfg.Feeds.AllowedHosts)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("empty env values should be ignored, got %q", cfg.Server.APIToken)
	}
}

func TestApplyEnvDotFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("WATCHX_DATABASE_DSN=postgres://from-dotenv\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("WATCHX_DATABASE_DSN") })

	cfg := DefaultConfig()
	ApplyEnv(cfg, envPath)

	if cfg.Database.DSN != "postgres://from-dotenv" {
		t.Errorf("expected dsn from .env file, got %q", cfg.Database.DSN)
	}
}
