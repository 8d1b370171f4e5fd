package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "WATCHX_"

// ApplyEnv loads a .env file from the working directory when one exists and
// overlays WATCHX_* variables onto cfg.
//
// Secrets are usually supplied this way rather than committed to config.toml.
func ApplyEnv(cfg *Config, files ...string) {
	_ = godotenv.Load(files...)

	setString(&cfg.Storage.Path, "STORAGE_PATH")

	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.Path, "DATABASE_PATH")
	setString(&cfg.Database.DSN, "DATABASE_DSN")

	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.APIToken, "API_TOKEN")

	setString(&cfg.Remote.BaseURL, "REMOTE_URL")
	setString(&cfg.Remote.APIToken, "REMOTE_TOKEN")
	setDuration(&cfg.Remote.Timeout, "REMOTE_TIMEOUT")

	setString(&cfg.Auth.ClientID, "CLIENT_ID")
	setString(&cfg.Auth.ClientSecret, "CLIENT_SECRET")
	setString(&cfg.Auth.RedirectURI, "REDIRECT_URI")

	setDuration(&cfg.Feeds.CacheTTL, "FEED_CACHE_TTL")
	setString(&cfg.Feeds.RedisAddr, "REDIS_ADDR")
	if v, ok := lookup("FEED_ALLOWED_HOSTS"); ok {
		cfg.Feeds.AllowedHosts = splitList(v)
	}

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.File, "LOG_FILE")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
