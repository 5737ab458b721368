package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr  string `yaml:"httpAddr"`
	PublicURL string `yaml:"publicURL"`

	// ChatBaseURL is the chat frontend learners are redirected into.
	ChatBaseURL string `yaml:"chatBaseURL"`
	// CompletionEndpoint is the completion API registered models point at.
	CompletionEndpoint string `yaml:"completionEndpoint"`

	DBDriver string `yaml:"dbDriver"`
	DBDSN    string `yaml:"dbDSN"`

	// Bridge is the external identity/group/model system.
	BridgeBaseURL string `yaml:"bridgeBaseURL"`
	BridgeAPIKey  string `yaml:"bridgeAPIKey"`

	// RedisAddr enables the distributed publish lock; empty keeps the
	// in-process one.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	AuthHMACSecret string `yaml:"authHMACSecret"`

	// UnpublishCleanup makes unpublish delete the external group/model
	// instead of leaving them for audit.
	UnpublishCleanup bool `yaml:"unpublishCleanup"`

	EnableMetrics bool     `yaml:"enableMetrics"`
	CORSOrigins   []string `yaml:"corsOrigins"`
}

// LaunchURL is the public launch endpoint an LMS signs requests against.
func (c Config) LaunchURL() string {
	return strings.TrimSuffix(c.PublicURL, "/") + "/simple_lti/launch"
}

// Load reads the optional YAML file named by CONFIG_FILE, then applies
// environment overrides. Env always wins so deployments can patch a single
// value without editing the file.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.PublicURL = envOr("PUBLIC_URL", cfg.PublicURL)
	cfg.ChatBaseURL = envOr("CHAT_BASE_URL", cfg.ChatBaseURL)
	cfg.CompletionEndpoint = envOr("COMPLETION_ENDPOINT", cfg.CompletionEndpoint)
	cfg.DBDriver = envOr("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = envOr("DB_DSN", cfg.DBDSN)
	cfg.BridgeBaseURL = envOr("BRIDGE_BASE_URL", cfg.BridgeBaseURL)
	cfg.BridgeAPIKey = envOr("BRIDGE_API_KEY", cfg.BridgeAPIKey)
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envOr("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.AuthHMACSecret = envOr("AUTH_HMAC_SECRET", cfg.AuthHMACSecret)
	cfg.UnpublishCleanup = envBool("UNPUBLISH_CLEANUP", cfg.UnpublishCleanup)
	cfg.EnableMetrics = envBool("ENABLE_METRICS", cfg.EnableMetrics)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}

	if cfg.ChatBaseURL == "" {
		cfg.ChatBaseURL = strings.TrimSuffix(cfg.PublicURL, "/") + "/chat"
	}
	if cfg.CompletionEndpoint == "" {
		cfg.CompletionEndpoint = strings.TrimSuffix(cfg.PublicURL, "/") + "/v1/chat/completions"
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPAddr:      ":9099",
		PublicURL:     "http://localhost:9099",
		DBDriver:      "sqlite",
		BridgeBaseURL: "http://localhost:8080",
		EnableMetrics: true,
		CORSOrigins:   []string{"http://localhost:3000"},
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
