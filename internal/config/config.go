package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort         = 8080
	DefaultTemplatesFile    = "templates.toml"
	DefaultTemplatesFileEnv = "MSB_CONFIG_FILE"
	DefaultLiveEnv          = "MSB_LIVE"
	DefaultVisibility       = "public"
	DefaultNATSSubject      = "statusbot.posts"
)

// Publisher types.
const (
	PublisherMastodon = "mastodon"
	PublisherWebhook  = "webhook"
	PublisherNATS     = "nats"
)

// Config is the top-level configuration, parsed from config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Live enables publishing. When false, rendered posts are logged and
	// dropped. See LiveEnv.
	Live bool `yaml:"live"`

	// LiveEnv names an environment variable that, when set, overrides Live.
	// Only the value "true" turns live mode on. Default: MSB_LIVE.
	LiveEnv string `yaml:"live_env"`

	// TemplatesFile is the TOML or YAML template document. Relative paths
	// are resolved against the directory of the config file.
	TemplatesFile string `yaml:"templates_file"`

	// TemplatesFileEnv names an environment variable that, when set and
	// non-empty, replaces TemplatesFile. Its value is used as given.
	// Default: MSB_CONFIG_FILE.
	TemplatesFileEnv string `yaml:"templates_file_env"`

	Publisher PublisherConfig `yaml:"publisher"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the alert intake and metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how alert senders authenticate.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls client authentication on the alert endpoints.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// PublisherConfig selects and configures the outbound publisher.
type PublisherConfig struct {
	// Type is one of: mastodon | webhook | nats.
	Type string `yaml:"type"`

	// RatePerMinute caps outbound posts. Zero means unlimited.
	RatePerMinute int `yaml:"rate_per_minute"`

	Mastodon MastodonConfig `yaml:"mastodon"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	NATS     NATSConfig     `yaml:"nats"`
}

// MastodonConfig holds the account credentials, all resolved from the
// environment.
type MastodonConfig struct {
	ServerEnv       string `yaml:"server_env"`
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
	TokenEnv        string `yaml:"token_env"`

	// Visibility is one of: public | unlisted | private | direct.
	Visibility string `yaml:"visibility"`
}

func (m MastodonConfig) Server() string       { return getenv(m.ServerEnv) }
func (m MastodonConfig) ClientID() string     { return getenv(m.ClientIDEnv) }
func (m MastodonConfig) ClientSecret() string { return getenv(m.ClientSecretEnv) }
func (m MastodonConfig) Token() string        { return getenv(m.TokenEnv) }

// WebhookConfig defines a webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return getenv(w.URLEnv) }

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// LiveMode reports whether posts should be published. A set LiveEnv
// variable wins over the file value.
func (c *Config) LiveMode() bool {
	if c.LiveEnv != "" {
		if v, ok := os.LookupEnv(c.LiveEnv); ok {
			return strings.TrimSpace(v) == "true"
		}
	}
	return c.Live
}

// LoadEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "config: load env file %q", path)
	}
	return nil
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %q", path)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse yaml")
	}

	if p := getenv(cfg.TemplatesFileEnv); p != "" {
		cfg.TemplatesFile = p
	} else if !filepath.IsAbs(cfg.TemplatesFile) {
		cfg.TemplatesFile = filepath.Join(filepath.Dir(path), cfg.TemplatesFile)
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values. The Mastodon
// variable names match the ones the bot has always read.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		LiveEnv:          DefaultLiveEnv,
		TemplatesFile:    DefaultTemplatesFile,
		TemplatesFileEnv: DefaultTemplatesFileEnv,
		Publisher: PublisherConfig{
			Type: PublisherMastodon,
			Mastodon: MastodonConfig{
				ServerEnv:       "MSB_HOST",
				ClientIDEnv:     "MSB_CLIENT_KEY",
				ClientSecretEnv: "MSB_CLIENT_SECRET",
				TokenEnv:        "MSB_ACCESS_TOKEN",
				Visibility:      DefaultVisibility,
			},
			NATS: NATSConfig{
				Subject: DefaultNATSSubject,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return errors.Newf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return errors.Newf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.TemplatesFile == "" {
		return errors.New("templates_file is required")
	}
	if cfg.Publisher.RatePerMinute < 0 {
		return errors.New("publisher.rate_per_minute must not be negative")
	}

	switch cfg.Publisher.Type {
	case PublisherMastodon:
		switch cfg.Publisher.Mastodon.Visibility {
		case "public", "unlisted", "private", "direct":
		default:
			return errors.Newf("publisher.mastodon.visibility %q unknown: want public|unlisted|private|direct",
				cfg.Publisher.Mastodon.Visibility)
		}
	case PublisherWebhook:
		switch cfg.Publisher.Webhook.Type {
		case "slack", "teams", "http":
		default:
			return errors.Newf("publisher.webhook.type %q unknown: want slack|teams|http", cfg.Publisher.Webhook.Type)
		}
		if cfg.Publisher.Webhook.URLEnv == "" {
			return errors.New("publisher.webhook.url_env is required")
		}
	case PublisherNATS:
		if cfg.Publisher.NATS.URL == "" {
			return errors.New("publisher.nats.url is required")
		}
		if cfg.Publisher.NATS.Subject == "" {
			return errors.New("publisher.nats.subject is required")
		}
	default:
		return errors.Newf("publisher.type %q unknown: want mastodon|webhook|nats", cfg.Publisher.Type)
	}
	return nil
}
