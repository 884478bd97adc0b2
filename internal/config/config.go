package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied before the file is parsed.
const (
	DefaultHTTPPort         = 8080
	DefaultDataFile         = "lighthouse-results.json"
	DefaultPageSpeedURL     = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	DefaultPageSpeedTimeout = 120 * time.Second
	DefaultStrategy         = "mobile"
	DefaultByteWeightPath   = `$.lighthouseResult.audits["total-byte-weight"].numericValue`
	DefaultCarbonURL        = "https://api.websitecarbon.com/data"
	DefaultCarbonTimeout    = 180 * time.Second
	DefaultCooldown         = time.Hour
	DefaultBroadcastTick    = time.Minute
	DefaultMongoDatabase    = "observatoire"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Webhook types.
const (
	WebhookSlack = "slack"
	WebhookTeams = "teams"
	WebhookHTTP  = "http"
)

// Auth modes.
const (
	AuthNone  = "none"
	AuthToken = "token"
)

// Config is the root of config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	PageSpeed PageSpeedConfig `yaml:"pagespeed"`
	Carbon    CarbonConfig    `yaml:"carbon"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Auth      AuthConfig      `yaml:"auth"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, websocket and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// TrustProxy makes the requester identity come from X-Forwarded-For
	// instead of the socket peer. Enable only behind a reverse proxy.
	TrustProxy bool `yaml:"trust_proxy"`

	// GRPCPort serves the gRPC health service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// PageSpeedConfig configures the PageSpeed Insights client.
type PageSpeedConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Strategy string        `yaml:"strategy"`
	Timeout  time.Duration `yaml:"timeout"`

	// KeyEnv names the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`

	// ByteWeightPath is the JSONPath of the total page weight in bytes.
	ByteWeightPath string `yaml:"byte_weight_path"`
}

// Key returns the API key resolved from the environment.
func (p PageSpeedConfig) Key() string {
	if p.KeyEnv == "" {
		return ""
	}
	return os.Getenv(p.KeyEnv)
}

// CarbonConfig configures the Website Carbon client.
type CarbonConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`

	// Disabled skips the carbon estimate entirely.
	Disabled bool `yaml:"disabled"`
}

// StoreConfig selects and configures the agency repository.
type StoreConfig struct {
	// Backend is one of: file | postgres | mongo.
	Backend string `yaml:"backend"`

	// Path is the JSON data file used by the file backend.
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the database URI.
	DSNEnv string `yaml:"dsn_env"`

	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// DSN returns the database URI resolved from the environment.
func (s StoreConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// RateLimitConfig controls the per-requester refresh cooldown.
type RateLimitConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// AuthConfig controls the read/write token check.
type AuthConfig struct {
	// Mode is one of: token | none.
	Mode string `yaml:"mode"`

	// SecretEnv names the environment variable holding the signing secret.
	SecretEnv string `yaml:"secret_env"`
}

// Secret returns the token signing secret resolved from the environment.
func (a AuthConfig) Secret() string {
	if a.SecretEnv == "" {
		return ""
	}
	return os.Getenv(a.SecretEnv)
}

// WebSocketConfig controls the leaderboard push stream.
type WebSocketConfig struct {
	// Tick is the interval between unsolicited leaderboard pushes.
	Tick time.Duration `yaml:"tick"`
}

// NotifyConfig lists the webhooks told about every successful refresh.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with default values. It is what Load
// starts from and what the CLI uses when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPPort: DefaultHTTPPort},
		Log:    LogConfig{Level: "info", Format: "json"},
		PageSpeed: PageSpeedConfig{
			Endpoint:       DefaultPageSpeedURL,
			Strategy:       DefaultStrategy,
			Timeout:        DefaultPageSpeedTimeout,
			KeyEnv:         "OAW_GOOGLE_API_KEY",
			ByteWeightPath: DefaultByteWeightPath,
		},
		Carbon: CarbonConfig{
			Endpoint: DefaultCarbonURL,
			Timeout:  DefaultCarbonTimeout,
		},
		Store: StoreConfig{
			Backend:  BackendFile,
			Path:     DefaultDataFile,
			Database: DefaultMongoDatabase,
		},
		RateLimit: RateLimitConfig{Cooldown: DefaultCooldown},
		Auth:      AuthConfig{Mode: AuthToken, SecretEnv: "OBSERVATOIRE_TOKEN_SECRET"},
		WebSocket: WebSocketConfig{Tick: DefaultBroadcastTick},
	}
}

func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.GRPCPort != 0 && cfg.Server.GRPCPort == cfg.Server.HTTPPort {
		return fmt.Errorf("server.grpc_port must differ from server.http_port")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	if cfg.PageSpeed.Endpoint == "" {
		return fmt.Errorf("pagespeed.endpoint must not be empty")
	}
	if cfg.PageSpeed.Timeout <= 0 {
		return fmt.Errorf("pagespeed.timeout must be positive")
	}
	if cfg.PageSpeed.ByteWeightPath == "" {
		return fmt.Errorf("pagespeed.byte_weight_path must not be empty")
	}
	if !cfg.Carbon.Disabled && cfg.Carbon.Timeout <= 0 {
		return fmt.Errorf("carbon.timeout must be positive")
	}
	switch cfg.Store.Backend {
	case BackendFile:
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path must not be empty for the file backend")
		}
	case BackendPostgres, BackendMongo:
		if cfg.Store.DSNEnv == "" {
			return fmt.Errorf("store.dsn_env is required for the %s backend", cfg.Store.Backend)
		}
	default:
		return fmt.Errorf("store.backend %q unknown: want file|postgres|mongo", cfg.Store.Backend)
	}
	if cfg.RateLimit.Cooldown <= 0 {
		return fmt.Errorf("ratelimit.cooldown must be positive")
	}
	switch cfg.Auth.Mode {
	case AuthToken, AuthNone:
	default:
		return fmt.Errorf("auth.mode %q unknown: want token|none", cfg.Auth.Mode)
	}
	if cfg.WebSocket.Tick < 0 {
		return fmt.Errorf("websocket.tick must not be negative")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case WebhookSlack, WebhookTeams, WebhookHTTP:
		default:
			return fmt.Errorf("notify.webhooks[%d].type %q unknown: want slack|teams|http", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d].url_env must not be empty", i)
		}
	}
	return nil
}
