package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Bot       BotConfig
	Operators OperatorConfig
	Sessions  SessionConfig
	Catalog   CatalogConfig
	Redis     RedisConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Display   DisplayConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Bot.validate(); err != nil {
		return nil, err
	}
	if cfg.PubSub.Enabled() && strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%s is required when %s is set", EnvGCPProjectID, EnvPubSubOrdersTopic)
	}
	return &cfg, nil
}

// ToolingConfig is the subset of settings the operator CLI reads. It does not
// require a bot token.
type ToolingConfig struct {
	Catalog CatalogConfig
	Display DisplayConfig
}

func LoadTooling() (*ToolingConfig, error) {
	var cfg ToolingConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MENUBOT_APP_ENV" default:"dev"`
	Port         string `envconfig:"MENUBOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MENUBOT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MENUBOT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MENUBOT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the dashboards allowed to call the operator API.
	CORSOrigins []string `envconfig:"MENUBOT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type BotConfig struct {
	Token          string        `envconfig:"MENUBOT_BOT_TOKEN" required:"true"`
	APIBaseURL     string        `envconfig:"MENUBOT_BOT_API_BASE_URL" default:"https://api.telegram.org"`
	Mode           string        `envconfig:"MENUBOT_BOT_MODE" default:"polling"`
	PollTimeout    time.Duration `envconfig:"MENUBOT_BOT_POLL_TIMEOUT" default:"25s"`
	RequestTimeout time.Duration `envconfig:"MENUBOT_BOT_REQUEST_TIMEOUT" default:"10s"`
	WebhookSecret  string        `envconfig:"MENUBOT_BOT_WEBHOOK_SECRET"`
}

// IsWebhook reports whether updates arrive through the HTTP webhook.
func (b BotConfig) IsWebhook() bool {
	return strings.EqualFold(strings.TrimSpace(b.Mode), BotModeWebhook)
}

func (b *BotConfig) validate() error {
	token := strings.TrimSpace(b.Token)
	if !strings.Contains(token, ":") || len(token) < 40 {
		return fmt.Errorf("%s has an invalid format; expected <id>:<secret>", EnvBotToken)
	}
	b.Token = token

	mode := strings.ToLower(strings.TrimSpace(b.Mode))
	switch mode {
	case "":
		mode = BotModePolling
	case BotModePolling, BotModeWebhook:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvBotMode, BotModePolling, BotModeWebhook, b.Mode)
	}
	b.Mode = mode

	if mode == BotModeWebhook && strings.TrimSpace(b.WebhookSecret) == "" {
		return fmt.Errorf("%s is required in webhook mode", EnvBotWebhookSecret)
	}
	return nil
}

type OperatorConfig struct {
	IDs           []int64       `envconfig:"MENUBOT_OPERATOR_IDS"`
	NotifyTimeout time.Duration `envconfig:"MENUBOT_OPERATOR_NOTIFY_TIMEOUT" default:"10s"`
	APIToken      string        `envconfig:"MENUBOT_OPERATOR_API_TOKEN"`
}

type SessionConfig struct {
	// IdleTTL evicts navigation state after inactivity; zero keeps sessions forever.
	IdleTTL       time.Duration `envconfig:"MENUBOT_SESSION_IDLE_TTL" default:"0s"`
	SweepInterval time.Duration `envconfig:"MENUBOT_SESSION_SWEEP_INTERVAL" default:"10m"`
}

// IsOperator reports whether id is on the static allow-list.
func (o OperatorConfig) IsOperator(id int64) bool {
	for _, candidate := range o.IDs {
		if candidate == id && id != 0 {
			return true
		}
	}
	return false
}

type CatalogConfig struct {
	ProjectID       string        `envconfig:"MENUBOT_SANITY_PROJECT_ID" required:"true"`
	Dataset         string        `envconfig:"MENUBOT_SANITY_DATASET" default:"production"`
	APIVersion      string        `envconfig:"MENUBOT_SANITY_API_VERSION" default:"2023-05-03"`
	Token           string        `envconfig:"MENUBOT_SANITY_TOKEN"`
	Locale          string        `envconfig:"MENUBOT_CATALOG_LOCALE" default:"ru"`
	FetchTimeout    time.Duration `envconfig:"MENUBOT_CATALOG_FETCH_TIMEOUT" default:"30s"`
	RefreshInterval time.Duration `envconfig:"MENUBOT_CATALOG_REFRESH_INTERVAL" default:"0s"`
}

type RedisConfig struct {
	URL              string        `envconfig:"MENUBOT_REDIS_URL"`
	Address          string        `envconfig:"MENUBOT_REDIS_ADDR"`
	Password         string        `envconfig:"MENUBOT_REDIS_PASSWORD"`
	DB               int           `envconfig:"MENUBOT_REDIS_DB" default:"0"`
	PoolSize         int           `envconfig:"MENUBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns     int           `envconfig:"MENUBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout      time.Duration `envconfig:"MENUBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout      time.Duration `envconfig:"MENUBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout     time.Duration `envconfig:"MENUBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
	UpdateDedupeTTL  time.Duration `envconfig:"MENUBOT_REDIS_UPDATE_DEDUPE_TTL" default:"24h"`
	RateLimitWindow  time.Duration `envconfig:"MENUBOT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitActions int           `envconfig:"MENUBOT_RATE_LIMIT_ACTIONS" default:"60"`
	APIRateLimit     int           `envconfig:"MENUBOT_API_RATE_LIMIT" default:"120"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"MENUBOT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic    string        `envconfig:"MENUBOT_PUBSUB_ORDERS_TOPIC"`
	PublishTimeout time.Duration `envconfig:"MENUBOT_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

// Enabled reports whether order events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.OrdersTopic) != ""
}

type DisplayConfig struct {
	CurrencySymbol string `envconfig:"MENUBOT_CURRENCY_SYMBOL" default:"₽"`
	MinorUnits     int32  `envconfig:"MENUBOT_CURRENCY_MINOR_UNITS" default:"0"`
	Timezone       string `envconfig:"MENUBOT_TIMEZONE" default:"UTC"`
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(d.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}
