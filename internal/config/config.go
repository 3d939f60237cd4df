// config - источник загрузки конфигурации agora.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// ENV всегда накладывается поверх файла. Секреты (GITHUB_CLIENT_SECRET,
// ENCRYPTION_SECRET, GITHUB_TOKEN) необязательны при загрузке: их отсутствие
// проявляется в соответствующих запросах ответом 500.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	GitHub    GitHubConfig    `yaml:"github"`
	CORS      CORSConfig      `yaml:"cors"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймаут сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	// PublicURL — внешний origin (для адреса OAuth-колбэка); пусто — из запроса.
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — отдельный HTTP для Prometheus.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9090"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// OAuthConfig — OAuth App провайдера и шифрование state/session.
type OAuthConfig struct {
	ClientID         string        `yaml:"client_id"         env:"GITHUB_CLIENT_ID"`
	ClientSecret     string        `yaml:"client_secret"     env:"GITHUB_CLIENT_SECRET"`
	EncryptionSecret string        `yaml:"encryption_secret" env:"ENCRYPTION_SECRET"`
	StateTTL         time.Duration `yaml:"state_ttl"         env:"OAUTH_STATE_TTL"     env-default:"5m"`
	SessionTTL       time.Duration `yaml:"session_ttl"       env:"OAUTH_SESSION_TTL"   env-default:"8760h"`
	SessionParam     string        `yaml:"session_param"     env:"OAUTH_SESSION_PARAM" env-default:"session"`
	// AuthorizeURL/TokenURL — пусто означает github.com.
	AuthorizeURL string   `yaml:"authorize_url" env:"OAUTH_AUTHORIZE_URL"`
	TokenURL     string   `yaml:"token_url"     env:"OAUTH_TOKEN_URL"`
	Scopes       []string `yaml:"scopes"        env:"OAUTH_SCOPES" env-separator:","`
}

// GitHubConfig — GraphQL API и серверный токен для анонимных чтений.
type GitHubConfig struct {
	Token      string `yaml:"token"       env:"GITHUB_TOKEN"`
	GraphQLURL string `yaml:"graphql_url" env:"GITHUB_GRAPHQL_URL" env-default:"https://api.github.com/graphql"`
}

// CORSConfig — origin-ы сайтов, встраивающих виджет. Тот же список
// ограничивает redirect_uri при входе. Пусто — любой.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// RedisConfig — кэш анонимных чтений; пустой URL выключает кэш.
type RedisConfig struct {
	URL    string        `yaml:"url"    env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"agora:read:"`
	TTL    time.Duration `yaml:"ttl"    env:"REDIS_TTL"    env-default:"30s"`
}

// RateLimitConfig — лимит анонимных чтений на IP; RPS <= 0 выключает лимит.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"   env:"RATE_LIMIT_RPS"   env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
