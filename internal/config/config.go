// config предоставляет структуру конфигурации authguard и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Бэкенды хранилища отозванных (использованных) refresh-токенов.
const (
	RevocationPostgres = "postgres"
	RevocationRedis    = "redis"
	RevocationNone     = "none"
)

// Config - корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Файл .env из рабочей директории (если есть) загружается в окружение
// до чтения конфигурации и не перетирает уже заданные переменные.
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Revocation RevocationConfig `yaml:"revocation"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	Mongo      MongoConfig      `yaml:"mongo"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// TimeoutConfig - таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig - публичный REST API.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50080"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// GRPCConfig - gRPC-сервер (health/reflection + авторизующие интерсепторы).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

func (g GRPCConfig) Addr() string { return net.JoinHostPort(g.Host, g.Port) }

// MetricsConfig - отдельный HTTP для /metrics, /livez, /healthz.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"50085"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL    time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"1h"`
	RefreshTokenTTL   time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer            string        `yaml:"issuer" env:"ISSUER" env-default:"authguard"`
	Leeway            time.Duration `yaml:"leeway" env:"TOKEN_LEEWAY" env-default:"0s"`
	SelfRegisterRoles []string      `yaml:"self_register_roles" env:"SELF_REGISTER_ROLES" env-default:"member"`
}

// StoreConfig - ограничения на поиск принципала при авторизации.
type StoreConfig struct {
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"STORE_LOOKUP_TIMEOUT" env-default:"2s"`
	LookupRetries int           `yaml:"lookup_retries" env:"STORE_LOOKUP_RETRIES" env-default:"2"`
}

// RevocationConfig - где хранятся использованные refresh-токены.
type RevocationConfig struct {
	Backend       string        `yaml:"backend" env:"REVOCATION_BACKEND" env-default:"postgres"`
	JanitorPeriod time.Duration `yaml:"janitor_period" env:"REVOCATION_JANITOR_PERIOD" env-default:"30m"`
}

// DBConfig - настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"authguard:spent:"`
}

// MongoConfig - хранилище постов; пустой URL отключает ресурс posts.
type MongoConfig struct {
	URL      string `yaml:"url" env:"MONGO_URL"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"authguard"`
}

// RateLimitConfig - лимит на публичные auth-эндпоинты (per client IP).
// RPS <= 0 отключает лимитер.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"10"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	// .env опционален: отсутствие файла не ошибка.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var (
		cfg *Config
		err error
	)

	switch {
	case path != "":
		cfg, err = readFile(path)
	case os.Getenv("CONFIG_PATH") != "":
		cfg, err = readFile(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			cfg, err = readFile("local.yaml")
		} else {
			var c Config
			if envErr := cleanenv.ReadEnv(&c); envErr != nil {
				return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", envErr)
			}
			cfg = &c
		}
	}

	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readFile(p string) (*Config, error) {
	var cfg Config

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

// Validate проверяет согласованность значений, которые cleanenv не проверяет сам.
func (c *Config) Validate() error {
	const op = "config.Validate"

	switch c.Revocation.Backend {
	case RevocationPostgres, RevocationNone:
	case RevocationRedis:
		if strings.TrimSpace(c.Redis.RedisURL) == "" {
			return fmt.Errorf("%s: revocation backend redis requires redis.redis_url", op)
		}
	default:
		return fmt.Errorf("%s: unknown revocation backend %q", op, c.Revocation.Backend)
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%s: token ttl must be positive", op)
	}

	if c.Auth.Leeway < 0 {
		return fmt.Errorf("%s: negative leeway", op)
	}

	if c.Store.LookupTimeout <= 0 {
		return fmt.Errorf("%s: store.lookup_timeout must be positive", op)
	}

	if c.Store.LookupRetries < 0 {
		return fmt.Errorf("%s: store.lookup_retries must not be negative", op)
	}

	return nil
}
