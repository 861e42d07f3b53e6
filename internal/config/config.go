package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer  `yaml:"http_server"`
	Database    `yaml:"database"`
	Redis       `yaml:"redis"`
	LinkCache   `yaml:"link_cache"`
	Resolver    `yaml:"resolver"`
	Deferred    `yaml:"deferred"`
	Attribution `yaml:"attribution"`
}

// HTTPServer holds HTTP server specific configuration.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"synctra"`
	Password        string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	DBName          string `yaml:"name" env:"DB_NAME" env-default:"synctra"`
	SSLMode         string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
	SeedData        bool   `yaml:"seed_data" env:"DB_SEED_DATA" env-default:"false"`
}

// Redis holds connection settings for the deferred context backend.
// Consume relies on GETDEL, which needs Redis 6.2 or newer.
type Redis struct {
	Address      string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB           int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize     int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
}

// LinkCache holds settings for the in-process link cache.
// Entries are never invalidated on management writes; staleness up to the TTL
// is the accepted trade-off.
type LinkCache struct {
	TTL         time.Duration `yaml:"ttl" env:"LINK_CACHE_TTL" env-default:"1h"`
	MaxSizeMB   int           `yaml:"max_size_mb" env:"LINK_CACHE_MAX_SIZE_MB" env-default:"64"`
	CounterSize int           `yaml:"counter_size" env:"LINK_CACHE_COUNTER_SIZE" env-default:"100000"`
}

// Resolver holds redirect resolution settings.
type Resolver struct {
	// LookupTimeout bounds the durable link lookup; on expiry the request
	// fails closed to not-found instead of hanging the redirect.
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"RESOLVER_LOOKUP_TIMEOUT" env-default:"250ms"`
}

// Deferred holds deferred deep linking settings.
type Deferred struct {
	ContextTTL time.Duration `yaml:"context_ttl" env:"DEFERRED_CONTEXT_TTL" env-default:"168h"`
}

// Attribution holds heuristic matcher settings.
type Attribution struct {
	// Window bounds how far back the matcher scans unconverted clicks.
	Window    time.Duration `yaml:"window" env:"ATTRIBUTION_WINDOW" env-default:"30m"`
	ScanLimit int           `yaml:"scan_limit" env:"ATTRIBUTION_SCAN_LIMIT" env-default:"100"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	// Check if config file path is specified
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	// Try to load config file
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
	} else {
		// If config file doesn't exist, use environment variables only
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err)
		}
	}

	return &cfg
}
