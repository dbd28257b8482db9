package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/mvfy/verify/internal/extractor/insight"
	"github.com/mvfy/verify/internal/store/redis"
)

// Config represents the service configuration.
type Config struct {
	Server      ServerConfig
	CORS        CORSConfig
	Redis       redis.Config
	Extractor   insight.Config
	Match       MatchConfig
	Cache       CacheConfig
	Maintenance MaintenanceConfig
	Visitor     VisitorConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PATCH,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// MatchConfig contains the deployment-specific matching constants. The
// metric, threshold, dimension and fingerprint precision depend on the
// extraction model and are never hard-coded.
type MatchConfig struct {
	Metric    string  `env:"MATCH_METRIC"          envDefault:"euclidean"`
	Threshold float64 `env:"MATCH_THRESHOLD"       envDefault:"0.6"`
	Epsilon   float64 `env:"MATCH_EPSILON"         envDefault:"1e-9"`
	Dimension int     `env:"EMBEDDING_DIM"         envDefault:"128"`
	Precision int     `env:"FINGERPRINT_PRECISION" envDefault:"2"`

	// UseIndex enables HNSW candidate search instead of a full linear scan.
	UseIndex   bool `env:"MATCH_USE_INDEX"   envDefault:"false"`
	CandidateK int  `env:"MATCH_CANDIDATE_K" envDefault:"10"`
}

// CacheConfig contains verification-cache settings.
type CacheConfig struct {
	Capacity int           `env:"CACHE_CAPACITY" envDefault:"4096"`
	TTL      time.Duration `env:"CACHE_TTL"      envDefault:"30s"`
}

// MaintenanceConfig contains scheduler settings.
type MaintenanceConfig struct {
	Interval     time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"60s"`
	DisableGrace time.Duration `env:"DISABLE_GRACE"        envDefault:"168h"`
}

// VisitorConfig contains unknown-visitor tracking settings.
type VisitorConfig struct {
	Enabled          bool    `env:"VISITOR_TRACKING"   envDefault:"false"`
	MinKnowledgeDays int     `env:"MIN_KNOWLEDGE_DAYS" envDefault:"7"`
	MinFrequency     float64 `env:"MIN_FREQUENCY"      envDefault:"0.7"`
}

// DepConfig is used for dependency injection with dig. Fields are named: the
// redis and insight sub-configs would otherwise both embed as "Config".
type DepConfig struct {
	dig.Out

	Server      *ServerConfig
	CORS        *CORSConfig
	Redis       *redis.Config
	Extractor   *insight.Config
	Match       *MatchConfig
	Cache       *CacheConfig
	Maintenance *MaintenanceConfig
	Visitor     *VisitorConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Server:      &cfg.Server,
		CORS:        &cfg.CORS,
		Redis:       &cfg.Redis,
		Extractor:   &cfg.Extractor,
		Match:       &cfg.Match,
		Cache:       &cfg.Cache,
		Maintenance: &cfg.Maintenance,
		Visitor:     &cfg.Visitor,
	}
}
