package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse" mapstructure:"warehouse"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Storefront StorefrontConfig `yaml:"storefront" mapstructure:"storefront"`
	Seed       SeedConfig       `yaml:"seed" mapstructure:"seed"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// WarehouseConfig configures the regulatory data warehouse backend.
type WarehouseConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Path        string     `yaml:"path" mapstructure:"path"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds connection pool tuning for the Postgres driver.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateRPS        float64  `yaml:"rate_rps" mapstructure:"rate_rps"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// StorefrontConfig configures the e-commerce backend client.
type StorefrontConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Token   string  `yaml:"token" mapstructure:"token"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// SeedConfig holds default paths for the seed commands.
type SeedConfig struct {
	RegulationsPath string `yaml:"regulations_path" mapstructure:"regulations_path"`
	ProgramsPath    string `yaml:"programs_path" mapstructure:"programs_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("warehouse.driver", "postgres")
	v.SetDefault("warehouse.path", "directory.db")
	v.SetDefault("warehouse.pool.max_conns", 10)
	v.SetDefault("warehouse.pool.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_rps", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("storefront.rps", 2)
	v.SetDefault("seed.regulations_path", "data/regulations.yaml")
	v.SetDefault("seed.programs_path", "data/programs.xlsx")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed for the given mode
// ("serve", "migrate", "seed", or "resolve").
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Warehouse.Driver {
	case "postgres":
		if c.Warehouse.DatabaseURL == "" {
			missing = append(missing, "warehouse.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Warehouse.Path == "" {
			missing = append(missing, "warehouse.path is required for the sqlite driver")
		}
	default:
		missing = append(missing, "warehouse.driver must be postgres or sqlite")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "migrate", "seed", "resolve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
