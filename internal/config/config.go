// Package config loads and validates the suretbon configuration from an
// optional config.yaml and SURETBON_-prefixed environment variables.
package config

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Supabase SupabaseConfig `yaml:"supabase" mapstructure:"supabase"`
	Bucket   BucketConfig   `yaml:"bucket" mapstructure:"bucket"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. The postgres driver is used
// against the managed platform; sqlite backs local dry runs of the run log.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SupabaseConfig holds the Supabase project URL and service-role key used
// for Storage administration. The service-role key has elevated privileges
// and should only come from the environment.
type SupabaseConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	ServiceRoleKey string `yaml:"service_role_key" mapstructure:"service_role_key"`
}

// BucketConfig configures the data_lake storage bucket.
type BucketConfig struct {
	Name             string   `yaml:"name" mapstructure:"name"`
	Public           bool     `yaml:"public" mapstructure:"public"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types" mapstructure:"allowed_mime_types"`
	FileSizeLimit    string   `yaml:"file_size_limit" mapstructure:"file_size_limit"`
}

// FileSizeLimitBytes parses the human-readable size limit ("50MB", "512KB",
// or a plain byte count) into bytes.
func (b BucketConfig) FileSizeLimitBytes() (int64, error) {
	s := strings.TrimSpace(strings.ToUpper(b.FileSizeLimit))
	if s == "" {
		return 0, nil
	}

	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		mult, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		mult, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		mult, s = 1<<10, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, eris.Errorf("config: invalid bucket.file_size_limit %q", b.FileSizeLimit)
	}
	return n * mult, nil
}

// IngestConfig configures the bulk dataset loaders.
type IngestConfig struct {
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the restaurant query API.
type ServerConfig struct {
	Port        int    `yaml:"port" mapstructure:"port"`
	FrontendURL string `yaml:"frontend_url" mapstructure:"frontend_url"`
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
	v.SetEnvPrefix("SURETBON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "suretbon.db")
	v.SetDefault("bucket.name", "data_lake")
	v.SetDefault("bucket.public", false)
	v.SetDefault("bucket.allowed_mime_types", []string{"text/csv", "application/vnd.apache.parquet"})
	v.SetDefault("bucket.file_size_limit", "50MB")
	v.SetDefault("ingest.temp_dir", "/tmp/suretbon")
	v.SetDefault("ingest.timeout_secs", 600)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.batch_size", 1000)
	v.SetDefault("server.port", 8080)
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

// Validate checks that the configuration required by a command family is
// present. Families: "bucket", "migrate", "ingest", "status", "serve".
func (c *Config) Validate(family string) error {
	switch family {
	case "bucket":
		return c.requireSupabase()
	case "migrate", "status":
		return c.requireDatabase()
	case "ingest":
		if err := c.requireSupabase(); err != nil {
			return err
		}
		return c.requireDatabase()
	case "serve":
		return c.requireDatabase()
	default:
		return eris.Errorf("config: unknown command family %q", family)
	}
}

func (c *Config) requireSupabase() error {
	if c.Supabase.URL == "" {
		return eris.New("config: supabase.url is required (set SURETBON_SUPABASE_URL)")
	}
	if c.Supabase.ServiceRoleKey == "" {
		return eris.New("config: supabase.service_role_key is required (set SURETBON_SUPABASE_SERVICE_ROLE_KEY)")
	}
	return nil
}

func (c *Config) requireDatabase() error {
	if c.Store.Driver == "sqlite" {
		return nil
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required (set SURETBON_STORE_DATABASE_URL)")
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
