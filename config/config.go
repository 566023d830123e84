package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JohnyZhand/CoraBooks/database"
	cbhttp "github.com/JohnyZhand/CoraBooks/http"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CORABOOKS"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for corabooks.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Service  ServiceConfig     `mapstructure:"service"`
	Database database.Config   `mapstructure:"database"`
	Storage  StorageConfig     `mapstructure:"storage"`
	Admin    AdminConfig       `mapstructure:"admin"`
	Cleanup  CleanupConfig     `mapstructure:"cleanup"`
	Download DownloadConfig    `mapstructure:"download"`
	CORS     cbhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig         `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
	PublicURL     string `mapstructure:"public_url" validate:"omitempty,url"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout    int      `mapstructure:"cleanup_timeout" validate:"min=1"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" validate:"min=1,dive,required,alphanum"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Backend    string           `mapstructure:"backend" validate:"required,oneof=filesystem s3"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	S3         S3Config         `mapstructure:"s3"`
}

// FilesystemConfig holds the local directory object store settings.
type FilesystemConfig struct {
	Path          string        `mapstructure:"path"`
	SigningSecret string        `mapstructure:"signing_secret"`
	TicketTTL     time.Duration `mapstructure:"ticket_ttl"`
}

// S3Config holds the S3 object store settings.
type S3Config struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	UploadTTL       time.Duration `mapstructure:"upload_ttl"`
}

// Validate checks the settings of the selected backend.
func (s StorageConfig) Validate() error {
	switch s.Backend {
	case "filesystem":
		if s.Filesystem.Path == "" {
			return errors.New("storage.filesystem.path is required")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required")
		}
		if s.S3.Region == "" {
			return errors.New("storage.s3.region is required")
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			return errors.New("storage.s3.access_key_id and storage.s3.secret_access_key must be set together")
		}
	}
	return nil
}

// AdminConfig holds the admin API key.
type AdminConfig struct {
	Key string `mapstructure:"key"`
}

// CleanupConfig controls the cleanup sweep. A zero interval disables the
// background sweeper.
type CleanupConfig struct {
	Threshold time.Duration `mapstructure:"threshold" validate:"gt=0"`
	Interval  time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// DownloadConfig holds download link settings.
type DownloadConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Env   string `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
}

// IsProduction reports whether production logging is selected.
func (l LogConfig) IsProduction() bool {
	return l.Env == "prod" || l.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":         "database.type",
	"db-dsn":          "database.dsn",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.filesystem.path",
	"port":            "server.port",
	"admin-key":       "admin.key",
	"threshold":       "cleanup.threshold",
	"log-level":       "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
// Every key has a default so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", 2*1024*1024*1024)
	v.SetDefault("server.public_url", "http://localhost:8080")

	v.SetDefault("service.cleanup_timeout", 30) // seconds
	v.SetDefault("service.allowed_extensions", []string{"pdf", "epub", "mobi"})

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "corabooks.db")
	v.SetDefault("database.key", "files")
	v.SetDefault("database.name", "corabooks")
	v.SetDefault("database.tables.meta_data", "corabooks_kv")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.filesystem.path", "./data")
	v.SetDefault("storage.filesystem.signing_secret", "")
	v.SetDefault("storage.filesystem.ticket_ttl", "1h")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.force_path_style", false)
	v.SetDefault("storage.s3.upload_ttl", "1h")

	v.SetDefault("admin.key", "")

	v.SetDefault("cleanup.threshold", "6h")
	v.SetDefault("cleanup.interval", "0s")

	v.SetDefault("download.ttl", "1h")

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "Range", "X-Admin-Key"})
	v.SetDefault("cors.exposed_headers", []string{"Content-Disposition", "Content-Length", "Content-Range", "ETag"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "dev")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
