package labdb

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds every labdb setting.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Archive  ArchiveConfig  `yaml:"archive" json:"archive"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"-"`
	SSLMode         string        `yaml:"sslMode" json:"sslMode"`
	MaxConnections  int           `yaml:"maxConnections" json:"maxConnections"`
	MaxIdleConns    int           `yaml:"maxIdleConns" json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime" json:"connMaxIdleTime"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`

	// UseIAM replaces Password with a generated IAM auth token.
	UseIAM    bool   `yaml:"useIAM" json:"useIAM"`
	IAMRegion string `yaml:"iamRegion" json:"iamRegion"`
}

// AuthConfig contains web authentication settings
type AuthConfig struct {
	SecretKey      string        `yaml:"secretKey" json:"-"`
	SessionTTL     time.Duration `yaml:"sessionTTL" json:"sessionTTL"`
	CookieName     string        `yaml:"cookieName" json:"cookieName"`
	DefaultGroup   string        `yaml:"defaultGroup" json:"defaultGroup"`
	ReaperInterval time.Duration `yaml:"reaperInterval" json:"reaperInterval"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string        `yaml:"port" json:"port"`
	StaticPrefix string        `yaml:"staticPrefix" json:"staticPrefix"`
	ReadTimeout  time.Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ArchiveConfig contains test result archive settings
type ArchiveConfig struct {
	S3Bucket   string        `yaml:"s3Bucket" json:"s3Bucket"`
	S3Prefix   string        `yaml:"s3Prefix" json:"s3Prefix"`
	S3Region   string        `yaml:"s3Region" json:"s3Region"`
	S3Endpoint string        `yaml:"s3Endpoint" json:"s3Endpoint"`
	WorkDir    string        `yaml:"workDir" json:"workDir"`
	Interval   time.Duration `yaml:"interval" json:"interval"` // server archive period; zero disables it
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "labdb",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Auth: AuthConfig{
			SecretKey:      "Testkey",
			SessionTTL:     24 * time.Hour,
			CookieName:     "labdb_session",
			DefaultGroup:   "tester",
			ReaperInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Port:         "8080",
			StaticPrefix: "/media",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Archive: ArchiveConfig{
			S3Prefix: "labdb",
			WorkDir:  os.TempDir(),
		},
	}
}

// LoadConfig reads a YAML config file over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.Username, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")
	setString(&c.Auth.SecretKey, "LABDB_SECRET_KEY")
	setString(&c.Server.Port, "PORT")
	setString(&c.Archive.S3Bucket, "ARCHIVE_S3_BUCKET")
	if v := getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := getenv("DB_USE_IAM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Database.UseIAM = b
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ConfigError{Field: "database.host", Message: "is required"}
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return &ConfigError{Field: "database.port", Message: "must be a valid TCP port"}
	}
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}
	if c.Database.MaxIdleConns > c.Database.MaxConnections {
		return &ConfigError{Field: "database.maxIdleConns", Message: "must not exceed maxConnections"}
	}
	if c.Auth.SecretKey == "" {
		return &ConfigError{Field: "auth.secretKey", Message: "is required"}
	}
	if c.Auth.SessionTTL <= 0 {
		return &ConfigError{Field: "auth.sessionTTL", Message: "must be greater than 0"}
	}
	if c.Auth.CookieName == "" {
		return &ConfigError{Field: "auth.cookieName", Message: "is required"}
	}
	if c.Archive.Interval > 0 && c.Archive.S3Bucket == "" {
		return &ConfigError{Field: "archive.s3Bucket", Message: "is required when archive.interval is set"}
	}
	return nil
}

// ConnString renders a postgres URL for the database settings.
func (d DatabaseConfig) ConnString() string {
	var userInfo *url.Userinfo
	if d.Password != "" {
		userInfo = url.UserPassword(d.Username, d.Password)
	} else {
		userInfo = url.User(d.Username)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Database,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

// NewLogger builds a zap logger for the logging settings. Format "console"
// selects the development encoder; anything else logs JSON.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, &ConfigError{Field: "logging.level", Message: err.Error()}
		}
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
