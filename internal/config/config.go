package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Analyzer modes for the web server.
const (
	ModeBackend = "backend" // everything goes to the analysis backend API
	ModeOpenAI  = "openai"  // text and images go straight to the completion API
	ModeHybrid  = "hybrid"  // text to the completion API, media to the backend
)

type Config struct {
	Server struct {
		Port          int     `yaml:"port" env:"PORT"`
		StaticDir     string  `yaml:"staticDir" env:"STATIC_DIR"`
		RateBurst     int     `yaml:"rateBurst" env:"RATE_BURST"`
		RatePerSecond float64 `yaml:"ratePerSecond" env:"RATE_PER_SECOND"`
	} `yaml:"server"`

	Backend struct {
		URL     string        `yaml:"url" env:"API_URL"`
		Port    int           `yaml:"port" env:"BACKEND_PORT"`
		Timeout time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT"`
	} `yaml:"backend"`

	Analyzer struct {
		Mode string `yaml:"mode" env:"ANALYZER_MODE"`
	} `yaml:"analyzer"`

	OpenAI struct {
		APIKey   string `yaml:"apiKey" env:"OPENAI_API_KEY"`
		Model    string `yaml:"model" env:"OPENAI_MODEL"`
		BaseURL  string `yaml:"baseURL" env:"OPENAI_BASE_URL"`
		JSONMode bool   `yaml:"jsonMode" env:"OPENAI_JSON_MODE"`
	} `yaml:"openai"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes" env:"UPLOAD_MAX_BYTES"`
	} `yaml:"upload"`

	Database struct {
		Driver   string `yaml:"driver" env:"DB_DRIVER"`
		Host     string `yaml:"host" env:"DB_HOST"`
		Port     int    `yaml:"port" env:"DB_PORT"`
		User     string `yaml:"user" env:"DB_USER"`
		Password string `yaml:"password" env:"DB_PASSWORD"`
		Name     string `yaml:"name" env:"DB_NAME"`
		SSLMode  string `yaml:"sslMode" env:"DB_SSLMODE"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
		Region     string `yaml:"region" env:"MINIO_REGION"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`

		// PresignExpiry > 0 stores signed links instead of public URLs.
		PresignExpiry time.Duration `yaml:"presignExpiry" env:"MINIO_PRESIGN_EXPIRY"`
	} `yaml:"minio"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
}

// Load baca file config.yaml, then environment overrides. A missing file is
// fine; every setting has a default or an env var.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "web/dist"
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 30
	}
	if c.Server.RatePerSecond == 0 {
		c.Server.RatePerSecond = 5
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8000
	}
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:" + strconv.Itoa(c.Backend.Port)
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 60 * time.Second
	}
	c.Analyzer.Mode = strings.ToLower(strings.TrimSpace(c.Analyzer.Mode))
	if c.Analyzer.Mode == "" {
		c.Analyzer.Mode = ModeBackend
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 10 << 20
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = 5432
		default:
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "medassist-uploads"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Analyzer.Mode {
	case ModeBackend:
	case ModeOpenAI, ModeHybrid:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("analyzer mode %q needs OPENAI_API_KEY", c.Analyzer.Mode)
		}
	default:
		return fmt.Errorf("unknown analyzer mode %q (backend, openai, hybrid)", c.Analyzer.Mode)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q (mysql, postgres)", c.Database.Driver)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// DSN picks the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}

func (c *Config) DatabaseEnabled() bool { return c.Database.Driver != "" }

func (c *Config) MinioEnabled() bool { return c.Minio.Endpoint != "" }
