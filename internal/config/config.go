package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Contact  ContactConfig  `yaml:"contact"`
	Filters  FiltersConfig  `yaml:"filters"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port         string   `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
	Mode         string   `yaml:"mode"`
}

// SourceConfig selects where listings come from
type SourceConfig struct {
	// Kind is one of static, api, mysql, postgres, meilisearch
	Kind           string `yaml:"kind"`
	File           string `yaml:"file"`
	APIURL         string `yaml:"api_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RefreshCron    string `yaml:"refresh_cron"`

	// Breaker settings for the api source
	FailureThreshold    int `yaml:"failure_threshold"`
	ResetTimeoutSeconds int `yaml:"reset_timeout_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
	Index   string `yaml:"index"`

	// ReindexOnRefresh pushes the catalog into the index after every refresh
	ReindexOnRefresh bool `yaml:"reindex_on_refresh"`
}

// ContactConfig selects and configures the contact form delivery
type ContactConfig struct {
	// Sink is one of http, amqp, sendgrid
	Sink           string          `yaml:"sink"`
	APIURL         string          `yaml:"api_url"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	AMQP           AMQPConfig      `yaml:"amqp"`
	Sendgrid       SendgridConfig  `yaml:"sendgrid"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// AMQPConfig contains RabbitMQ publishing settings
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// SendgridConfig contains email delivery settings
type SendgridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
	ToEmail   string `yaml:"to_email"`
	Sandbox   bool   `yaml:"sandbox"`
}

// RateLimitConfig contains per-client submission limits
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// FiltersConfig contains listing view settings
type FiltersConfig struct {
	ApplyDelayMillis int `yaml:"apply_delay_ms"`
	PageSize         int `yaml:"page_size"`
	FeaturedCount    int `yaml:"featured_count"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Color      bool   `yaml:"color"`
	FluentHost string `yaml:"fluent_host"`
	FluentPort int    `yaml:"fluent_port"`
	FluentTag  string `yaml:"fluent_tag"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8084",
			AllowOrigins: []string{"http://localhost:3000"},
			Mode:         "release",
		},
		Source: SourceConfig{
			Kind:                "static",
			File:                "data/properties.yaml",
			APIURL:              "http://localhost:8000",
			TimeoutSeconds:      10,
			RefreshCron:         "*/15 * * * *",
			FailureThreshold:    3,
			ResetTimeoutSeconds: 60,
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://meilisearch:7700",
				Index: "properties",
			},
		},
		Contact: ContactConfig{
			Sink:           "http",
			APIURL:         "http://localhost:8000/api/contact/",
			TimeoutSeconds: 10,
			AMQP: AMQPConfig{
				Exchange:   "site.contact",
				RoutingKey: "contact.submitted",
			},
			Sendgrid: SendgridConfig{
				FromName: "Morocco Estates",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 3,
				RequestsPerHour:   20,
				RequestsPerDay:    50,
			},
		},
		Filters: FiltersConfig{
			ApplyDelayMillis: 300,
			PageSize:         12,
			FeaturedCount:    3,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Color:     true,
			FluentTag: "real-estate-site",
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies environment overrides.
// A .env file in the working directory is read first when present.
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// applyEnv lets deployment environments override the file without editing it
func (c *Config) applyEnv() {
	c.Server.Port = GetEnv("PORT", c.Server.Port)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.AllowOrigins = strings.Split(origins, ",")
	}

	c.Source.Kind = GetEnv("SOURCE_KIND", c.Source.Kind)
	c.Source.File = GetEnv("SOURCE_FILE", c.Source.File)
	c.Source.APIURL = GetEnv("SOURCE_API_URL", c.Source.APIURL)
	c.Source.RefreshCron = GetEnv("SOURCE_REFRESH_CRON", c.Source.RefreshCron)

	c.Database.MySQL.Host = GetEnvOrConfig(c.Database.MySQL.Host, "MYSQL_HOST", "mysql")
	c.Database.MySQL.Port = getEnvAsInt("MYSQL_PORT", orInt(c.Database.MySQL.Port, 3306))
	c.Database.MySQL.User = GetEnvOrConfig(c.Database.MySQL.User, "MYSQL_USER", "realestate_user")
	c.Database.MySQL.Password = GetEnvOrConfig(c.Database.MySQL.Password, "MYSQL_PASSWORD", "")
	c.Database.MySQL.Database = GetEnvOrConfig(c.Database.MySQL.Database, "MYSQL_DATABASE", "realestate_db")

	c.Database.Postgres.Host = GetEnvOrConfig(c.Database.Postgres.Host, "DB_HOST", "db")
	c.Database.Postgres.Port = getEnvAsInt("DB_PORT", orInt(c.Database.Postgres.Port, 5432))
	c.Database.Postgres.User = GetEnvOrConfig(c.Database.Postgres.User, "DB_USER", "realestate_user")
	c.Database.Postgres.Password = GetEnvOrConfig(c.Database.Postgres.Password, "DB_PASSWORD", "")
	c.Database.Postgres.Database = GetEnvOrConfig(c.Database.Postgres.Database, "DB_NAME", "realestate_db")
	c.Database.Postgres.SSLMode = GetEnvOrConfig(c.Database.Postgres.SSLMode, "DB_SSLMODE", "disable")

	c.Search.Meilisearch.Enabled = getEnvAsBool("MEILISEARCH_ENABLED", c.Search.Meilisearch.Enabled)
	c.Search.Meilisearch.Host = GetEnv("MEILISEARCH_HOST", c.Search.Meilisearch.Host)
	c.Search.Meilisearch.APIKey = GetEnv("MEILISEARCH_KEY", c.Search.Meilisearch.APIKey)

	c.Contact.Sink = GetEnv("CONTACT_SINK", c.Contact.Sink)
	c.Contact.APIURL = GetEnv("CONTACT_API_URL", c.Contact.APIURL)
	c.Contact.AMQP.URL = GetEnv("RABBITMQ_URL", c.Contact.AMQP.URL)
	c.Contact.Sendgrid.APIKey = GetEnv("SENDGRID_API_KEY", c.Contact.Sendgrid.APIKey)
	c.Contact.Sendgrid.FromEmail = GetEnv("SENDGRID_FROM_EMAIL", c.Contact.Sendgrid.FromEmail)
	c.Contact.Sendgrid.ToEmail = GetEnv("SENDGRID_TO_EMAIL", c.Contact.Sendgrid.ToEmail)
	c.Contact.Sendgrid.Sandbox = getEnvAsBool("SENDGRID_SANDBOX", c.Contact.Sendgrid.Sandbox)

	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = GetEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.FluentHost = GetEnv("FLUENTBIT_HOST", c.Logging.FluentHost)
	c.Logging.FluentPort = getEnvAsInt("FLUENTBIT_PORT", orInt(c.Logging.FluentPort, 24224))
}

// GetTimeout returns the source request timeout as a duration
func (c *SourceConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetResetTimeout returns how long the api source breaker stays open
func (c *SourceConfig) GetResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutSeconds) * time.Second
}

// GetTimeout returns the contact delivery timeout as a duration
func (c *ContactConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetApplyDelay returns the cosmetic filter apply delay as a duration
func (c *FiltersConfig) GetApplyDelay() time.Duration {
	return time.Duration(c.ApplyDelayMillis) * time.Millisecond
}

// GetEnv returns the environment variable or the fallback when unset or empty
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvOrConfig prefers the config value, then the environment, then the default
func GetEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return GetEnv(envKey, defaultValue)
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
