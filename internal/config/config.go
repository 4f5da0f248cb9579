package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Storage       StorageConfig       `json:"storage"`
	Signing       SigningConfig       `json:"signing"`
	Notifications NotificationsConfig `json:"notifications"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig configures the object store buckets and client.
type StorageConfig struct {
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	DocumentBucket  string `json:"document_bucket"`
	// ForensicBucket receives raw signature containers kept for audit.
	ForensicBucket string `json:"forensic_bucket"`
}

// SigningConfig configures the co-signing core.
type SigningConfig struct {
	// DefaultMinQuorumPercent applies when a template enables quorum but
	// does not set its own threshold.
	DefaultMinQuorumPercent float64 `json:"default_min_quorum_percent"`
	// ManifestIncludesData embeds document data into manifest artifacts.
	ManifestIncludesData bool          `json:"manifest_includes_data"`
	ProviderTimeout      time.Duration `json:"provider_timeout"`
	StorageTimeout       time.Duration `json:"storage_timeout"`
}

// NotificationsConfig configures delivery channels.
type NotificationsConfig struct {
	EmailSender       string `json:"email_sender"`
	BroadcastTopicARN string `json:"broadcast_topic_arn"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "signing_portal",
			SSLMode: "disable",
		},
		Storage: StorageConfig{
			Region:         "eu-central-1",
			DocumentBucket: "signing-portal-docs",
			ForensicBucket: "signing-portal-forensic",
		},
		Signing: SigningConfig{
			DefaultMinQuorumPercent: 100,
			ProviderTimeout:         15 * time.Second,
			StorageTimeout:          30 * time.Second,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if bucket := os.Getenv("STORAGE_DOCUMENT_BUCKET"); bucket != "" {
		config.Storage.DocumentBucket = bucket
	}
	if bucket := os.Getenv("STORAGE_FORENSIC_BUCKET"); bucket != "" {
		config.Storage.ForensicBucket = bucket
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if sender := os.Getenv("NOTIFICATIONS_EMAIL_SENDER"); sender != "" {
		config.Notifications.EmailSender = sender
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
