package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
	Verification  VerificationConfig  `json:"verification"`
	Sweeper       SweeperConfig       `json:"sweeper"`
	AWS           AWSConfig           `json:"aws"`
	Storage       StorageConfig       `json:"storage"`
	Notifications NotificationsConfig `json:"notifications"`
	Payments      PaymentsConfig      `json:"payments"`
	Analysis      AnalysisConfig      `json:"analysis"`
}

// Duration accepts either a Go duration string ("15m") or nanoseconds
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	IdleTimeout     Duration `json:"idle_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration. Driver "memory" keeps
// everything in process and needs no connection settings.
type DatabaseConfig struct {
	Driver         string   `json:"driver"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	User           string   `json:"user"`
	Password       string   `json:"password"`
	DBName         string   `json:"db_name"`
	SSLMode        string   `json:"ssl_mode"`
	MaxConnections int      `json:"max_connections"`
	MaxIdleConns   int      `json:"max_idle_conns"`
	MaxLifetime    Duration `json:"max_lifetime"`
	AutoMigrate    bool     `json:"auto_migrate"`
}

type SecurityConfig struct {
	JWTSecret string   `json:"jwt_secret"`
	JWTIssuer string   `json:"jwt_issuer"`
	TokenTTL  Duration `json:"token_ttl"`
	// DevTokens exposes POST /auth/token for local testing
	DevTokens bool `json:"dev_tokens"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// VerificationConfig is the verification policy
type VerificationConfig struct {
	FeeAmount           float64  `json:"fee_amount"`
	Currency            string   `json:"currency"`
	AnalysisTimeout     Duration `json:"analysis_timeout"`
	MaxAnalysisAttempts int      `json:"max_analysis_attempts"`
	MediumThreshold     float64  `json:"medium_threshold"`
	HighThreshold       float64  `json:"high_threshold"`
	HighCrackCount      int      `json:"high_crack_count"`
	MinConfidence       float64  `json:"min_confidence"`
}

type SweeperConfig struct {
	Enabled    bool     `json:"enabled"`
	Schedule   string   `json:"schedule"`
	BatchSize  int      `json:"batch_size"`
	RunTimeout Duration `json:"run_timeout"`
}

type AWSConfig struct {
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
}

// StorageConfig selects the object store. Driver is "s3" or "memory".
type StorageConfig struct {
	Driver        string `json:"driver"`
	Bucket        string `json:"bucket"`
	Endpoint      string `json:"endpoint"`
	UsePathStyle  bool   `json:"use_path_style"`
	PublicBaseURL string `json:"public_base_url"`
	MaxFileSize   int64  `json:"max_file_size"`
}

type NotificationsConfig struct {
	SNSTopicARN     string   `json:"sns_topic_arn"`
	SESFromAddress  string   `json:"ses_from_address"`
	DeliveryTimeout Duration `json:"delivery_timeout"`
}

// PaymentsConfig selects the simulated gateway mode: "instant" or "deferred"
type PaymentsConfig struct {
	Mode string `json:"mode"`
}

// AnalysisConfig points at the image analysis service. Without a URL
// results only arrive through the system callback.
type AnalysisConfig struct {
	URL     string   `json:"url"`
	Timeout Duration `json:"timeout"`
}

// Default returns the configuration used when no file or env overrides apply
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "listing_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    Duration(30 * time.Minute),
			AutoMigrate:    true,
		},
		Security: SecurityConfig{
			JWTIssuer: "listing-portal",
			TokenTTL:  Duration(24 * time.Hour),
		},
		Logging: LoggingConfig{Level: "info"},
		Verification: VerificationConfig{
			FeeAmount:           1000,
			Currency:            "INR",
			AnalysisTimeout:     Duration(15 * time.Minute),
			MaxAnalysisAttempts: 3,
			MediumThreshold:     0.15,
			HighThreshold:       0.25,
			HighCrackCount:      3,
			MinConfidence:       70,
		},
		Sweeper: SweeperConfig{
			Enabled:    true,
			Schedule:   "0 * * * * *",
			BatchSize:  100,
			RunTimeout: Duration(30 * time.Second),
		},
		AWS: AWSConfig{Region: "ap-south-1"},
		Storage: StorageConfig{
			Driver:      "memory",
			MaxFileSize: 10 << 20,
		},
		Notifications: NotificationsConfig{DeliveryTimeout: Duration(30 * time.Second)},
		Payments:      PaymentsConfig{Mode: "instant"},
		Analysis:      AnalysisConfig{Timeout: Duration(2 * time.Minute)},
	}
}

// LoadConfig loads configuration from a .env file, the JSON file at
// configPath and environment variables, in increasing precedence.
// A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("SERVER_HOST", &config.Server.Host)
	setInt("SERVER_PORT", &config.Server.Port)
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	setString("DATABASE_DRIVER", &config.Database.Driver)
	setString("DATABASE_HOST", &config.Database.Host)
	setInt("DATABASE_PORT", &config.Database.Port)
	setString("DATABASE_USER", &config.Database.User)
	setString("DATABASE_PASSWORD", &config.Database.Password)
	setString("DATABASE_DBNAME", &config.Database.DBName)
	setString("DATABASE_SSLMODE", &config.Database.SSLMode)

	setString("JWT_SECRET", &config.Security.JWTSecret)
	setBool("DEV_TOKENS", &config.Security.DevTokens)
	setString("LOG_LEVEL", &config.Logging.Level)
	setBool("LOG_DEVELOPMENT", &config.Logging.Development)

	if fee := os.Getenv("VERIFICATION_FEE"); fee != "" {
		if f, err := strconv.ParseFloat(fee, 64); err == nil {
			config.Verification.FeeAmount = f
		}
	}
	setBool("SWEEPER_ENABLED", &config.Sweeper.Enabled)

	setString("AWS_REGION", &config.AWS.Region)
	setString("AWS_ACCESS_KEY_ID", &config.AWS.AccessKeyID)
	setString("AWS_SECRET_ACCESS_KEY", &config.AWS.SecretAccessKey)
	setString("AWS_SESSION_TOKEN", &config.AWS.SessionToken)

	setString("STORAGE_DRIVER", &config.Storage.Driver)
	setString("STORAGE_BUCKET", &config.Storage.Bucket)
	setString("STORAGE_ENDPOINT", &config.Storage.Endpoint)
	setString("SNS_TOPIC_ARN", &config.Notifications.SNSTopicARN)
	setString("SES_FROM_ADDRESS", &config.Notifications.SESFromAddress)
	setString("PAYMENTS_MODE", &config.Payments.Mode)
	setString("ANALYSIS_URL", &config.Analysis.URL)
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var problems []string
	if c.Security.JWTSecret == "" {
		problems = append(problems, "security.jwt_secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be postgres or memory", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required for the s3 driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q must be s3 or memory", c.Storage.Driver))
	}
	switch c.Payments.Mode {
	case "instant", "deferred":
	default:
		problems = append(problems, fmt.Sprintf("payments.mode %q must be instant or deferred", c.Payments.Mode))
	}
	if c.Verification.FeeAmount <= 0 {
		problems = append(problems, "verification.fee_amount must be positive")
	}
	if c.Verification.HighThreshold < c.Verification.MediumThreshold {
		problems = append(problems, "verification.high_threshold must not be below medium_threshold")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
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
