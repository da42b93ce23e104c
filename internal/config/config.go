package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Azure     AzureConfig
	Security  SecurityConfig
	Diagnosis DiagnosisConfig
	Intake    IntakeConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds the audit database configuration. An empty URL
// disables the database; audit entries then only go to the log.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Storage StorageConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	Temperature float64
	TopP        float64
	MaxTokens   int64
}

// StorageConfig holds Azure Blob Storage configuration for the intake archive
type StorageConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	BlobEndpoint     string
	IntakeContainer  string
}

// SecurityConfig holds the archive encryption key (base64, 32 bytes)
type SecurityConfig struct {
	ArchiveKey string
}

// DiagnosisConfig configures the client the intake controller submits with
type DiagnosisConfig struct {
	BaseURL string
	Timeout time.Duration
}

// IntakeConfig configures the in-memory assessment sessions
type IntakeConfig struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Diagnosis.BaseURL == "" {
		cfg.Diagnosis.BaseURL = "http://127.0.0.1:" + cfg.Server.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.allowedorigins", []string{"*"})

	// Database defaults
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)
	v.SetDefault("database.automigrate", true)

	// Azure OpenAI sampling
	v.SetDefault("azure.openai.temperature", 1.0)
	v.SetDefault("azure.openai.topp", 1.0)
	v.SetDefault("azure.openai.maxtokens", 4096)

	// Azure Storage defaults
	v.SetDefault("azure.storage.intakecontainer", "patient-intakes")

	// Diagnosis client defaults
	v.SetDefault("diagnosis.timeout", 2*time.Minute)

	// Intake session defaults
	v.SetDefault("intake.sessionttl", 30*time.Minute)
	v.SetDefault("intake.sweepinterval", time.Minute)
	v.SetDefault("intake.maxsessions", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.allowedorigins", "CORS_ALLOWED_ORIGINS")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.automigrate", "DATABASE_AUTO_MIGRATE")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure.openai.temperature", "AZURE_OPENAI_TEMPERATURE")
	v.BindEnv("azure.openai.topp", "AZURE_OPENAI_TOP_P")
	v.BindEnv("azure.openai.maxtokens", "AZURE_OPENAI_MAX_TOKENS")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.connectionstring", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("azure.storage.blobendpoint", "AZURE_STORAGE_BLOB_ENDPOINT")
	v.BindEnv("azure.storage.intakecontainer", "AZURE_STORAGE_INTAKE_CONTAINER")

	// Security
	v.BindEnv("security.archivekey", "ARCHIVE_ENCRYPTION_KEY")

	// Diagnosis client
	v.BindEnv("diagnosis.baseurl", "DIAGNOSIS_BASE_URL")
	v.BindEnv("diagnosis.timeout", "DIAGNOSIS_TIMEOUT")

	// Intake sessions
	v.BindEnv("intake.sessionttl", "INTAKE_SESSION_TTL")
	v.BindEnv("intake.sweepinterval", "INTAKE_SWEEP_INTERVAL")
	v.BindEnv("intake.maxsessions", "INTAKE_MAX_SESSIONS")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Azure.OpenAI.Endpoint == "" {
		return fmt.Errorf("azure.openai.endpoint is required")
	}

	if c.Azure.OpenAI.APIKey == "" {
		return fmt.Errorf("azure.openai.apikey is required")
	}

	if c.Azure.OpenAI.Deployment == "" {
		return fmt.Errorf("azure.openai.deployment is required")
	}

	if c.Azure.OpenAI.Temperature < 0 || c.Azure.OpenAI.Temperature > 2 {
		return fmt.Errorf("azure.openai.temperature must be between 0 and 2")
	}

	if c.Azure.OpenAI.TopP <= 0 || c.Azure.OpenAI.TopP > 1 {
		return fmt.Errorf("azure.openai.topp must be in (0, 1]")
	}

	if c.Azure.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("azure.openai.maxtokens must be positive")
	}

	if c.Azure.Storage.AccountName != "" && c.Azure.Storage.AccountKey == "" {
		return fmt.Errorf("azure.storage.accountkey is required when an account name is set")
	}

	if u, err := url.Parse(c.Diagnosis.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("diagnosis.baseurl must be an absolute URL")
	}

	if c.Diagnosis.Timeout <= 0 {
		return fmt.Errorf("diagnosis.timeout must be positive")
	}

	if c.Intake.SessionTTL <= 0 || c.Intake.SweepInterval <= 0 {
		return fmt.Errorf("intake.sessionttl and intake.sweepinterval must be positive")
	}

	if c.Intake.MaxSessions <= 0 {
		return fmt.Errorf("intake.maxsessions must be positive")
	}

	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowedorigins must list at least one origin")
	}

	return nil
}

// StorageConfigured reports whether archive credentials are present
func (c *Config) StorageConfigured() bool {
	return c.Azure.Storage.ConnectionString != "" || c.Azure.Storage.AccountName != ""
}
