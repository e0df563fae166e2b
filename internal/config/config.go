package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default health server settings
	DefaultHealthHost = "localhost"
	DefaultHealthPort = 3000

	// Default MCP transport settings
	DefaultMCPTransport = TransportStdio
	DefaultMCPHost      = "0.0.0.0"
	DefaultMCPPort      = 8000

	// Default tunnel settings
	DefaultSSHPort        = 22
	DefaultSSHConnectWait = 10 * time.Second
	DefaultKeepaliveEvery = 30 * time.Second

	// Default MongoDB settings
	DefaultMongoPort              = 27017
	DefaultMongoAuthDB            = "admin"
	DefaultMaxPoolSize            = 5
	DefaultConnectTimeout         = 10 * time.Second
	DefaultServerSelectionTimeout = 10 * time.Second
	DefaultSocketTimeout          = 30 * time.Second
)

// Supported MCP transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all configuration for the MongoDB MCP server.
type Config struct {
	SSH    SSHConfig
	Mongo  MongoConfig
	MCP    MCPConfig
	Health HealthConfig
	Logger LoggerConfig
}

// SSHConfig describes the SSH hop in front of the database's private network.
type SSHConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	// EnableLegacyAlgorithms extends the negotiated algorithm set with
	// older key exchanges and ciphers for hosts that never saw an upgrade.
	EnableLegacyAlgorithms bool
}

// MongoConfig describes the database behind the tunnel.
type MongoConfig struct {
	Host                   string
	Port                   int
	Username               string
	Password               string
	AuthDB                 string
	ReplicaSet             string
	MaxPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

// MCPConfig selects the serving transport and its bind address.
type MCPConfig struct {
	Transport string
	Host      string
	Port      int
}

// HealthConfig holds the HTTP health endpoint settings.
type HealthConfig struct {
	Host string
	Port int
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string
	Format     string
	Service    string
	Version    string
	Dir        string
	MaxSizeMB  int
	MaxBackups int
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []string

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	if len(ve) == 1 {
		return ve[0]
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(ve, "; "))
}

// FileConfig represents configuration loaded from YAML files
type FileConfig struct {
	SSH    FileSSHConfig    `yaml:"ssh"`
	Mongo  FileMongoConfig  `yaml:"mongodb"`
	MCP    FileMCPConfig    `yaml:"mcp"`
	Logger FileLoggerConfig `yaml:"logger"`
}

type FileSSHConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ConnectTimeout    string `yaml:"connect_timeout"`
	KeepaliveInterval string `yaml:"keepalive_interval"`
}

type FileMongoConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	AuthDB     string `yaml:"auth_db"`
	ReplicaSet string `yaml:"replica_set"`
}

type FileMCPConfig struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

type FileLoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// loadConfigFile attempts to load configuration from a YAML file
func loadConfigFile() (*FileConfig, error) {
	configPath := getEnv("MCP_CONFIG_FILE", "")
	if configPath == "" {
		candidates := []string{
			"configs/development.yaml",
			"configs/production.yaml",
			"configs/docker.yaml",
		}

		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
	}

	if configPath == "" {
		return nil, nil // No config file found, not an error
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var fileConfig FileConfig
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return &fileConfig, nil
}

// mergeFileConfig merges file configuration with the base config; environment
// variables keep precedence over file values.
func mergeFileConfig(base *Config, file *FileConfig) *Config {
	if file == nil {
		return base
	}

	result := *base

	if file.SSH.Host != "" && os.Getenv("SSH_HOST") == "" {
		result.SSH.Host = file.SSH.Host
	}
	if file.SSH.Port != 0 && os.Getenv("SSH_PORT") == "" {
		result.SSH.Port = file.SSH.Port
	}
	if file.SSH.ConnectTimeout != "" && os.Getenv("SSH_CONNECT_TIMEOUT") == "" {
		if duration, err := time.ParseDuration(file.SSH.ConnectTimeout); err == nil {
			result.SSH.ConnectTimeout = duration
		}
	}
	if file.SSH.KeepaliveInterval != "" && os.Getenv("SSH_KEEPALIVE_INTERVAL") == "" {
		if duration, err := time.ParseDuration(file.SSH.KeepaliveInterval); err == nil {
			result.SSH.KeepaliveInterval = duration
		}
	}

	if file.Mongo.Host != "" && os.Getenv("MONGODB_HOST") == "" {
		result.Mongo.Host = file.Mongo.Host
	}
	if file.Mongo.Port != 0 && os.Getenv("MONGODB_PORT") == "" {
		result.Mongo.Port = file.Mongo.Port
	}
	if file.Mongo.AuthDB != "" && os.Getenv("MONGODB_AUTH_DB") == "" {
		result.Mongo.AuthDB = file.Mongo.AuthDB
	}
	if file.Mongo.ReplicaSet != "" && os.Getenv("REPLICA_SET") == "" {
		result.Mongo.ReplicaSet = file.Mongo.ReplicaSet
	}

	if file.MCP.Transport != "" && os.Getenv("MCP_TRANSPORT") == "" {
		result.MCP.Transport = file.MCP.Transport
	}
	if file.MCP.Host != "" && os.Getenv("MCP_SERVER_HOST") == "" {
		result.MCP.Host = file.MCP.Host
	}
	if file.MCP.Port != 0 && os.Getenv("MCP_SERVER_PORT") == "" {
		result.MCP.Port = file.MCP.Port
	}

	if file.Logger.Level != "" && os.Getenv("LOG_LEVEL") == "" {
		result.Logger.Level = file.Logger.Level
	}
	if file.Logger.Format != "" && os.Getenv("LOG_FORMAT") == "" {
		result.Logger.Format = file.Logger.Format
	}
	if file.Logger.Dir != "" && os.Getenv("LOG_DIR") == "" {
		result.Logger.Dir = file.Logger.Dir
	}

	return &result
}

// Load loads configuration from environment variables and files with defaults.
// Credentials come from the secret resolver; every missing required credential
// is reported in a single error.
func Load() (*Config, error) {
	secrets, err := requiredSecrets(
		"SSH_USERNAME",
		"SSH_PASSWORD",
		"MONGODB_USERNAME",
		"MONGODB_PASSWORD",
	)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SSH: SSHConfig{
			Host:                   getEnv("SSH_HOST", ""),
			Port:                   getEnvInt("SSH_PORT", DefaultSSHPort),
			Username:               secrets["SSH_USERNAME"],
			Password:               secrets["SSH_PASSWORD"],
			ConnectTimeout:         getEnvDuration("SSH_CONNECT_TIMEOUT", DefaultSSHConnectWait),
			KeepaliveInterval:      getEnvDuration("SSH_KEEPALIVE_INTERVAL", DefaultKeepaliveEvery),
			EnableLegacyAlgorithms: getEnvBool("SSH_ENABLE_LEGACY_ALGORITHMS", false),
		},
		Mongo: MongoConfig{
			Host:                   getEnv("MONGODB_HOST", ""),
			Port:                   getEnvInt("MONGODB_PORT", DefaultMongoPort),
			Username:               secrets["MONGODB_USERNAME"],
			Password:               secrets["MONGODB_PASSWORD"],
			AuthDB:                 getEnv("MONGODB_AUTH_DB", DefaultMongoAuthDB),
			ReplicaSet:             getEnv("REPLICA_SET", ""),
			MaxPoolSize:            uint64(getEnvInt("MAX_POOL_SIZE", DefaultMaxPoolSize)),
			ConnectTimeout:         getEnvDuration("CONNECT_TIMEOUT", DefaultConnectTimeout),
			ServerSelectionTimeout: getEnvDuration("SERVER_SELECTION_TIMEOUT", DefaultServerSelectionTimeout),
			SocketTimeout:          getEnvDuration("SOCKET_TIMEOUT", DefaultSocketTimeout),
		},
		MCP: MCPConfig{
			Transport: getEnv("MCP_TRANSPORT", DefaultMCPTransport),
			Host:      getEnv("MCP_SERVER_HOST", DefaultMCPHost),
			Port:      getEnvInt("MCP_SERVER_PORT", DefaultMCPPort),
		},
		Health: HealthConfig{
			Host: getEnv("HEALTH_HOST", DefaultHealthHost),
			Port: getEnvInt("HEALTH_PORT", DefaultHealthPort),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Service:    getEnv("MCP_SERVICE_NAME", "mongodb-mcp-server"),
			Version:    getEnv("MCP_VERSION", "dev"),
			Dir:        getEnv("LOG_DIR", "/tmp/mcp-logs"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 5),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 2),
		},
	}

	fileConfig, err := loadConfigFile()
	if err != nil {
		// Env vars might still be sufficient; the logger is not up yet.
		fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v\n", err)
	}

	cfg = mergeFileConfig(cfg, fileConfig)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration, collecting every problem.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.SSH.Host == "" {
		errors = append(errors, "SSH host cannot be empty (hint: set SSH_HOST to the bastion in front of the database)")
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		errors = append(errors, fmt.Sprintf("SSH port must be between 1 and 65535, got %d", c.SSH.Port))
	}
	if c.SSH.ConnectTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("SSH connect timeout must be positive, got %v", c.SSH.ConnectTimeout))
	}
	if c.SSH.KeepaliveInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SSH keepalive interval must be positive, got %v (hint: use 30s)", c.SSH.KeepaliveInterval))
	}

	if c.Mongo.Host == "" {
		errors = append(errors, "MongoDB host cannot be empty (hint: set MONGODB_HOST to the address reachable from the SSH host)")
	}
	if c.Mongo.Port < 1 || c.Mongo.Port > 65535 {
		errors = append(errors, fmt.Sprintf("MongoDB port must be between 1 and 65535, got %d", c.Mongo.Port))
	}
	if c.Mongo.MaxPoolSize < 1 {
		errors = append(errors, fmt.Sprintf("MongoDB pool size must be positive, got %d (hint: 5 is plenty for a single tunnel)", c.Mongo.MaxPoolSize))
	}
	if c.Mongo.ConnectTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoDB connect timeout must be positive, got %v", c.Mongo.ConnectTimeout))
	}
	if c.Mongo.ServerSelectionTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoDB server selection timeout must be positive, got %v", c.Mongo.ServerSelectionTimeout))
	}
	if c.Mongo.SocketTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoDB socket timeout must be positive, got %v", c.Mongo.SocketTimeout))
	}

	switch c.MCP.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errors = append(errors, fmt.Sprintf("invalid MCP transport: %s (valid options: stdio, http)", c.MCP.Transport))
	}
	if c.MCP.Port < 1 || c.MCP.Port > 65535 {
		errors = append(errors, fmt.Sprintf("MCP server port must be between 1 and 65535, got %d", c.MCP.Port))
	}

	if c.Health.Host == "" {
		errors = append(errors, "health server host cannot be empty (hint: use 'localhost' for local development)")
	}
	if c.Health.Port < 1 || c.Health.Port > 65535 {
		errors = append(errors, fmt.Sprintf("health server port must be between 1 and 65535, got %d", c.Health.Port))
	}

	normalizedLevel := strings.ToLower(c.Logger.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[normalizedLevel] {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (valid options: debug, info, warn, error)", c.Logger.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logger.Format] {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (valid options: json, text)", c.Logger.Format))
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as integer with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool gets environment variable as boolean with default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
