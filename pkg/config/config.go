package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "SEDNA_CONFIG"

// Config 应用程序配置
type Config struct {
	Connection ConnectionConfig `json:"connection"`
	Log        LogConfig        `json:"log"`
	Embedded   EmbeddedConfig   `json:"embedded"`
	MCP        MCPConfig        `json:"mcp"`
	HTTPAPI    HTTPAPIConfig    `json:"http_api"`
}

// ConnectionConfig 默认连接参数
type ConnectionConfig struct {
	Driver         string `json:"driver"`
	Host           string `json:"host"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Encoding       string `json:"encoding"`
	ReadBufferSize int    `json:"read_buffer_size"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `json:"level"`
	Timestamps bool   `json:"timestamps"`
}

// EmbeddedConfig configures the in-process engine.
type EmbeddedConfig struct {
	Store     string `json:"store"` // badger or sqlite
	DataDir   string `json:"data_dir"`
	InMemory  bool   `json:"in_memory"`
	ChunkSize int    `json:"chunk_size"`

	// EmulateNewlineDefect makes the engine prepend a newline to every result
	// item after the first, like the Sedna server does.
	EmulateNewlineDefect bool `json:"emulate_newline_defect"`

	// Statements running at least SlowStatementMs are kept in a slow log of
	// SlowLogSize entries.
	SlowStatementMs int `json:"slow_statement_ms"`
	SlowLogSize     int `json:"slow_log_size"`

	Databases []string    `json:"databases"`
	Users     []UserEntry `json:"users"`
}

// UserEntry is one account accepted by the embedded engine.
type UserEntry struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// MCPConfig MCP 服务配置
type MCPConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`

	// APIKey, when set, must be sent as "Authorization: Bearer <key>".
	APIKey string `json:"api_key"`
}

// HTTPAPIConfig HTTP API 服务配置
type HTTPAPIConfig struct {
	Enabled bool        `json:"enabled"`
	Host    string      `json:"host"`
	Port    int         `json:"port"`
	Clients []APIClient `json:"clients"`
}

// APIClient is one HTTP API caller. Requests are signed with APISecret.
type APIClient struct {
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Driver:         "embedded",
			Host:           "localhost",
			Database:       "test",
			Username:       "SYSTEM",
			Password:       "MANAGER",
			ReadBufferSize: 8192,
		},
		Log: LogConfig{
			Level: "info",
		},
		Embedded: EmbeddedConfig{
			Store:                "badger",
			InMemory:             true,
			ChunkSize:            8192,
			EmulateNewlineDefect: true,
			SlowStatementMs:      1000,
			SlowLogSize:          100,
			Databases:            []string{"test"},
			Users:                []UserEntry{{Name: "SYSTEM", Password: "MANAGER"}},
		},
		MCP: MCPConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    5051,
		},
		HTTPAPI: HTTPAPIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    5052,
		},
	}
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件
func LoadConfigOrDefault() *Config {
	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/sedna-go/config.json",
	}

	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	return DefaultConfig()
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Connection.ReadBufferSize < 0 {
		return fmt.Errorf("read buffer size must not be negative")
	}

	switch config.Embedded.Store {
	case "badger", "sqlite":
	default:
		return fmt.Errorf("unknown embedded store: %q", config.Embedded.Store)
	}

	if !config.Embedded.InMemory && config.Embedded.DataDir == "" {
		return fmt.Errorf("embedded data_dir is required unless in_memory is set")
	}

	if config.Embedded.ChunkSize < 1 {
		return fmt.Errorf("embedded chunk size must be greater than 0")
	}

	if len(config.Embedded.Users) == 0 {
		return fmt.Errorf("embedded engine needs at least one user")
	}

	if config.MCP.Enabled && (config.MCP.Port < 1 || config.MCP.Port > 65535) {
		return fmt.Errorf("invalid MCP port: %d", config.MCP.Port)
	}

	if config.HTTPAPI.Enabled && (config.HTTPAPI.Port < 1 || config.HTTPAPI.Port > 65535) {
		return fmt.Errorf("invalid HTTP API port: %d", config.HTTPAPI.Port)
	}

	return nil
}

// GetMCPAddress 返回 MCP 监听地址
func (c *Config) GetMCPAddress() string {
	return fmt.Sprintf("%s:%d", c.MCP.Host, c.MCP.Port)
}

// GetHTTPAPIAddress 返回 HTTP API 监听地址
func (c *Config) GetHTTPAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.HTTPAPI.Host, c.HTTPAPI.Port)
}
