package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	// 验证连接配置
	assert.Equal(t, "embedded", config.Connection.Driver)
	assert.Equal(t, "localhost", config.Connection.Host)
	assert.Equal(t, "test", config.Connection.Database)
	assert.Equal(t, "SYSTEM", config.Connection.Username)
	assert.Equal(t, "MANAGER", config.Connection.Password)
	assert.Equal(t, 8192, config.Connection.ReadBufferSize)

	// 验证日志配置
	assert.Equal(t, "info", config.Log.Level)

	// 验证内嵌引擎配置
	assert.Equal(t, "badger", config.Embedded.Store)
	assert.True(t, config.Embedded.InMemory)
	assert.True(t, config.Embedded.EmulateNewlineDefect)
	assert.Equal(t, []string{"test"}, config.Embedded.Databases)
	require.Len(t, config.Embedded.Users, 1)
	assert.Equal(t, "SYSTEM", config.Embedded.Users[0].Name)

	// 验证 MCP 配置
	assert.True(t, config.MCP.Enabled)
	assert.Equal(t, "127.0.0.1:5051", config.GetMCPAddress())

	assert.NoError(t, validateConfig(config))
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	config, err := LoadConfig("")

	assert.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "test", config.Connection.Database)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(map[string]interface{}{
		"connection": map[string]interface{}{
			"database": "library",
			"encoding": "windows-1251",
		},
		"embedded": map[string]interface{}{
			"store":     "sqlite",
			"in_memory": false,
			"data_dir":  "/var/lib/sedna-go",
		},
		"log": map[string]interface{}{
			"level": "debug",
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "library", config.Connection.Database)
	assert.Equal(t, "windows-1251", config.Connection.Encoding)
	// untouched fields keep their defaults
	assert.Equal(t, "SYSTEM", config.Connection.Username)
	assert.Equal(t, "sqlite", config.Embedded.Store)
	assert.Equal(t, "/var/lib/sedna-go", config.Embedded.DataDir)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"unknown store", func(c *Config) { c.Embedded.Store = "leveldb" }, "unknown embedded store"},
		{"disk without dir", func(c *Config) { c.Embedded.InMemory = false; c.Embedded.DataDir = "" }, "data_dir"},
		{"zero chunk", func(c *Config) { c.Embedded.ChunkSize = 0 }, "chunk size"},
		{"no users", func(c *Config) { c.Embedded.Users = nil }, "at least one user"},
		{"bad port", func(c *Config) { c.MCP.Port = 70000 }, "invalid MCP port"},
		{"bad http port", func(c *Config) { c.HTTPAPI.Enabled = true; c.HTTPAPI.Port = 0 }, "invalid HTTP API port"},
		{"negative buffer", func(c *Config) { c.Connection.ReadBufferSize = -1 }, "read buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateConfig_MCPDisabledIgnoresPort(t *testing.T) {
	config := DefaultConfig()
	config.MCP.Enabled = false
	config.MCP.Port = 0
	assert.NoError(t, validateConfig(config))
}

func TestLoadConfigOrDefault_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"connection":{"database":"fromenv"}}`), 0o644))
	t.Setenv(EnvConfigPath, path)

	config := LoadConfigOrDefault()
	assert.Equal(t, "fromenv", config.Connection.Database)
}

func TestLoadConfig_HTTPAPIAndSlowLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"embedded": {"slow_statement_ms": 250, "slow_log_size": 10},
		"http_api": {"enabled": true, "port": 6000, "clients": [{"name": "ci", "api_key": "k", "api_secret": "s", "enabled": true}]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250, config.Embedded.SlowStatementMs)
	assert.Equal(t, 10, config.Embedded.SlowLogSize)
	assert.True(t, config.HTTPAPI.Enabled)
	assert.Equal(t, "127.0.0.1:6000", config.GetHTTPAPIAddress())
	require.Len(t, config.HTTPAPI.Clients, 1)
	assert.Equal(t, "ci", config.HTTPAPI.Clients[0].Name)
}
