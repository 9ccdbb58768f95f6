// Package config holds runtime settings for the coordinator and agent
// processes — listen port, socket timeouts, log directory and rotation —
// distinct from the test-plan file parsed by internal/plan. It is a
// key=value line file with typed getters and a process-wide pointer,
// reloaded in place by a file watcher (see watcher.go) rather than read
// once at startup.
package config

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Config holds runtime configuration values.
type Config struct {
	mu       sync.RWMutex
	props    map[string]string
	filePath string
}

var globalConfig atomic.Pointer[Config]

// Get returns the global config instance.
func Get() *Config {
	return globalConfig.Load()
}

// Load reads a runtime config file and returns a new Config.
// If the file does not exist, a Config with empty props (defaults) is
// returned without an error, so coordinator/agent can start unconfigured.
func Load(filePath string) (*Config, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}

	cfg := &Config{
		props:    make(map[string]string),
		filePath: absPath,
	}

	if _, err := os.Stat(absPath); err != nil {
		globalConfig.Store(cfg)
		return cfg, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		slog.Warn("config file open failed, using defaults", "path", absPath, "error", err)
		globalConfig.Store(cfg)
		return cfg, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key != "" {
			cfg.props[key] = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	globalConfig.Store(cfg)
	slog.Info("config loaded", "path", absPath, "properties", len(cfg.props))
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Generic typed getters
// ---------------------------------------------------------------------------

// GetString returns a config value, or the default if not set.
func (c *Config) GetString(key, defaultVal string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.props[key]; ok {
		return v
	}
	return defaultVal
}

// GetInt returns an integer config value.
func (c *Config) GetInt(key string, defaultVal int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.props[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBool returns a boolean config value.
// Truthy values: "true", "1", "yes", "on" (case-insensitive).
func (c *Config) GetBool(key string, defaultVal bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.props[key]; ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultVal
}

// ---------------------------------------------------------------------------
// Convenience accessors for well-known configuration keys
// ---------------------------------------------------------------------------

// AgentListenPort returns agent_listen_port (default 16192, per spec §6).
func (c *Config) AgentListenPort() int {
	return c.GetInt("agent_listen_port", 16192)
}

// SocketTimeoutSeconds returns socket_timeout_seconds (default 60, per
// spec §6). The coordinator does not read it: its connect/read timeout
// while preparing agents is the fixed connectTimeout in
// internal/coordinator.
func (c *Config) SocketTimeoutSeconds() int {
	return c.GetInt("socket_timeout_seconds", 60)
}

// LogDir returns log_dir (default "./logs").
func (c *Config) LogDir() string {
	return c.GetString("log_dir", "./logs")
}

// LogRotationEnabled returns log_rotation_enabled (default true).
func (c *Config) LogRotationEnabled() bool {
	return c.GetBool("log_rotation_enabled", true)
}

// LogKeepDays returns log_keep_days (default 14).
func (c *Config) LogKeepDays() int {
	return c.GetInt("log_keep_days", 14)
}

// LogArchiveEnabled returns log_archive_enabled — whether rotated-out log
// files are zstd-compressed before they age out (default true).
func (c *Config) LogArchiveEnabled() bool {
	return c.GetBool("log_archive_enabled", true)
}

// IsDebug returns debug (default false).
func (c *Config) IsDebug() bool {
	return c.GetBool("debug", false)
}

// FilePath returns the absolute path to the config file.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

