package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tasktracker/internal/util"
)

// Storage backends accepted by storage.backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	StaticDir   string   `yaml:"static_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig controls log level and the rotating log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StorageConfig selects the backend and the acting owner.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	OwnerUserID int64  `yaml:"owner_user_id"`
	SeedDemo    bool   `yaml:"seed_demo"`
}

// DatabaseConfig holds the MySQL connection and pool settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// PoolMin 0 lets idle connections expire; PoolMax caps open connections.
	PoolMin  int    `yaml:"pool_min"`
	PoolMax  int    `yaml:"pool_max"`
}

// DefaultPaths are tried in order when no config file is given.
var DefaultPaths = []string{"etc/config.yaml", "/etc/tasktracker/config.yaml"}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 3001, CORSOrigins: []string{"*"}},
		Log:     LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Storage: StorageConfig{Backend: BackendSQLite, SQLitePath: "data/tracker.db", OwnerUserID: 1},
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    3306,
			User:    "root",
			Name:    "task_management",
			PoolMin: 0,
			PoolMax: 7,
		},
	}
}

// Load reads configFile (or the first readable default path), applies
// environment overrides and validates the result.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := DefaultPaths
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	util.OverrideString(&c.Log.Level, "LOG_LEVEL")
	util.OverrideString(&c.Log.File, "LOG_FILE")
	util.OverrideInt(&c.Server.Port, "PORT")
	util.OverrideString(&c.Server.StaticDir, "STATIC_DIR")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	util.OverrideString(&c.Storage.Backend, "STORAGE_BACKEND")
	util.OverrideString(&c.Storage.SQLitePath, "SQLITE_PATH")
	util.OverrideInt64(&c.Storage.OwnerUserID, "OWNER_USER_ID")
	util.OverrideBool(&c.Storage.SeedDemo, "SEED_DEMO")
	util.OverrideString(&c.Database.Host, "DB_HOST")
	util.OverrideInt(&c.Database.Port, "DB_PORT")
	util.OverrideString(&c.Database.User, "DB_USER")
	util.OverrideString(&c.Database.Password, "DB_PASSWORD")
	util.OverrideString(&c.Database.Name, "DB_NAME")
	util.OverrideInt(&c.Database.PoolMin, "DB_POOL_MIN")
	util.OverrideInt(&c.Database.PoolMax, "DB_POOL_MAX")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory, BackendMySQL:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.PoolMin < 0 || c.Database.PoolMax < 0 {
		return fmt.Errorf("pool bounds must not be negative")
	}
	if c.Database.PoolMax > 0 && c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("pool_min %d exceeds pool_max %d", c.Database.PoolMin, c.Database.PoolMax)
	}
	if c.Storage.OwnerUserID <= 0 {
		return fmt.Errorf("storage.owner_user_id must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
