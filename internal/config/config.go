package config

import (
	"path/filepath"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// StoreConfig selects where recorded runs are persisted.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // file, sqlite
	Path    string `mapstructure:"path" yaml:"path"`
}

// NormalizedBackend returns the backend name in canonical form; empty means
// the file backend.
func (s StoreConfig) NormalizedBackend() string {
	b := strings.ToLower(strings.TrimSpace(s.Backend))
	if b == "" {
		return StoreBackendFile
	}
	return b
}

// ResolvedPath returns the on-disk location for the backend: the run
// directory for file, the database file for sqlite. A sqlite path without a
// ".db" extension gets one.
func (s StoreConfig) ResolvedPath() string {
	if s.NormalizedBackend() == StoreBackendSQLite && !strings.HasSuffix(s.Path, ".db") {
		return strings.TrimSuffix(s.Path, filepath.Ext(s.Path)) + ".db"
	}
	return s.Path
}

// ServerConfig configures the HTTP server started by `aos serve`.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	CORS bool   `mapstructure:"cors" yaml:"cors"`
}

// WorkflowConfig groups per-workflow settings.
type WorkflowConfig struct {
	Hello HelloWorkflowConfig `mapstructure:"hello" yaml:"hello"`
}

// Store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)
