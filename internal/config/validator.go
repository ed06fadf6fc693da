package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates the process-level configuration. The hello-workflow
// lists are not checked here: they are validated when a run is built.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateStore(&cfg.Store)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	if !logging.ValidLevel(cfg.Level) {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[strings.ToLower(cfg.Format)] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" {
		if !isValidPath(cfg.File) {
			v.addError("log.file", cfg.File, "invalid file path")
		} else if info, err := os.Stat(cfg.File); err == nil && info.IsDir() {
			v.addError("log.file", cfg.File, "is a directory")
		}
	}
}

// validateStore also checks the resolved location against the filesystem:
// the file backend needs a directory there, sqlite a regular file. A missing
// location is fine; the store creates it.
func (v *Validator) validateStore(cfg *StoreConfig) {
	backend := cfg.NormalizedBackend()
	knownBackend := backend == StoreBackendFile || backend == StoreBackendSQLite
	if !knownBackend {
		v.addError("store.backend", cfg.Backend, "must be one of: file, sqlite")
	}

	if strings.TrimSpace(cfg.Path) == "" {
		v.addError("store.path", cfg.Path, "required")
		return
	}
	if !isValidPath(cfg.Path) {
		v.addError("store.path", cfg.Path, "invalid path")
		return
	}
	if !knownBackend {
		return
	}

	info, err := os.Stat(cfg.ResolvedPath())
	if err != nil {
		return
	}
	switch {
	case backend == StoreBackendFile && !info.IsDir():
		v.addError("store.path", cfg.Path, "must be a directory for the file backend")
	case backend == StoreBackendSQLite && info.IsDir():
		v.addError("store.path", cfg.ResolvedPath(), "is a directory, expected a sqlite database file")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		v.addError("server.host", cfg.Host, "required")
	}
}

func isValidPath(path string) bool {
	if strings.ContainsRune(path, 0) {
		return false
	}
	return filepath.Clean(path) != ""
}
