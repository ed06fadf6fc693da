package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance so
// CLI flag bindings take part in resolution.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "AOS",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (AOS_*)
// 3. Project config (.aos.yaml in current directory)
// 4. User config (~/.config/aos/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".aos")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if l.configFile == "" {
			if err := l.readUserConfig(); err != nil {
				return nil, err
			}
		}
	}

	return l.decode()
}

// Reload re-reads the config file already in use, typically after a change
// notification, and decodes the result.
func (l *Loader) Reload() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// readUserConfig falls back to ~/.config/aos/config.yaml, whose base name
// differs from the project file.
func (l *Loader) readUserConfig() error {
	path, err := UserConfigPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("store.backend", StoreBackendFile)
	l.v.SetDefault("store.path", ".aos/runs")

	l.v.SetDefault("server.host", "localhost")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.cors", true)

	hello := DefaultHelloWorkflow()
	l.v.SetDefault("workflow.hello.models", hello.modelMaps())
	l.v.SetDefault("workflow.hello.tools", hello.toolMaps())
	l.v.SetDefault("workflow.hello.policy_decisions", hello.policyMaps())
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// UserConfigDir returns the directory holding the per-user config file.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "aos"), nil
}

// UserConfigPath returns the per-user config file path.
func UserConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
