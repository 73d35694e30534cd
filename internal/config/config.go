// Package config loads jcg settings from file, environment and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigName is the configuration file name without extension.
	DefaultConfigName = ".jcg"
	// DefaultConfigType is the configuration file type.
	DefaultConfigType = "yaml"
)

// Config holds all jcg settings. Command line flags override these.
type Config struct {
	// Database is the SQLite fact database path.
	Database string `mapstructure:"database"`
	// Language selects the front end: auto, java or go.
	Language string `mapstructure:"language"`
	// Exclude lists directory names skipped during source discovery.
	Exclude []string `mapstructure:"exclude"`

	Stack StackConfig `mapstructure:"stack"`
	Watch WatchConfig `mapstructure:"watch"`
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
}

// StackConfig holds call stack exploration settings.
type StackConfig struct {
	// Resolve selects target matching: name or signature.
	Resolve string `mapstructure:"resolve"`
	// MaxDepth bounds the expansion depth; 0 means unlimited.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxNodes bounds the tree size; 0 means unlimited.
	MaxNodes int `mapstructure:"max_nodes"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// DebounceMs is the delay before changed files trigger reanalysis.
	DebounceMs int `mapstructure:"debounce_ms"`
}

// Neo4jConfig holds graph export connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Load reads the configuration from .jcg.yaml in the working directory or
// $HOME/.config/jcg, then applies JCG_* environment variables. A missing
// config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType(DefaultConfigType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "jcg"))
	}

	v.SetEnvPrefix("JCG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", ".jcg.db")
	v.SetDefault("language", "auto")
	v.SetDefault("exclude", []string{})
	v.SetDefault("stack.resolve", "name")
	v.SetDefault("stack.max_depth", 0)
	v.SetDefault("stack.max_nodes", 0)
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
}
