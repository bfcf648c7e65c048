// Package config loads sqlagen settings from an optional YAML file, a .env
// file and SQLAGEN_* environment variables, in increasing precedence.
// Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SQLAGEN_"

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// Config holds every setting the command line exposes.
type Config struct {
	URL           string     `yaml:"url" env:"URL"`
	Generator     string     `yaml:"generator" env:"GENERATOR"`
	Flavor        string     `yaml:"flavor" env:"FLAVOR"`
	Outfile       string     `yaml:"outfile" env:"OUTFILE"`
	Schemas       StringList `yaml:"schemas" env:"SCHEMAS"`
	Tables        StringList `yaml:"tables" env:"TABLES"`
	ExcludeTables StringList `yaml:"exclude_tables" env:"EXCLUDE_TABLES"`
	NoViews       bool       `yaml:"noviews" env:"NOVIEWS"`
	NoIndexes     bool       `yaml:"noindexes" env:"NOINDEXES"`
	NoConstraints bool       `yaml:"noconstraints" env:"NOCONSTRAINTS"`
	NoComments    bool       `yaml:"nocomments" env:"NOCOMMENTS"`
	Options       StringList `yaml:"options" env:"OPTIONS"`
	LogLevel      string     `yaml:"log_level" env:"LOG_LEVEL"`
}

// StringList is a YAML value that can be either a string or a list of
// strings. In the environment it is comma separated.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Generator: "declarative",
		Flavor:    "modern",
		LogLevel:  "warn",
	}
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is a YAML config file. Empty skips it; a named file must exist.
	File string
	// EnvFiles are dotenv files. Nil reads DefaultEnvFile if it exists.
	EnvFiles []string
	// Environ replaces the process environment, for tests.
	Environ map[string]string
}

// Load merges the defaults, the YAML file, the dotenv files and the
// environment. Variables already set in the environment win over dotenv
// entries.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := loadFile(cfg, opts.File); err != nil {
			return nil, err
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(environ)+len(dotenv))
	for k, v := range dotenv {
		merged[k] = v
	}
	for k, v := range environ {
		merged[k] = v
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: merged}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if files == nil {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		files = []string{DefaultEnvFile}
	}
	if len(files) == 0 {
		return nil, nil
	}
	values, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return values, nil
}
