package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load builds the configuration and returns the arguments left after flags.
func Load(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	cfg := &Config{}
	setDefaults(cfg)

	// The config file location can itself come from a flag, so flags are
	// parsed into a scratch copy first and applied again at the end.
	scratch := *cfg
	registerFlags(fs, &scratch)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	if scratch.ConfigFile != "" {
		if err := loadConfigFile(cfg, scratch.ConfigFile); err != nil {
			return nil, nil, fmt.Errorf("loading config file %s: %w", scratch.ConfigFile, err)
		}
	} else {
		for _, path := range []string{findUserConfigFile(), findProjectConfigFile()} {
			if path == "" {
				continue
			}
			if err := loadConfigFile(cfg, path); err != nil {
				return nil, nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	loadFromEnv(cfg)
	applySetFlags(fs, cfg, &scratch)

	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.LogFile = expandPath(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func registerFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Group, "group", false, "group output by pending/done")
	fs.StringVar(&cfg.ConfigFile, "config", "", "config file (replaces ~/.tada/config.toml and ./tada.toml)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: file, memory or mysql")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the file backend")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "storage key holding the task list")
	fs.StringVar(&cfg.MySQLDSN, "dsn", cfg.MySQLDSN, "MySQL DSN for the mysql backend")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "color theme: classic, neon or mono")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text, json or logfmt")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file instead of stderr")
}

// applySetFlags copies only the flags the user actually passed, so an unset
// flag's default never hides a value from a file or the environment.
func applySetFlags(fs *flag.FlagSet, cfg, parsed *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "group":
			cfg.Group = parsed.Group
		case "config":
			cfg.ConfigFile = parsed.ConfigFile
		case "backend":
			cfg.Backend = parsed.Backend
		case "data-dir":
			cfg.DataDir = parsed.DataDir
		case "key":
			cfg.Key = parsed.Key
		case "dsn":
			cfg.MySQLDSN = parsed.MySQLDSN
		case "theme":
			cfg.Theme = parsed.Theme
		case "log-level":
			cfg.LogLevel = parsed.LogLevel
		case "log-format":
			cfg.LogFormat = parsed.LogFormat
		case "log-file":
			cfg.LogFile = parsed.LogFile
		}
	})
}

func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TADA_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("TADA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TADA_KEY"); v != "" {
		cfg.Key = v
	}
	if v := os.Getenv("TADA_MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TADA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TADA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return existing(filepath.Join(home, ".tada", UserConfigName))
}

func findProjectConfigFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return existing(filepath.Join(wd, ProjectConfigName))
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// expandPath expands ~ and environment variables.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	return expanded
}
