// Package config loads settings for the todo binary.
//
// Values are layered, later sources winning:
//  1. Defaults
//  2. User config file (~/.tada/config.toml)
//  3. Project config file (tada.toml in the current directory)
//  4. Environment variables (TADA_*)
//  5. CLI flags
//
// An explicit -config path replaces steps 2 and 3.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/store/kv"
)

const (
	DefaultBackend   = kv.BackendFile
	DefaultDataDir   = "~/.tada"
	DefaultTheme     = "classic"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	UserConfigName    = "config.toml"
	ProjectConfigName = "tada.toml"
	// DefaultUILogName is the log file the interactive UI falls back to, so
	// log lines never land on the alt screen.
	DefaultUILogName = "tada.log"
)

// Config holds every tunable of the binary.
type Config struct {
	Backend  string `toml:"backend"`
	DataDir  string `toml:"data_dir"`
	Key      string `toml:"key" validate:"required"`
	MySQLDSN string `toml:"mysql_dsn"`
	Theme    string `toml:"theme" validate:"oneof=classic neon mono"`

	LogLevel  string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=text json logfmt"`
	LogFile   string `toml:"log_file"`

	// Group lists pending and done tasks separately in `ls`. Flag only.
	Group bool `toml:"-"`
	// ConfigFile is the explicit -config path, if any. Flag only.
	ConfigFile string `toml:"-"`
}

func setDefaults(cfg *Config) {
	cfg.Backend = DefaultBackend
	cfg.DataDir = DefaultDataDir
	cfg.Key = jsonstore.DefaultKey
	cfg.Theme = DefaultTheme
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

var validate = newValidator()

// newValidator reports fields by their config file names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	switch c.Backend {
	case kv.BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("backend %q needs data_dir", c.Backend)
		}
	case kv.BackendMemory:
	case kv.BackendMySQL:
		if strings.TrimSpace(c.MySQLDSN) == "" {
			return fmt.Errorf("backend %q needs mysql_dsn (or TADA_MYSQL_DSN)", c.Backend)
		}
	default:
		return fmt.Errorf("%w: %q (want file, memory or mysql)", kv.ErrUnknownBackend, c.Backend)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", e.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("unknown %s %q (want one of: %s)", e.Field(), e.Value(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// StoreOptions maps the config onto kv.Open options.
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{Backend: c.Backend, DataDir: c.DataDir, DSN: c.MySQLDSN}
}
