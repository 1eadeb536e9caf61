// Package config centralises configuration loading for the bridge.
// Precedence, lowest to highest: built-in defaults, an optional TOML file,
// STRAVA_* environment variables. A local .env file is folded into the
// environment first so development setups need no shell exports.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the bridge's environment variables.
const envPrefix = "STRAVA_"

// Config is the bridge's startup configuration. The credential fields are
// read once here and never written back anywhere.
type Config struct {
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`

	// RefreshToken is the long-lived grant. It may be omitted only when a
	// pre-seeded AccessToken is provided, in which case the process runs
	// until that token is rejected upstream.
	RefreshToken string `koanf:"refresh_token" validate:"required_without=AccessToken"`
	AccessToken  string `koanf:"access_token"`

	BaseURL  string `koanf:"base_url" validate:"required,url"`
	TokenURL string `koanf:"token_url" validate:"required,url"`

	// TimeoutSeconds bounds a single upstream HTTP round trip.
	TimeoutSeconds int `koanf:"timeout_seconds" validate:"min=1,max=120"`
}

var defaults = map[string]any{
	"base_url":        "https://www.strava.com/api/v3",
	"token_url":       "https://www.strava.com/oauth/token",
	"timeout_seconds": 15,
}

// Load reads configuration from defaults, the optional TOML file at path,
// and the environment. Missing required credentials are a startup-fatal
// error; the caller is expected to exit.
func Load(path string) (Config, error) {
	// Best effort: a missing .env simply means the environment is already set.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the minimum credential set is present and all values
// are in range.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" || fe.Tag() == "required_without" {
			return fmt.Errorf("invalid configuration: %s is required (set %s%s or provide a usable access token)",
				fe.StructField(), envPrefix, strings.ToUpper(koanfName(fe.StructField())))
		}
		return fmt.Errorf("invalid configuration: %s is invalid", fe.StructField())
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

// koanfName maps a Go field name back to its snake_case key for messages.
func koanfName(field string) string {
	switch field {
	case "ClientID":
		return "client_id"
	case "ClientSecret":
		return "client_secret"
	case "RefreshToken":
		return "refresh_token"
	case "AccessToken":
		return "access_token"
	default:
		return strings.ToLower(field)
	}
}
