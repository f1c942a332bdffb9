package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = ".opbot.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (OPBOT_*). Nested keys use a double
// underscore: OPBOT_SERVER__PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("OPBOT_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "OPBOT_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyPlatformEnv(cfg)
	return cfg, nil
}

// applyPlatformEnv fills blank fields from the variable names the platform
// tooling conventionally uses.
func applyPlatformEnv(cfg *Config) {
	if cfg.PublicKey == "" {
		cfg.PublicKey = strings.TrimSpace(os.Getenv("DISCORD_PUBLIC_KEY"))
	}
	if cfg.ApplicationID == "" {
		cfg.ApplicationID = strings.TrimSpace(os.Getenv("DISCORD_APPLICATION_ID"))
	}
	if cfg.BotToken == "" {
		cfg.BotToken = strings.TrimSpace(os.Getenv("TOKEN"))
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("OPBOT_SERVER__PORT") == "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values. A missing
// public key is deliberately not an error: signature checks fail closed.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if c.Dispatch.AccountCommand == "" {
		return fmt.Errorf("dispatch.account_command is required")
	}
	if c.Dispatch.AckDeadline < 0 {
		return fmt.Errorf("dispatch.ack_deadline must be non-negative")
	}
	if c.Dispatch.HandlerTimeout < 0 {
		return fmt.Errorf("dispatch.handler_timeout must be non-negative")
	}
	if c.Dispatch.MaxClockSkew < 0 {
		return fmt.Errorf("dispatch.max_clock_skew must be non-negative")
	}
	if c.Dispatch.MaxBodyBytes < 0 {
		return fmt.Errorf("dispatch.max_body_bytes must be non-negative")
	}
	if c.Callback.RatePerSecond < 0 || c.Callback.Burst < 0 {
		return fmt.Errorf("callback rate and burst must be non-negative")
	}
	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
