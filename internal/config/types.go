package config

import "time"

// Config is the top-level opbot configuration, corresponding to .opbot.yml.
type Config struct {
	PublicKey     string         `yaml:"public_key" koanf:"public_key"`
	ApplicationID string         `yaml:"application_id" koanf:"application_id"`
	BotToken      string         `yaml:"bot_token,omitempty" koanf:"bot_token"`
	APIBaseURL    string         `yaml:"api_base_url" koanf:"api_base_url"`
	Server        ServerConfig   `yaml:"server" koanf:"server"`
	Database      DatabaseConfig `yaml:"database" koanf:"database"`
	Redis         RedisConfig    `yaml:"redis" koanf:"redis"`
	Dispatch      DispatchConfig `yaml:"dispatch" koanf:"dispatch"`
	Callback      CallbackConfig `yaml:"callback" koanf:"callback"`
	Log           LogConfig      `yaml:"log" koanf:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port       int    `yaml:"port" koanf:"port"`
	AdminToken string `yaml:"admin_token,omitempty" koanf:"admin_token"`
	AllowAll   bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// DatabaseConfig points at the SQLite account database. An empty path
// disables account storage entirely.
type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// RedisConfig enables the account existence cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" koanf:"addr"`
	Password string        `yaml:"password,omitempty" koanf:"password"`
	DB       int           `yaml:"db" koanf:"db"`
	TTL      time.Duration `yaml:"ttl" koanf:"ttl"`
}

// DispatchConfig tunes the interaction dispatcher.
type DispatchConfig struct {
	AccountCommand string        `yaml:"account_command" koanf:"account_command"`
	AckDeadline    time.Duration `yaml:"ack_deadline" koanf:"ack_deadline"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" koanf:"handler_timeout"`
	MaxClockSkew   time.Duration `yaml:"max_clock_skew" koanf:"max_clock_skew"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" koanf:"max_body_bytes"`
}

// CallbackConfig tunes the outbound reply client.
type CallbackConfig struct {
	Timeout       time.Duration `yaml:"timeout" koanf:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second" koanf:"rate_per_second"`
	Burst         int           `yaml:"burst" koanf:"burst"`
}

// LogConfig describes the zap logger.
type LogConfig struct {
	Level       string         `yaml:"level" koanf:"level"`
	Format      string         `yaml:"format" koanf:"format"`
	Outputs     []string       `yaml:"outputs" koanf:"outputs"`
	Development bool           `yaml:"development" koanf:"development"`
	Rotation    RotationConfig `yaml:"rotation" koanf:"rotation"`
}

// RotationConfig controls lumberjack rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `yaml:"enable" koanf:"enable"`
	Filename   string `yaml:"filename,omitempty" koanf:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" koanf:"max_age_days"`
	Compress   bool   `yaml:"compress" koanf:"compress"`
}
