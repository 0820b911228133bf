package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/hostbot/internal/history/clickhouse"
	"github.com/loykin/hostbot/internal/logger"
	"github.com/loykin/hostbot/internal/store"
)

// Config is the top-level TOML structure for the hostbot daemon.
//
//	scripts_dir = "scripts"
//	interpreter = "python3"
//	interpreter_args = ["-u"]
//	grace_period = "3s"
//	stop_wait = "5s"
//	tail_bytes = 2048
//	env = ["TZ=UTC"]
//
//	[server]
//	listen = ":8080"
//	base_path = ""
//
//	[log]
//	level = "info"
//	dir = "log"
//
//	[store]
//	type = "sqlite"
//	path = "hostbot-history.db"
//
//	[history.clickhouse]
//	addr = "localhost:9000"
//
//	[auth]
//	path = "hostbot-auth.db"
//	admins = [123456789]
//
//	[chat]
//	enabled = true
//
//	[installer]
//	command = ["pip", "install", "-r"]
//	timeout = "5m"
type Config struct {
	ScriptsDir      string        `toml:"scripts_dir" mapstructure:"scripts_dir"`
	Interpreter     string        `toml:"interpreter" mapstructure:"interpreter"`
	InterpreterArgs []string      `toml:"interpreter_args" mapstructure:"interpreter_args"`
	GracePeriod     time.Duration `toml:"grace_period" mapstructure:"grace_period"`
	StopWait        time.Duration `toml:"stop_wait" mapstructure:"stop_wait"`
	TailBytes       int64         `toml:"tail_bytes" mapstructure:"tail_bytes"`
	Env             []string      `toml:"env" mapstructure:"env"`

	Server    ServerConfig    `toml:"server" mapstructure:"server"`
	Log       logger.Config   `toml:"log" mapstructure:"log"`
	Store     store.Config    `toml:"store" mapstructure:"store"`
	History   HistoryConfig   `toml:"history" mapstructure:"history"`
	Auth      AuthConfig      `toml:"auth" mapstructure:"auth"`
	Chat      ChatConfig      `toml:"chat" mapstructure:"chat"`
	Installer InstallerConfig `toml:"installer" mapstructure:"installer"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type HistoryConfig struct {
	ClickHouse *clickhouse.Config `toml:"clickhouse" mapstructure:"clickhouse"`
}

type AuthConfig struct {
	Path   string  `toml:"path" mapstructure:"path"`
	Admins []int64 `toml:"admins" mapstructure:"admins"`
}

type ChatConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
}

type InstallerConfig struct {
	Command []string      `toml:"command" mapstructure:"command"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		ScriptsDir: "scripts",
		Server:     ServerConfig{Listen: ":8080"},
		Auth:       AuthConfig{Path: "hostbot-auth.db"},
		Chat:       ChatConfig{Enabled: true},
	}
}

// Load reads a TOML config file. Missing keys fall back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	return cfg, nil
}
