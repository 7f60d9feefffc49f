package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
)

// Config holds the daemon configuration
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Database DatabaseConfig `toml:"database"`
	Token    TokenConfig    `toml:"token"`
	Auth     AuthConfig     `toml:"auth"`
}

// GeneralConfig holds listener and logging settings
type GeneralConfig struct {
	RPCPort  string `toml:"rpc_port"`
	WSPort   string `toml:"ws_port"`
	LogLevel string `toml:"log_level"`
}

// DatabaseConfig holds database paths
type DatabaseConfig struct {
	StatePath string `toml:"state_path"`
}

// TokenConfig names the principal that creates the ledger
type TokenConfig struct {
	Owner string `toml:"owner"`
}

// AuthConfig bounds how old a signed request may be
type AuthConfig struct {
	MaxSkew string `toml:"max_skew"`
}

// DefaultHome is ~/.tokend, or ./.tokend when the home directory is unknown
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tokend"
	}
	return filepath.Join(home, ".tokend")
}

// DefaultConfig returns the defaults for a daemon rooted at home
func DefaultConfig(home string) Config {
	return Config{
		General: GeneralConfig{
			RPCPort:  ":11111",
			WSPort:   ":11112",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			StatePath: filepath.Join(home, "data", "state_db"),
		},
		Auth: AuthConfig{
			MaxSkew: "5m",
		},
	}
}

// MaxSkewDuration parses Auth.MaxSkew
func (c Config) MaxSkewDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Auth.MaxSkew)
	if err != nil {
		return 0, fmt.Errorf("invalid auth.max_skew %q: %v", c.Auth.MaxSkew, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("auth.max_skew must be positive, got %s", d)
	}
	return d, nil
}

// Save writes the config as TOML
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

// LoadConfig reads the TOML file at path, then applies environment overrides.
// A .env file next to the config is loaded first when present.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}

	err = toml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	cfg.fillDefaults(DefaultConfig(filepath.Dir(path)))

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("failed to load %s: %v", envFile, err)
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

// fillDefaults sets every field the file left empty
func (c *Config) fillDefaults(def Config) {
	fields := []struct {
		dst *string
		def string
	}{
		{&c.General.RPCPort, def.General.RPCPort},
		{&c.General.WSPort, def.General.WSPort},
		{&c.General.LogLevel, def.General.LogLevel},
		{&c.Database.StatePath, def.Database.StatePath},
		{&c.Auth.MaxSkew, def.Auth.MaxSkew},
	}
	for _, f := range fields {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"TOKEND_RPC_PORT":   &c.General.RPCPort,
		"TOKEND_WS_PORT":    &c.General.WSPort,
		"TOKEND_LOG_LEVEL":  &c.General.LogLevel,
		"TOKEND_STATE_PATH": &c.Database.StatePath,
		"TOKEND_OWNER":      &c.Token.Owner,
		"TOKEND_MAX_SKEW":   &c.Auth.MaxSkew,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}
}
