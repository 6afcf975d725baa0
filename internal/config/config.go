// Package config resolves client settings from defaults, the environment, an
// optional TOML file and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/omochice/relay-chat-client/internal/client"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "RELAY_CHAT_"

const (
	PolicyFixed   = "fixed"
	PolicyBackoff = "backoff"
)

var (
	ErrMissingHost   = errors.New("relay host is required")
	ErrInvalidPolicy = errors.New("invalid reconnect policy")
)

// Config is the resolved client configuration.
type Config struct {
	Host          string    `env:"HOST" envDefault:"localhost:8080" mapstructure:"host"`
	Secure        bool      `env:"SECURE" mapstructure:"secure"`
	Username      string    `env:"USERNAME" mapstructure:"username"`
	Demo          bool      `env:"DEMO" mapstructure:"demo"`
	Roster        string    `env:"ROSTER" mapstructure:"roster"`
	ResetOnSelect bool      `env:"RESET_ON_SELECT" mapstructure:"reset_on_select"`
	Reconnect     Reconnect `envPrefix:"RECONNECT_" mapstructure:"reconnect"`
}

type Reconnect struct {
	Policy      string        `env:"POLICY" envDefault:"backoff" mapstructure:"policy"`
	Delay       time.Duration `env:"DELAY" envDefault:"5s" mapstructure:"delay"`
	MaxDelay    time.Duration `env:"MAX_DELAY" envDefault:"1m" mapstructure:"max_delay"`
	Jitter      float64       `env:"JITTER" envDefault:"0.2" mapstructure:"jitter"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"10" mapstructure:"max_attempts"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"host":             "host",
	"secure":           "secure",
	"username":         "username",
	"demo":             "demo",
	"roster":           "roster",
	"reset-on-select":  "reset_on_select",
	"reconnect-policy": "reconnect.policy",
}

// RegisterFlags adds the client's flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "TOML config file")
	fs.String("host", "", "relay host[:port]")
	fs.Bool("secure", false, "use wss instead of ws")
	fs.String("username", "", "username to log in with")
	fs.Bool("demo", false, "run offline with simulated replies")
	fs.String("roster", "", "TOML roster file (default: built-in)")
	fs.Bool("reset-on-select", false, "clear a conversation when it is selected")
	fs.String("reconnect-policy", "", "reconnect policy: fixed or backoff")
}

// Load resolves the configuration. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, cfg)

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("host", cfg.Host)
	v.SetDefault("secure", cfg.Secure)
	v.SetDefault("username", cfg.Username)
	v.SetDefault("demo", cfg.Demo)
	v.SetDefault("roster", cfg.Roster)
	v.SetDefault("reset_on_select", cfg.ResetOnSelect)
	v.SetDefault("reconnect.policy", cfg.Reconnect.Policy)
	v.SetDefault("reconnect.delay", cfg.Reconnect.Delay)
	v.SetDefault("reconnect.max_delay", cfg.Reconnect.MaxDelay)
	v.SetDefault("reconnect.jitter", cfg.Reconnect.Jitter)
	v.SetDefault("reconnect.max_attempts", cfg.Reconnect.MaxAttempts)
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Host == "" && !c.Demo {
		return ErrMissingHost
	}
	return c.Reconnect.Validate()
}

func (r Reconnect) Validate() error {
	switch r.Policy {
	case PolicyFixed, PolicyBackoff:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, r.Policy)
	}
	if r.Delay <= 0 {
		return fmt.Errorf("reconnect delay must be positive, got %s", r.Delay)
	}
	if r.Policy == PolicyBackoff && r.MaxDelay < r.Delay {
		return fmt.Errorf("reconnect max delay %s is below delay %s", r.MaxDelay, r.Delay)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("reconnect jitter must be within [0, 1], got %v", r.Jitter)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("reconnect max attempts must not be negative, got %d", r.MaxAttempts)
	}
	return nil
}

// ReconnectPolicy builds the connection manager's reconnect policy.
func (r Reconnect) ReconnectPolicy() *client.ReconnectPolicy {
	if r.Policy == PolicyFixed {
		return client.FixedDelay(r.Delay)
	}
	return client.ExponentialBackoff(r.Delay, r.MaxDelay, r.Jitter, r.MaxAttempts)
}
