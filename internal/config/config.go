// Package config merges config file, environment variables and flags.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
)

// EnvPrefix prefixes every environment variable, e.g. SWAPDESK_RPC.
const EnvPrefix = "SWAPDESK"

// Config holds settings shared by every command.
type Config struct {
	RPCURL     string
	Deployment string
	LogLevel   string
	Output     string

	KeySource            string
	EnvFile              string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePasswordFile string
	Yes                  bool

	GasMultiplier      float64
	MaxFeeGwei         string
	MaxPriorityFeeGwei string
	PollInterval       time.Duration
	ReceiptTimeout     time.Duration

	Journal        string
	MaxSlippageBps int
	ApproveMax     bool

	Deployments map[string]registry.Definition
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("rpc", "http://127.0.0.1:8545")
		v.SetDefault("deployment", registry.DefaultDeployment)
		v.SetDefault("log-level", "warn")
		v.SetDefault("output", "plain")
		v.SetDefault("key-source", "auto")
		v.SetDefault("gas-multiplier", 1.2)
		v.SetDefault("poll-interval", 2*time.Second)
		v.SetDefault("receipt-timeout", 2*time.Minute)
		v.SetDefault("max-slippage-bps", 1000)
	})
	if err != nil {
		return Config{}, err
	}

	defs, err := loadDeployments(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:               v.GetString("rpc"),
		Deployment:           v.GetString("deployment"),
		LogLevel:             v.GetString("log-level"),
		Output:               v.GetString("output"),
		KeySource:            v.GetString("key-source"),
		EnvFile:              v.GetString("env-file"),
		PrivateKeyFile:       v.GetString("private-key-file"),
		KeystorePath:         v.GetString("keystore"),
		KeystorePasswordFile: v.GetString("keystore-password-file"),
		Yes:                  v.GetBool("yes"),
		GasMultiplier:        v.GetFloat64("gas-multiplier"),
		MaxFeeGwei:           v.GetString("max-fee-gwei"),
		MaxPriorityFeeGwei:   v.GetString("max-priority-fee-gwei"),
		PollInterval:         v.GetDuration("poll-interval"),
		ReceiptTimeout:       v.GetDuration("receipt-timeout"),
		Journal:              v.GetString("journal"),
		MaxSlippageBps:       v.GetInt("max-slippage-bps"),
		ApproveMax:           v.GetBool("approve-max"),
		Deployments:          defs,
	}
	if cfg.MaxSlippageBps < 0 || cfg.MaxSlippageBps >= 10_000 {
		return Config{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("max-slippage-bps must be between 0 and 9999, got %d", cfg.MaxSlippageBps))
	}
	return cfg, nil
}

// Register adds configured deployments to reg, replacing built-ins of the same name.
func (c Config) Register(reg *registry.Registry) error {
	names := make([]string, 0, len(c.Deployments))
	for name := range c.Deployments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := reg.Register(name, c.Deployments[name]); err != nil {
			return err
		}
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, clierr.Wrap(clierr.CodeConfig, "read config", err)
		}
	} else {
		v.SetConfigName("swapdesk")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, clierr.Wrap(clierr.CodeConfig, "read config", err)
			}
		}
	}
	return v, nil
}

func loadDeployments(v *viper.Viper) (map[string]registry.Definition, error) {
	if !v.IsSet("deployments") {
		return nil, nil
	}
	defs := make(map[string]registry.Definition)
	if err := v.UnmarshalKey("deployments", &defs); err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "parse deployments", err)
	}
	return defs, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
