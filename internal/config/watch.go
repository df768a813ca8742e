package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"swapDesk/internal/storage/natspub"
)

// WatchConfig holds settings for the events watch command.
type WatchConfig struct {
	FromBlock    uint64
	Events       []string
	BatchSize    uint64
	Capacity     int
	PollInterval time.Duration

	Out        string
	PGDSN      string
	NatsURL    string
	NatsPrefix string

	Checkpoint  string
	Resume      bool
	MetricsAddr string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", uint64(2000))
		v.SetDefault("limit", 50)
		v.SetDefault("poll-interval", 2*time.Second)
		v.SetDefault("nats-prefix", natspub.DefaultPrefix)
	})
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		FromBlock:    v.GetUint64("from"),
		Events:       getStringSlice(v, "event"),
		BatchSize:    v.GetUint64("batch-size"),
		Capacity:     v.GetInt("limit"),
		PollInterval: v.GetDuration("poll-interval"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		NatsURL:      v.GetString("nats-url"),
		NatsPrefix:   v.GetString("nats-prefix"),
		Checkpoint:   v.GetString("checkpoint"),
		Resume:       v.GetBool("resume"),
		MetricsAddr:  v.GetString("metrics-addr"),
	}
	return cfg, nil
}
