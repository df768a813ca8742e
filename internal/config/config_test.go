package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
)

const sampleConfig = `
deployment: staging
rpc: http://localhost:9545
max-slippage-bps: 300
deployments:
  staging:
    chain-id: 31337
    token0: "0x0E4B6314D9756D40EE0b3D68cF3999D29eEFb147"
    token1: "0x3C4249f1cDf4C5Ee12D480a543a6A42362baAAFf"
    pool: "0x3Be63776630ac9f282109352C804E650d515C604"
    manager: "0x43992F5f575c28A1dE03b1F337974b94e44FAb8c"
    abis: [ERC20, Pool, Manager]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swapdesk.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Deployment != registry.DefaultDeployment || cfg.MaxSlippageBps != 1000 || cfg.GasMultiplier != 1.2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Deployments) != 0 {
		t.Fatalf("no deployments expected without a config file")
	}
}

func TestLoadFileAndRegister(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Deployment != "staging" || cfg.RPCURL != "http://localhost:9545" || cfg.MaxSlippageBps != 300 {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	reg := registry.New()
	if err := cfg.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	dep, err := reg.Lookup("staging")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dep.ChainID != 31337 || dep.HasRole(registry.RoleQuoter) {
		t.Fatalf("unexpected deployment: %+v", dep.Summary())
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("deployment", "", "")
	flags.Int("max-slippage-bps", 0, "")
	if err := flags.Parse([]string{"--deployment", "client"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := Load(writeConfig(t, sampleConfig), flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Deployment != "client" {
		t.Fatalf("flag should win, got %s", cfg.Deployment)
	}
	if cfg.MaxSlippageBps != 300 {
		t.Fatalf("unset flag must not shadow file value, got %d", cfg.MaxSlippageBps)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("SWAPDESK_LOG_LEVEL", "debug")
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("env not applied: %s", cfg.LogLevel)
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadRejectsSlippageCapAtFullRange(t *testing.T) {
	for _, value := range []string{"10000", "-1"} {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("max-slippage-bps", 1000, "")
		if err := flags.Parse([]string{"--max-slippage-bps", value}); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if _, err := Load("", flags); !clierr.HasCode(err, clierr.CodeConfig) {
			t.Fatalf("max-slippage-bps %s: expected config error, got %v", value, err)
		}
	}
}

func TestLoadWatchEvents(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("event", nil, "")
	flags.Uint64("from", 0, "")
	if err := flags.Parse([]string{"--event", "Swap, Mint", "--from", "12"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := LoadWatch("", flags)
	if err != nil {
		t.Fatalf("load watch: %v", err)
	}
	if len(cfg.Events) != 2 || cfg.Events[1] != "Mint" || cfg.FromBlock != 12 || cfg.Capacity != 50 {
		t.Fatalf("unexpected watch config: %+v", cfg)
	}
}
