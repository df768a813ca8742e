package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/registry"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDeploymentsListJSON(t *testing.T) {
	code, stdout, stderr := execute(t, "deployments", "list", "-o", "json")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	var summaries []registry.Summary
	if err := json.Unmarshal([]byte(stdout), &summaries); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	names := make(map[string]bool)
	for _, s := range summaries {
		names[s.Name] = true
	}
	for _, want := range []string{"app", "ui", "client"} {
		if !names[want] {
			t.Fatalf("missing deployment %s in %v", want, names)
		}
	}
}

func TestDeploymentsShowPlain(t *testing.T) {
	code, stdout, stderr := execute(t, "deployments", "show", "client")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "name=client") || !strings.Contains(stdout, "chain_id=31337") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
}

func TestUnknownDeploymentIsConfigError(t *testing.T) {
	code, _, stderr := execute(t, "deployments", "show", "mainnet")
	if code != int(clierr.CodeConfig) {
		t.Fatalf("exit code %d, want %d", code, clierr.CodeConfig)
	}
	if !strings.HasPrefix(stderr, "config_error:") {
		t.Fatalf("stderr %q", stderr)
	}
}

func TestInvalidOutputModeIsUsageError(t *testing.T) {
	code, _, _ := execute(t, "deployments", "list", "-o", "xml")
	if code != int(clierr.CodeUsage) {
		t.Fatalf("exit code %d, want %d", code, clierr.CodeUsage)
	}
	code, _, _ = execute(t, "deployments", "list", "--no-such-flag")
	if code != int(clierr.CodeUsage) {
		t.Fatalf("unknown flag exit code %d, want %d", code, clierr.CodeUsage)
	}
}

func TestSwapRejectsIntentBeforeConnecting(t *testing.T) {
	// The RPC address is unroutable; validation must fail first.
	code, stdout, stderr := execute(t, "--rpc", "http://127.0.0.1:1", "swap", "--in", "token0", "--out", "token0", "--amount", "1")
	if code != int(clierr.CodeInvalidIntent) {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
	if stdout != "" || !strings.HasPrefix(stderr, "invalid_input:") {
		t.Fatalf("stdout %q stderr %q", stdout, stderr)
	}

	code, _, _ = execute(t, "swap", "--in", "token0", "--out", "token1", "--amount", "1", "--slippage-bps", "5000")
	if code != int(clierr.CodeInvalidIntent) {
		t.Fatalf("slippage above the cap: exit code %d", code)
	}
}

func TestLiquidityRejectsInvertedRange(t *testing.T) {
	code, _, stderr := execute(t, "liquidity", "add", "--lower", "5500", "--upper", "4500", "--amount0", "1")
	if code != int(clierr.CodeInvalidIntent) {
		t.Fatalf("exit code %d: %s", code, stderr)
	}
}

func TestHistoryRequiresJournal(t *testing.T) {
	code, _, _ := execute(t, "swap", "history")
	if code != int(clierr.CodeUsage) {
		t.Fatalf("exit code %d, want %d", code, clierr.CodeUsage)
	}
}
