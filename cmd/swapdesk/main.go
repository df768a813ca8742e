package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/swap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.close()
	if err == nil {
		return 0
	}
	status := swap.Describe(err)
	fmt.Fprintf(stderr, "%s: %v\n", status.State, err)
	return clierr.ExitCode(err)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "swapdesk",
		Short:         "Swap and provide liquidity on a concentrated-liquidity pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "invalid flags", err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file path (default ./swapdesk.yaml if present)")
	pf.String("rpc", "http://127.0.0.1:8545", "chain RPC URL (http, ws or ipc)")
	pf.StringP("deployment", "d", "ui", "named contract deployment")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringP("output", "o", "plain", "output format (plain, json, yaml)")
	pf.String("key-source", "auto", "signing key source (auto, env, file, keystore)")
	pf.String("env-file", "", "dotenv file with key settings")
	pf.String("private-key-file", "", "file holding a hex private key")
	pf.String("keystore", "", "encrypted keystore file")
	pf.String("keystore-password-file", "", "file holding the keystore password")
	pf.BoolP("yes", "y", false, "sign without prompting")
	pf.Float64("gas-multiplier", 1.2, "gas limit multiplier over the estimate")
	pf.String("max-fee-gwei", "", "max fee per gas override")
	pf.String("max-priority-fee-gwei", "", "max priority fee per gas override")
	pf.Duration("poll-interval", 2*time.Second, "receipt and log polling interval")
	pf.Duration("receipt-timeout", 2*time.Minute, "how long to wait for a receipt")
	pf.String("journal", "", "sqlite file recording swap and liquidity submissions")
	pf.Int("max-slippage-bps", 1000, "largest accepted slippage in basis points")
	pf.Bool("approve-max", false, "approve an unlimited allowance instead of the exact amount")

	root.AddCommand(
		a.deploymentsCommand(),
		a.walletCommand(),
		a.poolCommand(),
		a.quoteCommand(),
		a.swapCommand(),
		a.liquidityCommand(),
		a.eventsCommand(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "log level", err)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
