package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapDesk/internal/chain"
	"swapDesk/internal/config"
	"swapDesk/internal/contract"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/journal"
	"swapDesk/internal/out"
	"swapDesk/internal/registry"
	"swapDesk/internal/swap"
	"swapDesk/internal/wallet"
)

// app carries per-invocation state shared by the commands.
type app struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	cfgFile string

	cfg     config.Config
	logger  *zap.Logger
	dep     registry.Deployment
	client  *chain.Client
	panel   *wallet.Panel
	adapter *contract.Adapter
	journal *journal.Store
}

// load reads configuration and resolves the selected deployment.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := out.CheckMode(cfg.Output); err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := cfg.Register(registry.Default()); err != nil {
		return err
	}
	dep, err := registry.Lookup(cfg.Deployment)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("deployment", dep.Name))
	a.dep = dep
	return nil
}

// connect dials the node and opens a wallet session through the panel.
func (a *app) connect(ctx context.Context) (*wallet.Session, error) {
	client, err := chain.NewClient(ctx, a.cfg.RPCURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNetwork, "connect rpc", err)
	}
	a.client = client

	var confirm wallet.Confirmer = wallet.PromptConfirmer{In: a.stdin, Out: a.stderr}
	if a.cfg.Yes {
		confirm = wallet.AutoConfirm
	}
	provider := wallet.NewLocalProvider(wallet.KeyConfig{
		Source:               a.cfg.KeySource,
		EnvFile:              a.cfg.EnvFile,
		PrivateKeyFile:       a.cfg.PrivateKeyFile,
		KeystorePath:         a.cfg.KeystorePath,
		KeystorePasswordFile: a.cfg.KeystorePasswordFile,
	}, client, confirm)

	a.panel = wallet.NewPanel(provider, a.logger)
	a.adapter = contract.NewAdapter(client, a.panel, contract.Options{
		GasMultiplier:      a.cfg.GasMultiplier,
		MaxFeeGwei:         a.cfg.MaxFeeGwei,
		MaxPriorityFeeGwei: a.cfg.MaxPriorityFeeGwei,
		PollInterval:       a.cfg.PollInterval,
		ReceiptTimeout:     a.cfg.ReceiptTimeout,
	}, a.logger)

	session, err := a.adapter.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("wallet connected", zap.String("account", session.Account().Hex()), zap.String("chain_id", session.ChainID().String()))
	return session, nil
}

// form connects and builds a swap form. The journal is opened when configured.
func (a *app) form(ctx context.Context) (*swap.Form, *wallet.Session, error) {
	session, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	var recorder swap.Recorder
	if a.cfg.Journal != "" {
		store, err := a.openJournal()
		if err != nil {
			return nil, nil, err
		}
		recorder = store
	}
	form, err := swap.NewForm(a.adapter, a.dep, swap.Config{
		MaxSlippageBps: a.cfg.MaxSlippageBps,
		ApproveMax:     a.cfg.ApproveMax,
	}, recorder, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return form, session, nil
}

func (a *app) openJournal() (*journal.Store, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	store, err := journal.Open(a.cfg.Journal)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "open journal", err)
	}
	a.journal = store
	return store, nil
}

func (a *app) render(v any) error {
	return out.Render(a.stdout, v, a.cfg.Output)
}

func (a *app) close() {
	if a.panel != nil {
		a.panel.Disconnect()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close journal", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// preRun loads configuration before a command body runs.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	return a.load(cmd)
}
