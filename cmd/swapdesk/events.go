package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapDesk/internal/config"
	"swapDesk/internal/contract"
	"swapDesk/internal/dex"
	clierr "swapDesk/internal/errors"
	"swapDesk/internal/feed"
	"swapDesk/internal/registry"
	"swapDesk/internal/storage"
	"swapDesk/internal/storage/natspub"
	"swapDesk/internal/storage/postgres"
)

func (a *app) eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow pool events",
	}
	watch := &cobra.Command{
		Use:     "watch",
		Short:   "Stream decoded pool events until interrupted",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE:    a.runWatch,
	}
	f := watch.Flags()
	f.Uint64("from", 0, "backfill from this block before following the head")
	f.StringSlice("event", nil, "event names to include (repeatable, default all)")
	f.Uint64("batch-size", 2000, "blocks per backfill request")
	f.Int("limit", feed.DefaultCapacity, "events retained in the feed")
	f.String("out", "", "append events to a JSONL file")
	f.String("pg-dsn", "", "store events in Postgres")
	f.String("nats-url", "", "publish events to NATS")
	f.String("nats-prefix", natspub.DefaultPrefix, "NATS subject prefix")
	f.String("checkpoint", "", "checkpoint file for resuming")
	f.Bool("resume", false, "resume from the checkpoint block")
	f.String("metrics-addr", "", "serve prometheus metrics on this address")
	cmd.AddCommand(watch)
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, _ []string) error {
	wc, err := config.LoadWatch(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := a.connect(ctx)
	if err != nil {
		return err
	}
	pool, err := a.adapter.Bind(registry.RolePool, a.dep, session)
	if err != nil {
		return err
	}
	decoder, err := dex.NewDecoder(a.dep)
	if err != nil {
		return err
	}

	sink, err := a.openSinks(ctx, wc)
	if err != nil {
		return err
	}
	if sink != nil {
		defer func() {
			if err := sink.Close(); err != nil {
				a.logger.Warn("close sinks", zap.Error(err))
			}
		}()
	}

	fromBlock := wc.FromBlock
	var checkpoint *feed.CheckpointStore
	if wc.Checkpoint != "" {
		checkpoint = feed.NewCheckpointStore(wc.Checkpoint, a.dep.Name)
		if wc.Resume {
			if fromBlock, err = checkpoint.ResumeBlock(wc.FromBlock); err != nil {
				return clierr.Wrap(clierr.CodeConfig, "load checkpoint", err)
			}
		}
	} else if wc.Resume {
		return clierr.New(clierr.CodeUsage, "--resume requires --checkpoint")
	}

	var metrics *feed.Metrics
	if wc.MetricsAddr != "" {
		metrics = feed.NewMetrics()
		srv, err := feed.Serve(wc.MetricsAddr, metrics, a.logger)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "serve metrics", err)
		}
		defer srv.Close()
	}

	events := feed.New(decoder, feed.Options{
		Capacity:   wc.Capacity,
		Sink:       sink,
		Checkpoint: checkpoint,
		Metrics:    metrics,
		Logger:     a.logger,
	})
	sub, err := a.adapter.Watch(ctx, pool, contract.WatchOptions{
		FromBlock:    fromBlock,
		Events:       wc.Events,
		BatchSize:    wc.BatchSize,
		PollInterval: wc.PollInterval,
	})
	if err != nil {
		return err
	}
	a.logger.Info("watching pool", zap.String("pool", pool.Address.Hex()), zap.Uint64("from_block", fromBlock))

	updates, cancel := events.Updates()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for event := range updates {
			if err := a.render(event); err != nil {
				a.logger.Warn("render event", zap.Error(err))
			}
		}
	}()
	runErr := events.Run(ctx, session, sub)
	cancel()
	<-printed
	if runErr != nil {
		return runErr
	}

	summary, err := events.Summary()
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "summarize events", err)
	}
	return a.render(summary)
}

// openSinks returns nil when no sink is configured.
func (a *app) openSinks(ctx context.Context, wc config.WatchConfig) (storage.Sink, error) {
	var sinks storage.Multi
	fail := func(err error) (storage.Sink, error) {
		_ = sinks.Close()
		return nil, err
	}
	if wc.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(wc.Out))
	}
	if wc.PGDSN != "" {
		store, err := postgres.NewStore(ctx, wc.PGDSN)
		if err != nil {
			return fail(clierr.Wrap(clierr.CodeConfig, "connect postgres", err))
		}
		sinks = append(sinks, store)
		if err := store.EnsureSchema(ctx); err != nil {
			return fail(clierr.Wrap(clierr.CodeConfig, "ensure schema", err))
		}
	}
	if wc.NatsURL != "" {
		pub, err := natspub.Connect(wc.NatsURL, wc.NatsPrefix)
		if err != nil {
			return fail(clierr.Wrap(clierr.CodeNetwork, "connect nats", err))
		}
		sinks = append(sinks, pub)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}
