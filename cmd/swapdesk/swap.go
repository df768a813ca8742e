package main

import (
	"github.com/spf13/cobra"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/journal"
	"swapDesk/internal/swap"
)

func addIntentFlags(cmd *cobra.Command) {
	cmd.Flags().String("in", "", "input token (token0, token1, symbol or address)")
	cmd.Flags().String("out", "", "output token (token0, token1, symbol or address)")
	cmd.Flags().String("amount", "", "amount of the input token")
	cmd.Flags().Int("slippage-bps", 50, "allowed price movement in basis points")
}

func intentFromFlags(cmd *cobra.Command) swap.Intent {
	in, _ := cmd.Flags().GetString("in")
	outToken, _ := cmd.Flags().GetString("out")
	amount, _ := cmd.Flags().GetString("amount")
	slippage, _ := cmd.Flags().GetInt("slippage-bps")
	return swap.Intent{InputToken: in, OutputToken: outToken, AmountIn: amount, SlippageBps: slippage}
}

type swapResult struct {
	Status  swap.Status   `json:"status"`
	Receipt *swap.Receipt `json:"receipt,omitempty"`
}

func (a *app) swapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "swap",
		Short:   "Swap an exact input amount through the manager",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			intent := intentFromFlags(cmd)
			if err := intent.Validate(a.cfg.MaxSlippageBps); err != nil {
				return err
			}
			form, session, err := a.form(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := form.Submit(cmd.Context(), session, intent)
			if err != nil {
				return err
			}
			return a.render(swapResult{Status: swap.Describe(nil), Receipt: &receipt})
		},
	}
	addIntentFlags(cmd)
	cmd.AddCommand(a.swapHistoryCommand())
	return cmd
}

func (a *app) swapHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List journaled submissions, newest first",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Journal == "" {
				return clierr.New(clierr.CodeUsage, "--journal is required for history")
			}
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := a.openJournal()
			if err != nil {
				return err
			}
			entries, err := store.List(journal.Status(status), limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list journal", err)
			}
			return a.render(entries)
		},
	}
	cmd.Flags().String("status", "", "filter by status (pending, submitted, confirmed, failed)")
	cmd.Flags().Int("limit", 20, "maximum entries")
	return cmd
}

func (a *app) quoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quote",
		Short:   "Simulate a swap through the quoter",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			intent := intentFromFlags(cmd)
			if err := intent.Validate(a.cfg.MaxSlippageBps); err != nil {
				return err
			}
			form, session, err := a.form(cmd.Context())
			if err != nil {
				return err
			}
			quote, err := form.Quote(cmd.Context(), session, intent)
			if err != nil {
				return err
			}
			return a.render(quote)
		},
	}
	addIntentFlags(cmd)
	return cmd
}
