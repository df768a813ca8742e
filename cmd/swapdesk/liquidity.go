package main

import (
	"github.com/spf13/cobra"

	"swapDesk/internal/swap"
)

func (a *app) liquidityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Provide liquidity to the pool",
	}
	add := &cobra.Command{
		Use:     "add",
		Short:   "Mint a position between two prices (token1 per token0)",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			var intent swap.LiquidityIntent
			intent.LowerPrice, _ = flags.GetString("lower")
			intent.UpperPrice, _ = flags.GetString("upper")
			intent.Amount0, _ = flags.GetString("amount0")
			intent.Amount1, _ = flags.GetString("amount1")
			intent.Amount0Min, _ = flags.GetString("amount0-min")
			intent.Amount1Min, _ = flags.GetString("amount1-min")
			if err := intent.Validate(); err != nil {
				return err
			}

			form, session, err := a.form(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := form.AddLiquidity(cmd.Context(), session, intent)
			if err != nil {
				return err
			}
			return a.render(swapResult{Status: swap.Describe(nil), Receipt: &receipt})
		},
	}
	add.Flags().String("lower", "", "lower price bound")
	add.Flags().String("upper", "", "upper price bound")
	add.Flags().String("amount0", "", "token0 amount to deposit")
	add.Flags().String("amount1", "", "token1 amount to deposit")
	add.Flags().String("amount0-min", "", "minimum token0 accepted by the manager")
	add.Flags().String("amount1-min", "", "minimum token1 accepted by the manager")
	cmd.AddCommand(add)
	return cmd
}
