package main

import (
	"github.com/spf13/cobra"
)

func (a *app) poolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Read pool state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "state",
		Short:   "Show price, tick and active liquidity",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, session, err := a.form(cmd.Context())
			if err != nil {
				return err
			}
			state, err := form.PoolState(cmd.Context(), session)
			if err != nil {
				return err
			}
			return a.render(state)
		},
	})
	return cmd
}
