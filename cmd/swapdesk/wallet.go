package main

import (
	"github.com/spf13/cobra"
)

type walletView struct {
	State      string `json:"state"`
	Account    string `json:"account"`
	ChainID    string `json:"chain_id"`
	Deployment string `json:"deployment"`
}

func (a *app) walletCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Connect the wallet and inspect the account",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "status",
		Short:   "Connect and show the account and chain",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(walletView{
				State:      a.panel.State().String(),
				Account:    session.Account().Hex(),
				ChainID:    session.ChainID().String(),
				Deployment: a.dep.Name,
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "balances",
		Short:   "Show native and pool token balances",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, session, err := a.form(cmd.Context())
			if err != nil {
				return err
			}
			balances, err := form.Balances(cmd.Context(), session)
			if err != nil {
				return err
			}
			return a.render(balances)
		},
	})
	return cmd
}
