package main

import (
	"github.com/spf13/cobra"

	"swapDesk/internal/registry"
)

func (a *app) deploymentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Inspect named contract deployments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List known deployments",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(*cobra.Command, []string) error {
			reg := registry.Default()
			summaries := make([]registry.Summary, 0)
			for _, name := range reg.Names() {
				dep, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				summaries = append(summaries, dep.Summary())
			}
			return a.render(summaries)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "show [name]",
		Short:   "Show one deployment (the selected one by default)",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: a.preRun,
		RunE: func(_ *cobra.Command, args []string) error {
			dep := a.dep
			if len(args) == 1 {
				var err error
				if dep, err = registry.Lookup(args[0]); err != nil {
					return err
				}
			}
			return a.render(dep.Summary())
		},
	})
	return cmd
}
