// Package cli wires configuration, storage and the web handler into the
// agency command.
package cli

import (
	"agency/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "agency",
		Short:         "Agency website and back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(&cfg),
		newSeedCommand(&cfg),
		newGrantAdminCommand(&cfg),
	)
	return root
}
