package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:   "recargactl",
		Short: "Maintenance commands for the recharge service",
		Long: `Maintenance commands for the recharge service.

Examples:
  recargactl seal-password 'minha-senha'   # value for portal.password
  recargactl gen-secret                    # value for SECRET_KEY
  recargactl tab                           # ensure today's spreadsheet tab exists
  recargactl sync-ledger --method PIX      # upload recargas.txt to today's tab
  recargactl ledger --card 1234            # recharges mirrored in the database`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config/config.yaml", "Path to the config file")

	rootCmd.AddCommand(
		c.sealPasswordCmd(),
		c.genSecretCmd(),
		c.tabCmd(),
		c.syncLedgerCmd(),
		c.ledgerCmd(),
	)
	return rootCmd
}
