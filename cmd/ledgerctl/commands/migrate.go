package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/walletledger/internal/infra"
)

var printOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users, wallets and transactions tables",
	Long: `Apply the embedded schema. Statements are idempotent, so running
migrate against an up-to-date database is a no-op.

Examples:
  ledgerctl migrate --db postgres://localhost/ledger
  ledgerctl migrate --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if printOnly {
			fmt.Fprint(cmd.OutOrStdout(), infra.Schema())
			return nil
		}
		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := infra.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
}
