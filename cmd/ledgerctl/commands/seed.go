package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/routes"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create Alice and Bob and replay a few sample operations",
	Long: `Seed registers two users and runs deposits and transfers through the
ledger engine, so balances and history stay consistent. Seeding a database
that already holds the sample users does nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := routes.BuildServices(routes.Deps{DB: pool, Logger: logging.New(logLevel)})
		return Seed(cmd.Context(), svc, cmd.OutOrStdout())
	},
}

// Seed loads the sample users and operations into svc.
func Seed(ctx context.Context, svc routes.Services, out io.Writer) error {
	alice, err := svc.Users.Register(ctx, "Alice", "alice@example.com")
	if errors.Is(err, identity.ErrEmailTaken) {
		fmt.Fprintln(out, "sample users already present, nothing to do")
		return nil
	}
	if err != nil {
		return fmt.Errorf("register alice: %w", err)
	}
	bob, err := svc.Users.Register(ctx, "Bob", "bob@example.com")
	if err != nil {
		return fmt.Errorf("register bob: %w", err)
	}

	steps := []struct {
		label string
		run   func() error
	}{
		{"deposit 1000.00 to Alice", func() error {
			_, err := svc.Engine.Deposit(ctx, alice.ID, decimal.RequireFromString("1000.00"))
			return err
		}},
		{"deposit 100.00 to Bob", func() error {
			_, err := svc.Engine.Deposit(ctx, bob.ID, decimal.RequireFromString("100.00"))
			return err
		}},
		{"transfer 200.00 from Alice to Bob", func() error {
			_, err := svc.Engine.Transfer(ctx, alice.ID, bob.ID, decimal.RequireFromString("200.00"))
			return err
		}},
		{"transfer 300.00 from Bob to Alice", func() error {
			_, err := svc.Engine.Transfer(ctx, bob.ID, alice.ID, decimal.RequireFromString("300.00"))
			return err
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.label, err)
		}
		fmt.Fprintln(out, step.label)
	}

	fmt.Fprintf(out, "seeded users %d (Alice) and %d (Bob)\n", alice.ID, bob.ID)
	return nil
}
