package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/qs3c/redact_go_server/internal/database"
	"github.com/qs3c/redact_go_server/internal/pkg/idtoken"
)

const commandTimeout = 60 * time.Second

func newRootCmd(open appOpener) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operator commands for the credit ledger",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")

	// withApp 打开依赖后执行命令
	var withApp runWithApp = func(run func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := open(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			return run(ctx, cmd, a, args)
		}
	}

	rootCmd.AddCommand(
		newMigrateCmd(withApp),
		newShowCmd(withApp),
		newGrantCmd(withApp),
		newSetPlanCmd(withApp),
		newSyncCmd(withApp),
		newRevealKeyCmd(withApp),
		newTokenCmd(withApp),
	)
	return rootCmd
}

type runWithApp func(run func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if err := database.AutoMigrate(a.db.WithContext(ctx)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		}),
	}
}

func newShowCmd(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show <uid>",
		Short: "Print current entitlements of an account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ent, err := a.entitlement.GetEntitlements(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, ent)
		}),
	}
}

func newGrantCmd(withApp runWithApp) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:     "grant <uid> <amount>",
		Short:   "Add credits to an account",
		Example: `  ledgerctl grant user-123 500 --reason support_refund`,
		Args:    cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[1])
			}
			if err := a.entitlement.GrantCredits(ctx, args[0], amount, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s\n", amount, args[0])
			return nil
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "ledger reason (default manual_topup)")
	return cmd
}

func newSetPlanCmd(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "set-plan <uid> <free|pro|team>",
		Short: "Set the plan of an account",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if err := a.entitlement.SetPlan(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan of %s set to %s\n", args[0], args[1])
			return nil
		}),
	}
}

func newSyncCmd(withApp runWithApp) *cobra.Command {
	var txid string
	cmd := &cobra.Command{
		Use:   "sync <uid>",
		Short: "Reconcile on-chain payments for an account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			res, err := a.payment.Reconcile(ctx, args[0], txid)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"paid":      res.Paid,
				"processed": res.Processed,
				"txid":      res.TxID,
			})
		}),
	}
	cmd.Flags().StringVar(&txid, "txid", "", "only accept this transaction id")
	return cmd
}

func newRevealKeyCmd(withApp runWithApp) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reveal-key <uid>",
		Short: "Decrypt the deposit wallet private key of an account",
		Long:  `Prints the deposit address and its private key in hex so funds can be swept. Requires --yes.`,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to print a private key without --yes")
			}
			address, key, err := a.deposit.RevealPrivateKey(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nprivate_key: %s\n", address, key)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm printing the private key")
	return cmd
}

func newTokenCmd(withApp runWithApp) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Issue a development bearer token signed with auth.dev_jwt_secret",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			if a.cfg.Auth.DevJWTSecret == "" {
				return fmt.Errorf("auth.dev_jwt_secret is not set")
			}
			token, err := idtoken.GenerateToken(args[0], a.cfg.Auth.DevJWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
