package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sandevgo/tuskagent/internal/core"
	"github.com/sandevgo/tuskagent/internal/service/memory"
	"github.com/sandevgo/tuskagent/internal/service/ui"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Maintain conversation memory",
	Long: `Maintenance operations on the durable memory tier. The in-process cache of a
running agent is not reachable from here; use the mcp command for that.`,
}

var (
	adminTenant      string
	adminParticipant string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge records past retention (all tenants unless --tenant)",
	RunE: withStore(func(ctx context.Context, store *memory.Store, out io.Writer) error {
		res, err := store.Sweep(ctx, adminTenant)
		if err != nil {
			return err
		}
		return printJSON(out, "SWEEP", res)
	}),
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report memory stored without a tenant",
	RunE: withStore(func(ctx context.Context, store *memory.Store, out io.Writer) error {
		report, err := store.AuditIsolation(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, "AUDIT", report)
	}),
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Assign --tenant to memory stored without a tenant",
	RunE: withStore(func(ctx context.Context, store *memory.Store, out io.Writer) error {
		res, err := store.RepairIsolation(ctx, adminTenant)
		if err != nil {
			return err
		}
		return printJSON(out, "REPAIR", res)
	}),
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all memory of --participant within --tenant",
	RunE: withStore(func(ctx context.Context, store *memory.Store, out io.Writer) error {
		n, err := store.WipeParticipant(ctx, core.NewTenantKey(adminTenant, "", adminParticipant))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s deleted %d durable records\n", ui.TitleStyle.Render("WIPE"), n)
		return err
	}),
}

var shippingCmd = &cobra.Command{
	Use:   "shipping <city> <estimate>",
	Short: "Set the delivery estimate of a city for --tenant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, done := adminContext(cmd)
		defer done()

		cfg := loadAppConfig(ctx)
		repos, err := initStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer repos.close()

		if err := repos.shipping.UpsertZone(ctx, adminTenant, args[0], args[1]); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", ui.TitleStyle.Render("SHIPPING"), core.NormalizeCity(args[0]), args[1])
		return err
	},
}

type storeOp func(ctx context.Context, store *memory.Store, out io.Writer) error

func withStore(op storeOp) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, done := adminContext(cmd)
		defer done()

		cfg := loadAppConfig(ctx)
		repos, err := initStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer repos.close()

		store, _ := initMemory(cfg, repos)
		return op(ctx, store, cmd.OutOrStdout())
	}
}

func adminContext(cmd *cobra.Command) (context.Context, func()) {
	return setupLogger(cmd.Context())
}

func printJSON(out io.Writer, title string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n%s\n", ui.TitleStyle.Render(title), data)
	return err
}

func init() {
	sweepCmd.Flags().StringVar(&adminTenant, "tenant", "", "tenant to sweep")

	repairCmd.Flags().StringVar(&adminTenant, "tenant", "", "tenant receiving orphaned memory")
	_ = repairCmd.MarkFlagRequired("tenant")

	wipeCmd.Flags().StringVar(&adminTenant, "tenant", "", "tenant id")
	wipeCmd.Flags().StringVar(&adminParticipant, "participant", "", "participant id")
	_ = wipeCmd.MarkFlagRequired("tenant")
	_ = wipeCmd.MarkFlagRequired("participant")

	shippingCmd.Flags().StringVar(&adminTenant, "tenant", "", "tenant id")
	_ = shippingCmd.MarkFlagRequired("tenant")

	memoryCmd.AddCommand(sweepCmd, auditCmd, repairCmd, wipeCmd)
	rootCmd.AddCommand(memoryCmd, shippingCmd)
}
