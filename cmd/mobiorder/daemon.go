package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobiorder/mobiorder/internal/daemon"
	"github.com/mobiorder/mobiorder/internal/dashboard"
	"github.com/mobiorder/mobiorder/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync and outbox loops",
	Long: `Run mobiorder as a long-lived process:

  1. Refreshes the local catalog on the configured interval
  2. Retries queued carts and visit notes with backoff
  3. Purges confirmed carts past the retention window
  4. Optionally serves a WebSocket dashboard with live progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		cfg := daemon.DefaultConfig()
		cfg.SyncInterval = a.cfg.SyncInterval
		cfg.RetentionDays = a.cfg.RetentionDays

		d := daemon.New(a.orch, a.carts, a.outbox, a.resolver, a.sess, cfg, a.log)

		if withDashboard {
			srv := dashboard.NewServer(a.cfg.DashboardAddr, a.log)
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Stop()
			rep := daemon.NewDashboardReporter(srv)
			a.orch.SetReporter(rep)
			d.SetEvents(rep)
			fmt.Printf("%s Dashboard at http://%s\n", ui.RenderAccent("📊"), srv.Addr())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Daemon running, sync every %v\n", ui.RenderAccent("🚀"), cfg.SyncInterval)
		return d.Start(ctx)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the local data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fmt.Printf("\n%s\n\n", ui.RenderHeader("MobiOrder Status"))

		usable, err := a.orch.CheckDB(ctx)
		if err != nil {
			return err
		}
		if !usable {
			fmt.Printf("%s Local data not initialized, run `mobiorder sync`\n", ui.RenderWarn("⚠"))
			return nil
		}

		age, ok, err := a.orch.LastSyncAge(ctx)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("Last sync: %v ago\n", age.Round(time.Second))
		} else {
			fmt.Println("Last sync: never")
		}

		for _, table := range []string{"products", "customers", "prices"} {
			n, err := a.store.CountRows(ctx, table)
			if err != nil {
				continue
			}
			fmt.Printf("%-10s %d rows\n", table+":", n)
		}

		if customer, ok := a.sess.Customer(); ok {
			visible, err := a.resolver.VisibleCount(ctx)
			if err == nil {
				fmt.Printf("Customer:  %s (%d/%d), %d products visible\n",
					customer.Name, customer.ID, customer.AddressID, visible)
			}
		}

		pending, err := a.carts.PendingRetry(ctx)
		if err == nil && len(pending) > 0 {
			fmt.Printf("%s %d cart(s) waiting for confirmation\n", ui.RenderWarn("⚠"), len(pending))
		}
		return nil
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "serve the WebSocket dashboard")
}
