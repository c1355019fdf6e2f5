package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login <username> <token>",
	Short: "Store the credential issued by the portal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt("user-id")
		userType, _ := cmd.Flags().GetInt("user-type")

		cred := model.Credential{
			Username: args[0],
			Token:    args[1],
			UserID:   userID,
			UserType: userType,
		}
		if err := a.sess.SetCredential(cred); err != nil {
			return err
		}
		a.client.SetToken(cred.Token)
		fmt.Printf("%s Logged in as %s\n", ui.RenderPass("✓"), cred.Username)
		return nil
	},
}

var customerCmd = &cobra.Command{
	Use:   "customer <id> <addressId>",
	Short: "Select the active customer and rebuild product visibility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid customer id %q", args[0])
		}
		addressID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid address id %q", args[1])
		}
		ctx := cmd.Context()

		customer := model.Customer{ID: id, AddressID: addressID}
		err = a.store.QueryRow(ctx,
			"SELECT id, addressId, addressGroupId, name, city FROM customers WHERE id = ? AND addressId = ?",
			id, addressID).Scan(&customer.ID, &customer.AddressID,
			&customer.AddressGroupID, &customer.Name, &customer.City)
		if err != nil {
			return fmt.Errorf("customer %d/%d not in local data: %w", id, addressID, err)
		}

		if err := a.sess.SetCustomer(customer); err != nil {
			return err
		}
		if err := a.resolver.Prepare(ctx, customer); err != nil {
			return fmt.Errorf("resolve visibility: %w", err)
		}
		if err := a.carts.UpdateActive(ctx, customer.ID, customer.AddressID); err != nil {
			return err
		}

		visible, err := a.resolver.VisibleCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s Selected %s (%s), %d products visible\n",
			ui.RenderPass("✓"), customer.Name, customer.City, visible)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local catalog from the server",
	Long: `Refresh every synced data domain whose server checksum changed.

Domains land in waves; a failing domain keeps its previous snapshot and is
retried on the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")
		cred, ok := a.sess.Credential()
		if !ok {
			return fmt.Errorf("not logged in, run `mobiorder login` first")
		}

		if err := a.orch.Initialize(ctx); err != nil {
			return err
		}

		fmt.Printf("%s Syncing from %s...\n", ui.RenderAccent("🔄"), a.cfg.APIURL)
		res, err := a.orch.FullSync(ctx, cred, a.sess.Culture(), force)
		if err != nil {
			return err
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), res.Duration.Round(time.Millisecond))
		fmt.Printf("   Refreshed: %d\n", len(res.Synced))
		fmt.Printf("   Unchanged: %d\n", len(res.Unchanged))
		if len(res.Failed) > 0 {
			fmt.Printf("   %s Failed: %v\n", ui.RenderWarn("⚠"), res.Failed)
		}

		// Rebuild visibility for the selected customer against the new data.
		if customer, ok := a.sess.Customer(); ok {
			if err := a.resolver.Prepare(ctx, customer); err != nil {
				fmt.Printf("   %s Visibility not refreshed: %v\n", ui.RenderWarn("⚠"), err)
			}
		}
		return nil
	},
}

var visibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Rebuild product visibility for the selected customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		customer, ok := a.sess.Customer()
		if !ok {
			return fmt.Errorf("no customer selected, run `mobiorder customer` first")
		}
		if err := a.resolver.Prepare(ctx, customer); err != nil {
			return err
		}
		visible, err := a.resolver.VisibleCount(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d products visible for customer %d\n",
			ui.RenderPass("✓"), visible, customer.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().Int("user-id", 0, "server-side user id")
	loginCmd.Flags().Int("user-type", 0, "server-side user type")
	syncCmd.Flags().Bool("force", false, "re-fetch every domain, ignoring stored checksums")
}
