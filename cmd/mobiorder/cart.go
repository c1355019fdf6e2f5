package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mobiorder/mobiorder/internal/cart"
	"github.com/mobiorder/mobiorder/internal/ui"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the order outbox",
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List carts the server has not confirmed",
	RunE: func(cmd *cobra.Command, args []string) error {
		carts, err := a.carts.Unsent(cmd.Context())
		if err != nil {
			return err
		}
		if len(carts) == 0 {
			fmt.Println("No open carts.")
			return nil
		}
		for _, c := range carts {
			marker := " "
			if c.Active {
				marker = ui.RenderAccent("*")
			}
			fmt.Printf("%s %d  %s  customer %d/%d  %d lines  [%s]\n",
				marker, c.ID, c.Name, c.Customer, c.Address, len(c.Products), c.State())
		}
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <productId> <amount>",
	Short: "Set an order line in the active cart",
	Long: `Set the quantity of a product in the cart for the selected customer,
creating the cart when none is open. Quantities are normalized against the
product's minimum order and stack size; an amount of -1 removes the line.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		productID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid product id %q", args[0])
		}
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		customer, ok := a.sess.Customer()
		if !ok {
			return fmt.Errorf("no customer selected, run `mobiorder customer` first")
		}

		if amount != -1 {
			var exists int
			err := a.store.QueryRow(ctx,
				"SELECT COUNT(*) FROM products WHERE id = ?", productID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists == 0 {
				return fmt.Errorf("product %d not in local data", productID)
			}
		}

		c, adj, err := a.carts.UpdateProduct(ctx, productID, amount, customer.ID, customer.AddressID)
		if err != nil {
			return err
		}
		if adj.MinOrderApplied || adj.StackRounded {
			fmt.Printf("%s Quantity adjusted %d → %d to fit packaging\n",
				ui.RenderWarn("⚠"), adj.Requested, adj.Amount)
		}
		fmt.Printf("%s Cart %d now has %d lines\n", ui.RenderPass("✓"), c.ID, len(c.Products))
		return nil
	},
}

var cartSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit the active cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cred, ok := a.sess.Credential()
		if !ok {
			return fmt.Errorf("not logged in")
		}
		active, err := a.carts.Active(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return cart.ErrNoActiveCart
		}
		if len(active.Products) == 0 {
			return fmt.Errorf("cart %d is empty", active.ID)
		}

		ok, err = a.carts.Send(ctx, cred, *active)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s Cart %d queued, no confirmation yet; it will be retried\n",
				ui.RenderWarn("⚠"), active.ID)
			return nil
		}
		fmt.Printf("%s Cart %d confirmed by the server\n", ui.RenderPass("✓"), active.ID)
		return nil
	},
}

var cartResendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Retry every queued cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		cred, ok := a.sess.Credential()
		if !ok {
			return fmt.Errorf("not logged in")
		}
		confirmed, err := a.carts.Resend(cmd.Context(), cred)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d cart(s) confirmed\n", ui.RenderPass("✓"), confirmed)
		return nil
	},
}

var cartCancelCmd = &cobra.Command{
	Use:   "cancel <cartId>",
	Short: "Take a queued cart back to an editable draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid cart id %q", args[0])
		}
		if err := a.carts.CancelSend(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("%s Cart %d reopened\n", ui.RenderPass("✓"), id)
		return nil
	},
}

var cartDeleteCmd = &cobra.Command{
	Use:   "delete <cartId>",
	Short: "Delete a cart with its lines and settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid cart id %q", args[0])
		}
		if err := a.carts.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("%s Cart %d deleted\n", ui.RenderPass("✓"), id)
		return nil
	},
}

var cartPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove confirmed carts past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = a.cfg.RetentionDays
		}
		purged, err := a.carts.DeleteOld(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Printf("%s Purged %d cart(s) older than %d days\n", ui.RenderPass("✓"), purged, days)
		return nil
	},
}

var cartHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List confirmed carts",
	RunE: func(cmd *cobra.Command, args []string) error {
		carts, err := a.carts.History(cmd.Context())
		if err != nil {
			return err
		}
		if len(carts) == 0 {
			fmt.Println("No confirmed carts.")
			return nil
		}
		for _, c := range carts {
			fmt.Printf("%d  %s  customer %d/%d  sent %s\n",
				c.ID, c.Name, c.Customer, c.Address,
				ui.RenderDim(c.SendDate.Format("2006-01-02 15:04")))
		}
		return nil
	},
}

func init() {
	cartPurgeCmd.Flags().Int("days", 0, "override the configured retention window")
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartSendCmd, cartResendCmd,
		cartCancelCmd, cartDeleteCmd, cartPurgeCmd, cartHistoryCmd)
}
