package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/ui"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage visit notes",
}

var notesAddCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Write a visit note for the selected customer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		customer, ok := a.sess.Customer()
		if !ok {
			return fmt.Errorf("no customer selected, run `mobiorder customer` first")
		}
		queue, _ := cmd.Flags().GetBool("queue")
		nextVisit, _ := cmd.Flags().GetString("next-visit")

		note := model.UnsentVisitNote{
			Customer:  customer.ID,
			Address:   customer.AddressID,
			Date:      time.Now(),
			Text:      strings.Join(args, " "),
			NextVisit: nextVisit,
		}
		if err := a.outbox.Save(cmd.Context(), &note, queue); err != nil {
			return err
		}
		state := "saved as draft"
		if queue {
			state = "queued for delivery"
		}
		fmt.Printf("%s Note %d %s\n", ui.RenderPass("✓"), note.ID, state)
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show notes for the selected customer, outbox first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		customer, ok := a.sess.Customer()
		if !ok {
			return fmt.Errorf("no customer selected")
		}

		unsent, err := a.outbox.Unsent(ctx, customer.ID, customer.AddressID)
		if err != nil {
			return err
		}
		for _, n := range unsent {
			marker := ui.RenderDim("draft")
			if n.ToSend {
				marker = ui.RenderWarn("queued")
			}
			fmt.Printf("%s %d  %s  %s\n", marker, n.ID,
				n.Date.Format("2006-01-02 15:04"), n.Text)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		sent, err := a.outbox.CustomerNotes(ctx, customer.ID, customer.AddressID, limit)
		if err != nil {
			return err
		}
		for _, n := range sent {
			fmt.Printf("%s    %s  %s\n", ui.RenderPass("sent"),
				n.Date.Format("2006-01-02 15:04"), n.Text)
		}
		if len(unsent) == 0 && len(sent) == 0 {
			fmt.Println("No notes for this customer.")
		}
		return nil
	},
}

var notesFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver every queued note",
	RunE: func(cmd *cobra.Command, args []string) error {
		sent, err := a.outbox.Flush(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s %d note(s) delivered\n", ui.RenderPass("✓"), sent)
		return nil
	},
}

func init() {
	notesAddCmd.Flags().Bool("queue", false, "queue the note for the next flush")
	notesAddCmd.Flags().String("next-visit", "", "planned next visit date")
	notesListCmd.Flags().Int("limit", 10, "max sent notes to show")
	notesCmd.AddCommand(notesAddCmd, notesListCmd, notesFlushCmd)
}
