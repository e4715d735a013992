package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"snap2sell/models"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func newOrdersCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"o"},
		Short:   "Track and manage orders",
	}

	var page, limit int
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			filter := models.OrderFilter{Status: models.OrderStatus(strings.ToLower(status))}
			if filter.Status != "" && !filter.Status.Valid() {
				return failure(out, "Unknown status "+status)
			}
			res, err := rt.app.Orders.List(cmd.Context(), page, limit, filter)
			if err != nil {
				return apiFailure(out, err, "Failed to load orders")
			}
			if len(res.Data) == 0 {
				dimColor.Fprintln(out, "No orders yet")
				return nil
			}
			table(out, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED", func(tw io.Writer) {
				for _, o := range res.Data {
					fmtRow(tw, o.OrderID, o.Status, len(o.Items), utils.FormatPrice(o.Total), utils.FormatTime(o.CreatedAt))
				}
			})
			p, _ := utils.ClampPage(page, limit)
			pageFooter(out, p, res.TotalPages(), res.Pagination.Total)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", utils.DefaultLimit, "items per page")
	list.Flags().StringVar(&status, "status", "", "only orders in this status")

	show := &cobra.Command{
		Use:   "show <orderId>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			o, err := rt.app.Orders.Get(cmd.Context(), args[0])
			if err != nil {
				return apiFailure(out, err, "Order not found")
			}
			fmt.Fprintf(out, "Order %s  %s  %s\n", o.OrderID, strings.ToUpper(string(o.Status)), utils.FormatTime(o.CreatedAt))
			if o.ShippingAddress != "" {
				dimColor.Fprintf(out, "Ship to %s\n", o.ShippingAddress)
			}
			table(out, "ITEM\tQTY\tPRICE", func(tw io.Writer) {
				for _, it := range o.Items {
					fmtRow(tw, utils.Truncate(it.DisplayName(), 40), it.Quantity, utils.FormatPrice(it.Price))
				}
			})
			okColor.Fprintf(out, "Total %s\n", utils.FormatPrice(o.Total))
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <orderId>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Orders.Cancel(cmd.Context(), args[0]); err != nil {
				return apiFailure(out, err, "Failed to cancel order")
			}
			printOK(out, "Order %s cancelled", args[0])
			return nil
		},
	}

	setStatus := &cobra.Command{
		Use:   "status <orderId> <status>",
		Short: "Move an order to a new status (farmers and admins)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			st := models.OrderStatus(strings.ToLower(args[1]))
			if !st.Valid() {
				return failure(out, "Unknown status "+args[1])
			}
			if err := rt.app.Orders.UpdateStatus(cmd.Context(), args[0], st); err != nil {
				return apiFailure(out, err, "Failed to update order")
			}
			printOK(out, "Order %s is now %s", args[0], st)
			return nil
		},
	}

	var output string
	receiptCmd := &cobra.Command{
		Use:   "receipt <orderId>",
		Short: "Write a PDF receipt for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			o, err := rt.app.Orders.Get(cmd.Context(), args[0])
			if err != nil {
				return apiFailure(out, err, "Order not found")
			}
			pdf, err := rt.app.Receipts.Render(o, rt.app.Session.User())
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = "receipt-" + o.OrderID + ".pdf"
			}
			if err := os.WriteFile(path, pdf, 0o644); err != nil {
				return fmt.Errorf("write receipt: %w", err)
			}
			printOK(out, "Receipt written to %s", path)
			return nil
		},
	}
	receiptCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default receipt-<id>.pdf)")

	cmd.AddCommand(list, show, cancel, setStatus, receiptCmd)
	return cmd
}
