package commands

import (
	"fmt"
	"io"
	"strconv"

	"snap2sell/models"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func printCart(w io.Writer, items []models.LineItem) {
	if len(items) == 0 {
		dimColor.Fprintln(w, "Cart is empty")
		return
	}
	table(w, "ID\tNAME\tPRICE\tQTY\tSUBTOTAL", func(tw io.Writer) {
		for _, it := range items {
			fmtRow(tw, it.ProductID, utils.Truncate(it.Name, 32), utils.FormatPrice(it.Price), it.Quantity, utils.FormatPrice(it.Subtotal()))
		}
	})
	okColor.Fprintf(w, "Total %s (%d items)\n", utils.FormatPrice(models.CartTotal(items)), len(items))
}

func newCartCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printCart(cmd.OutOrStdout(), rt.app.Cart.Get(cmd.Context()))
		},
	}

	var p models.CartProduct
	add := &cobra.Command{
		Use:   "add <productId>",
		Short: "Add a product (again) to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			item := p
			item.ProductID = args[0]
			if !cmd.Flags().Changed("price") {
				product, err := rt.app.Products.Get(cmd.Context(), args[0])
				if err != nil {
					return apiFailure(out, err, "Product not found")
				}
				item = product.CartProduct()
			}
			items := rt.app.Cart.Add(cmd.Context(), item)
			printOK(out, "Added %s", args[0])
			printCart(out, items)
			return nil
		},
	}
	add.Flags().StringVar(&p.Name, "name", "", "name to show (skips the product lookup with --price)")
	add.Flags().Float64Var(&p.Price, "price", 0, "unit price (skips the product lookup)")
	add.Flags().StringVar(&p.ImageURL, "image-url", "", "image URL")

	qty := &cobra.Command{
		Use:   "qty <productId> <quantity>",
		Short: "Set a line item's quantity (minimum 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return failure(cmd.OutOrStdout(), "Quantity must be a number")
			}
			printCart(cmd.OutOrStdout(), rt.app.Cart.UpdateQuantity(cmd.Context(), args[0], n))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm <productId>",
		Aliases: []string{"remove"},
		Short:   "Remove a line item",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printCart(cmd.OutOrStdout(), rt.app.Cart.Remove(cmd.Context(), args[0]))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			rt.app.Cart.Clear(cmd.Context())
			printOK(cmd.OutOrStdout(), "Cart cleared")
		},
	}

	total := &cobra.Command{
		Use:   "total",
		Short: "Print the cart total",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d items)\n", utils.FormatPrice(rt.app.Cart.Total(ctx)), rt.app.Cart.Count(ctx))
		},
	}

	cmd.AddCommand(list, add, qty, rm, clearCmd, total)
	return cmd
}

func newCheckoutCommand(rt *runtime) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			if !rt.app.Session.IsAuthenticated(ctx) {
				return failure(out, "Not logged in")
			}
			if address == "" {
				if u := rt.app.Session.User(); u != nil {
					address = u.Address
				}
			}
			res := rt.app.Checkout.Submit(ctx, address)
			if !res.Success {
				return failure(out, res.Message)
			}
			printOK(out, "%s Order %s, total %s", res.Message, res.Order.OrderID, utils.FormatPrice(res.Order.Total))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "shipping address (defaults to your profile address)")
	return cmd
}
