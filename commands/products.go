package commands

import (
	"io"

	"snap2sell/models"
	"snap2sell/products"
	"snap2sell/reviews"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func printProducts(w io.Writer, page models.Page[models.Product], current int) {
	table(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tRATING", func(tw io.Writer) {
		for _, p := range page.Data {
			fmtRow(tw, p.ProductID, utils.Truncate(p.Name, 32), p.Category, utils.FormatPrice(p.Price), p.Quantity, p.Rating)
		}
	})
	pageFooter(w, current, page.TotalPages(), page.Pagination.Total)
}

func productFlags(cmd *cobra.Command, in *models.ProductInput) {
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "product name")
	f.StringVar(&in.Description, "description", "", "description")
	f.Float64Var(&in.Price, "price", 0, "unit price")
	f.IntVar(&in.Quantity, "quantity", 0, "stock quantity")
	f.StringVar(&in.Category, "category", "", "category")
	f.StringVar(&in.SoilType, "soil", "", "soil type")
	f.StringVar(&in.Season, "season", "", "season")
	f.StringVar(&in.QualityGrade, "grade", "", "quality grade")
	f.StringVar(&in.Location, "location", "", "location")
	f.StringVar(&in.ImageURL, "image-url", "", "image URL")
}

func newProductsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "Browse and manage products",
	}

	var page, limit int
	var filter models.ProductFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List marketplace products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.Products.List(cmd.Context(), page, limit, filter)
			if err != nil {
				return apiFailure(out, err, "Failed to load products")
			}
			p, _ := utils.ClampPage(page, limit)
			printProducts(out, res, p)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", utils.DefaultLimit, "items per page")
	list.Flags().StringVar(&filter.Category, "category", "", "category filter")
	list.Flags().StringVar(&filter.Search, "search", "", "search text")

	show := &cobra.Command{
		Use:   "show <productId>",
		Short: "Show one product with its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p, err := rt.app.Products.Get(cmd.Context(), args[0])
			if err != nil {
				return apiFailure(out, err, "Product not found")
			}
			table(out, "FIELD\tVALUE", func(tw io.Writer) {
				fmtRow(tw, "id", p.ProductID)
				fmtRow(tw, "name", p.Name)
				fmtRow(tw, "category", p.Category)
				fmtRow(tw, "price", utils.FormatPrice(p.Price))
				fmtRow(tw, "stock", p.Quantity)
				fmtRow(tw, "grade", p.QualityGrade)
				fmtRow(tw, "location", p.Location)
				fmtRow(tw, "listed", utils.FormatTime(p.CreatedAt))
				fmtRow(tw, "description", utils.Truncate(p.Description, 80))
			})
			revs, err := rt.app.Reviews.ForProduct(cmd.Context(), p.ProductID)
			if err != nil {
				rt.log.WithError(err).Debug("Load reviews error")
				return nil
			}
			dimColor.Fprintf(out, "%d reviews, average %.1f\n", len(revs), reviews.AverageRating(revs))
			return nil
		},
	}

	var in models.ProductInput
	create := &cobra.Command{
		Use:   "create",
		Short: "List a new product (farmers)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if err := products.Validate(in, true); err != nil {
				return failure(out, err.Error())
			}
			id, err := rt.app.Products.Create(cmd.Context(), in)
			if err != nil {
				return apiFailure(out, err, "Failed to create product")
			}
			printOK(out, "Product %s created", id)
			return nil
		},
	}
	productFlags(create, &in)

	var patch models.ProductInput
	update := &cobra.Command{
		Use:   "update <productId>",
		Short: "Change a product you listed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := products.Validate(patch, false); err != nil {
				return failure(out, err.Error())
			}
			if err := rt.app.Products.Update(cmd.Context(), args[0], patch); err != nil {
				return apiFailure(out, err, "Failed to update product")
			}
			printOK(out, "Product %s updated", args[0])
			return nil
		},
	}
	productFlags(update, &patch)

	del := &cobra.Command{
		Use:   "delete <productId>",
		Short: "Remove a product you listed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Products.Delete(cmd.Context(), args[0]); err != nil {
				return apiFailure(out, err, "Failed to delete product")
			}
			printOK(out, "Product %s deleted", args[0])
			return nil
		},
	}

	var fpage, flimit int
	farmer := &cobra.Command{
		Use:   "farmer [farmerId]",
		Short: "List one farmer's products (yours by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			farmerID := ""
			if len(args) == 1 {
				farmerID = args[0]
			} else if u := rt.app.Session.User(); u != nil {
				farmerID = u.UserID
			}
			if farmerID == "" {
				return failure(out, "Not logged in")
			}
			res, err := rt.app.Products.ByFarmer(cmd.Context(), farmerID, fpage, flimit)
			if err != nil {
				return apiFailure(out, err, "Failed to load products")
			}
			p, _ := utils.ClampPage(fpage, flimit)
			printProducts(out, res, p)
			return nil
		},
	}
	farmer.Flags().IntVar(&fpage, "page", 1, "page number")
	farmer.Flags().IntVar(&flimit, "limit", utils.DefaultLimit, "items per page")

	cmd.AddCommand(list, show, create, update, del, farmer)
	return cmd
}
