package commands

import (
	"errors"
	"io"

	"snap2sell/models"
	"snap2sell/reviews"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func reviewFailure(w io.Writer, err error, fallback string) error {
	if errors.Is(err, reviews.ErrInvalidReview) {
		return failure(w, "Rating must be between 1 and 5")
	}
	return apiFailure(w, err, fallback)
}

func newReviewsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Read and write product reviews",
	}

	list := &cobra.Command{
		Use:   "list <productId>",
		Short: "List a product's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.Reviews.ForProduct(cmd.Context(), args[0])
			if err != nil {
				return apiFailure(out, err, "Failed to load reviews")
			}
			table(out, "ID\tRATING\tBY\tDATE\tCOMMENT", func(tw io.Writer) {
				for _, r := range res {
					fmtRow(tw, r.ReviewID, r.Rating, r.UserName, utils.FormatDate(r.CreatedAt), utils.Truncate(r.Comment, 50))
				}
			})
			dimColor.Fprintf(out, "average %.1f over %d reviews\n", reviews.AverageRating(res), len(res))
			return nil
		},
	}

	var in models.ReviewInput
	add := &cobra.Command{
		Use:   "add <productId>",
		Short: "Review a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Reviews.Create(cmd.Context(), args[0], in); err != nil {
				return reviewFailure(out, err, "Failed to submit review")
			}
			printOK(out, "Review submitted")
			return nil
		},
	}
	add.Flags().IntVarP(&in.Rating, "rating", "r", 5, "rating 1-5")
	add.Flags().StringVarP(&in.Comment, "comment", "m", "", "comment")

	var patch models.ReviewInput
	update := &cobra.Command{
		Use:   "update <reviewId>",
		Short: "Change one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Reviews.Update(cmd.Context(), args[0], patch); err != nil {
				return reviewFailure(out, err, "Failed to update review")
			}
			printOK(out, "Review updated")
			return nil
		},
	}
	update.Flags().IntVarP(&patch.Rating, "rating", "r", 0, "rating 1-5")
	update.Flags().StringVarP(&patch.Comment, "comment", "m", "", "comment")

	del := &cobra.Command{
		Use:   "delete <reviewId>",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := rt.app.Reviews.Delete(cmd.Context(), args[0]); err != nil {
				return apiFailure(out, err, "Failed to delete review")
			}
			printOK(out, "Review deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}
