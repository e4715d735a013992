package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"snap2sell/ml"
	"snap2sell/models"
	"snap2sell/utils"

	"github.com/spf13/cobra"
)

func newMLCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ml",
		Short: "Crop analysis and price models",
	}

	analyze := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Identify a crop from a photo and suggest a price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			f, err := os.Open(args[0])
			if err != nil {
				return failure(out, "Cannot open image: "+err.Error())
			}
			defer f.Close()

			res, err := rt.app.ML.AnalyzeImage(cmd.Context(), filepath.Base(args[0]), f)
			if errors.Is(err, ml.ErrNoImage) || errors.Is(err, ml.ErrBadImage) {
				return failure(out, "Not a readable image")
			}
			if err != nil {
				return apiFailure(out, err, "Failed to analyze image")
			}
			table(out, "FIELD\tVALUE", func(tw io.Writer) {
				fmtRow(tw, "crop", res.CropName)
				fmtRow(tw, "quality", res.Quality)
				fmtRow(tw, "confidence", fmt.Sprintf("%.0f%%", res.Confidence*100))
				fmtRow(tw, "suggested price", utils.FormatPrice(res.SuggestedPrice))
				fmtRow(tw, "description", utils.Truncate(res.Description, 80))
			})
			return nil
		},
	}

	var cond models.CropConditions
	recommendCrops := &cobra.Command{
		Use:   "recommend-crops",
		Short: "Suggest crops for soil, season and weather",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.ML.RecommendCrops(cmd.Context(), cond)
			if err != nil {
				return apiFailure(out, err, "Failed to get recommendations")
			}
			return printJSON(out, res)
		},
	}
	recommendCrops.Flags().StringVar(&cond.SoilType, "soil", "loamy", "soil type")
	recommendCrops.Flags().StringVar(&cond.Season, "season", "kharif", "season")
	recommendCrops.Flags().Float64Var(&cond.Rainfall, "rainfall", 0, "rainfall in mm")
	recommendCrops.Flags().IntVar(&cond.Temperature, "temperature", 0, "temperature in °C")
	recommendCrops.Flags().IntVar(&cond.Humidity, "humidity", 0, "relative humidity %")

	var pq models.PriceQuery
	predictPrice := &cobra.Command{
		Use:   "predict-price <crop>",
		Short: "Predict a market price for a crop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			q := pq
			q.CropName = strings.TrimSpace(args[0])
			if q.CropName == "" {
				return failure(out, "Crop name is required")
			}
			res, err := rt.app.ML.PredictPrice(cmd.Context(), q)
			if err != nil {
				return apiFailure(out, err, "Failed to predict price")
			}
			return printJSON(out, res)
		},
	}
	predictPrice.Flags().IntVar(&pq.Quantity, "quantity", 0, "quantity")
	predictPrice.Flags().StringVar(&pq.Quality, "quality", "", "quality grade")
	predictPrice.Flags().StringVar(&pq.Location, "location", "", "market location")
	predictPrice.Flags().Float64Var(&pq.Rainfall, "rainfall", 0, "rainfall in mm")

	var n int
	recommendProducts := &cobra.Command{
		Use:   "recommend-products",
		Short: "Products picked for you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.ML.RecommendProducts(cmd.Context(), n)
			if err != nil {
				return apiFailure(out, err, "Failed to get recommendations")
			}
			printProducts(out, models.Page[models.Product]{Data: res, Pagination: models.Pagination{Total: len(res)}}, 1)
			return nil
		},
	}
	recommendProducts.Flags().IntVarP(&n, "count", "n", 5, "how many products")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show the loaded models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			res, err := rt.app.ML.ModelInfo(cmd.Context())
			if err != nil {
				return apiFailure(out, err, "Failed to load model info")
			}
			return printJSON(out, res)
		},
	}

	cmd.AddCommand(analyze, recommendCrops, predictPrice, recommendProducts, info)
	return cmd
}
