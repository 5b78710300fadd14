package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whimapp/discovery-cli/internal/filter"
	"github.com/whimapp/discovery-cli/internal/model"
)

var (
	discoverLat      float64
	discoverLng      float64
	discoverCategory string
	discoverMood     int
	discoverDistance int
	discoverSocial   string
	discoverBudget   string
	discoverTime     string
	discoverBatches  int
)

// discoverOutput is the JSON document the command prints: every batch served
// plus any normalization warnings.
type discoverOutput struct {
	Batches  []*model.DiscoveryResult `json:"batches"`
	Warnings []filter.Warning         `json:"warnings,omitempty"`
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover places for a mood and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		raw := map[string]any{
			"origin":        map[string]any{"lat": discoverLat, "lng": discoverLng},
			"category":      discoverCategory,
			"mood":          discoverMood,
			"distanceRange": discoverDistance,
		}
		if discoverSocial != "" {
			raw["socialContext"] = discoverSocial
		}
		if discoverBudget != "" {
			raw["budget"] = discoverBudget
		}
		if discoverTime != "" {
			raw["timeOfDay"] = discoverTime
		}

		res, warnings, err := env.Engine.Discover(ctx, raw)
		if err != nil {
			return err
		}
		journalBatch(ctx, env.Store, res)

		out := discoverOutput{Batches: []*model.DiscoveryResult{res}, Warnings: warnings}
		for i := 1; i < discoverBatches && res.State == model.LoadingComplete; i++ {
			res, _, err = env.Engine.NextBatch(ctx, raw)
			if err != nil {
				zap.L().Warn("next batch failed", zap.Int("batch", i), zap.Error(err))
				break
			}
			journalBatch(ctx, env.Store, res)
			out.Batches = append(out.Batches, res)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	discoverCmd.Flags().Float64Var(&discoverLat, "lat", 0, "origin latitude (required)")
	discoverCmd.Flags().Float64Var(&discoverLng, "lng", 0, "origin longitude (required)")
	discoverCmd.Flags().StringVar(&discoverCategory, "category", "", "category: food, activity, or something_new (required)")
	discoverCmd.Flags().IntVar(&discoverMood, "mood", 50, "mood energy 0-100 (0 calm, 100 amped)")
	discoverCmd.Flags().IntVar(&discoverDistance, "distance", 50, "distance range 0-100")
	discoverCmd.Flags().StringVar(&discoverSocial, "social", "", "social context: solo, paired, or group")
	discoverCmd.Flags().StringVar(&discoverBudget, "budget", "", "budget band: low, mid, or high")
	discoverCmd.Flags().StringVar(&discoverTime, "time", "", "time of day: morning, afternoon, or night")
	discoverCmd.Flags().IntVar(&discoverBatches, "batches", 1, "number of batches to fetch")
	_ = discoverCmd.MarkFlagRequired("lat")
	_ = discoverCmd.MarkFlagRequired("lng")
	_ = discoverCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(discoverCmd)
}
