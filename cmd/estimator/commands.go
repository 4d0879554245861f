package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mirzaik-wcc/contractorlens/internal/cache"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func estimateCmd() *cobra.Command {
	var (
		jobType     string
		finishLevel string
		zip         string
		hourlyRate  float64
		markup      float64
		taxRate     float64
		flat        bool
	)

	cmd := &cobra.Command{
		Use:   "estimate [takeoff.json]",
		Short: "Calculate an estimate for a raw or enhanced takeoff file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			t, err := readTakeoff(f)
			if err != nil {
				return fmt.Errorf("read takeoff %s: %w", args[0], err)
			}

			req := estimatedomain.CalculateRequest{
				Takeoff:      t,
				JobType:      jobType,
				FinishLevel:  finishLevel,
				ZipCode:      zip,
				UserSettings: userSettings(cmd, hourlyRate, markup, taxRate),
			}

			var svc estimatedomain.Service
			return withApp(cmd.Context(), func(ctx context.Context) error {
				est, err := svc.CalculateEstimate(ctx, req)
				if err != nil {
					return err
				}
				return writeEstimate(cmd, est, flat)
			}, &svc)
		},
	}

	cmd.Flags().StringVarP(&jobType, "job-type", "j", "", "job type (kitchen, bathroom, room, exterior, flooring, wall, ceiling)")
	cmd.Flags().StringVarP(&finishLevel, "finish-level", "f", "better", "finish level (good, better, best)")
	cmd.Flags().StringVarP(&zip, "zip", "z", "", "5 or 9 digit ZIP code of the job site")
	cmd.Flags().Float64Var(&hourlyRate, "hourly-rate", 0, "base labor rate, defaults to DEFAULT_HOURLY_RATE")
	cmd.Flags().Float64Var(&markup, "markup", 0, "markup percentage, defaults to DEFAULT_MARKUP_PERCENTAGE")
	cmd.Flags().Float64Var(&taxRate, "tax-rate", 0, "tax rate as a fraction, defaults to DEFAULT_TAX_RATE")
	cmd.Flags().BoolVar(&flat, "flat", false, "print line items without CSI division grouping")
	_ = cmd.MarkFlagRequired("job-type")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}

// userSettings passes only the flags the caller set, so unset values take the configured defaults.
func userSettings(cmd *cobra.Command, hourlyRate, markup, taxRate float64) *estimatedomain.UserSettings {
	settings := &estimatedomain.UserSettings{}
	if cmd.Flags().Changed("hourly-rate") {
		settings.HourlyRate = &hourlyRate
	}
	if cmd.Flags().Changed("markup") {
		settings.MarkupPercentage = &markup
	}
	if cmd.Flags().Changed("tax-rate") {
		settings.TaxRate = &taxRate
	}
	return settings
}

func writeEstimate(cmd *cobra.Command, est *estimatedomain.Estimate, flat bool) error {
	if !flat {
		return writeJSON(cmd, est)
	}
	return writeJSON(cmd, struct {
		LineItems  []estimatedomain.LineItem `json:"line_items"`
		GrandTotal string                    `json:"grand_total"`
		Metadata   estimatedomain.Metadata   `json:"metadata"`
	}{
		LineItems:  est.LineItems(),
		GrandTotal: est.GrandTotal.StringFixed(2),
		Metadata:   est.Metadata,
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog migrations, seeding the demo catalog when SEED_CATALOG is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var log *zap.Logger
			return withApp(cmd.Context(), func(context.Context) error {
				log.Info("catalog schema is up to date")
				return nil
			}, &log)
		},
	}
}

func flushCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop cached estimates, including the shared Redis tier when REDIS_ADDR is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var costCache *cache.CostCache
			return withApp(cmd.Context(), func(ctx context.Context) error {
				// Report what is being dropped; the estimate tier is the one shared across runs.
				if err := writeJSON(cmd, costCache.Stats()); err != nil {
					return err
				}
				return costCache.Flush(ctx)
			}, &costCache)
		},
	}
}

func warmCacheCmd() *cobra.Command {
	var zips, categories []string

	cmd := &cobra.Command{
		Use:   "warm-cache",
		Short: "Preload location and assembly tiers, then print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var costCache *cache.CostCache
			return withApp(cmd.Context(), func(ctx context.Context) error {
				if err := costCache.Warm(ctx, zips, categories); err != nil {
					return err
				}
				return writeJSON(cmd, costCache.Stats())
			}, &costCache)
		},
	}

	cmd.Flags().StringSliceVarP(&zips, "zip", "z", nil, "5-digit ZIP codes to preload, repeatable or comma separated")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "assembly categories to preload")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
