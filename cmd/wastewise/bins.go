package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/common"
)

func binsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bins",
		Short: "Show bin fill levels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			bins, err := a.engine.Bins(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), bins)
			}
			return cli.RenderBins(cmd.OutOrStdout(), bins, a.cfg.Route.Threshold)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print bins as JSON")
	return cmd
}

func analyticsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show collector feedback statistics and bin status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			analytics, err := a.engine.Analytics(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), analytics)
			}
			return cli.RenderAnalytics(cmd.OutOrStdout(), analytics, a.cfg.Route.Threshold)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print analytics as JSON")
	return cmd
}

func routeCmd() *cobra.Command {
	var (
		every  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Plan a pickup route through bins that need collecting",
		Long: `Plan a round trip from the depot through every bin at or above the pickup
threshold (route.threshold, percent of capacity).

With --every the route is recomputed on a timer until interrupted. Each run
reloads bin state, so batches processed elsewhere are picked up.`,
		Example: `  wastewise route
  wastewise route --every 5m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			plan := func() error {
				return planRoute(cmd, cmd.OutOrStdout(), asJSON)
			}

			if every <= 0 {
				return plan()
			}

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				err := plan()
				switch {
				case errors.Is(err, common.ErrNoBinsEligible):
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%s No bins need pickup yet", time.Now().Format(time.TimeOnly))))
				case err != nil:
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "Recompute the route at this interval (e.g. 30s, 5m)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the route as JSON")
	return cmd
}

func planRoute(cmd *cobra.Command, w io.Writer, asJSON bool) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	solution, err := a.engine.OptimizedRoute(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(w, solution)
	}
	return cli.RenderRoute(w, solution)
}
