package main

import (
	"fmt"
	"strconv"

	"github.com/finsight/finsight/internal/analysis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Show ranked recommendations for a user",
		Long: `Generate recommendations from the user's behavior profile, ordered by
priority and confidence. Each recommendation explains which risk factor
triggered it and what addressing it is expected to achieve.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecommend,
	}

	cmd.Flags().Int("window", 0, "Analysis window in months (default 12)")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}

	window, _ := cmd.Flags().GetInt("window")
	if window <= 0 {
		window = viper.GetInt("analysis.window_months")
	}

	wh, err := openWarehouse()
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	analyzer := analysis.NewWithWindow(wh, window)
	profile, err := analyzer.Profile(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	recs := analysis.NewRecommender().Generate(profile)

	fmt.Println(headerStyle.Render(fmt.Sprintf("Recommendations for user %d", userID)))

	if profile.InsufficientData {
		fmt.Println(mutedStyle.Render("  no monthly history in the warehouse yet; run sync first"))
		return nil
	}
	if len(recs) == 0 {
		fmt.Println(successStyle.Render("  no risk factors detected; nothing to recommend"))
		return nil
	}

	for i, rec := range recs {
		// Priorities share the severity palette: high renders red.
		priority := classStyle(string(rec.Priority)).Render(string(rec.Priority))
		fmt.Printf("\n%d. %s [%s, confidence %.2f]\n", i+1, headerStyle.Render(rec.Title), priority, rec.Confidence)
		fmt.Printf("   %s\n", rec.Rationale)
		fmt.Printf("   %s %s\n", mutedStyle.Render("expected impact:"), rec.ExpectedImpact)
	}

	return nil
}
