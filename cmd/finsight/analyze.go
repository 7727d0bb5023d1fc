package main

import (
	"fmt"
	"strconv"

	"github.com/finsight/finsight/internal/analysis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <user-id>",
		Short: "Show a user's behavior profile",
		Long: `Derive volatility, spike, and risk signals from the user's warehouse
summaries over the analysis window.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Int("window", 0, "Analysis window in months (default 12)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	fmt.Println(headerStyle.Render(fmt.Sprintf("Behavior profile for user %d", userID)))

	if profile.InsufficientData {
		fmt.Println(mutedStyle.Render("  no monthly history in the warehouse yet; run sync first"))
		return nil
	}

	confidence := ""
	if profile.LowConfidence {
		confidence = warnStyle.Render("  (low confidence: fewer than 3 months of history)")
	}
	fmt.Printf("  %s %d%s\n", mutedStyle.Render("months analyzed:"), profile.MonthsAnalyzed, confidence)

	fmt.Printf("  %s %.1f%% (%s)\n", mutedStyle.Render("volatility:"),
		profile.VolatilityScore, classStyle(string(profile.VolatilityClass)).Render(string(profile.VolatilityClass)))
	fmt.Printf("  %s %.1f%%\n", mutedStyle.Render("savings rate:"), profile.SavingsRate)
	fmt.Printf("  %s %+.1f%%\n", mutedStyle.Render("expense growth:"), profile.ExpenseGrowth*100)
	fmt.Printf("  %s %.0f/100 (%s)\n", mutedStyle.Render("risk score:"),
		profile.RiskScore, classStyle(string(profile.RiskClass)).Render(string(profile.RiskClass)))

	if len(profile.RiskFactors) > 0 {
		fmt.Println(mutedStyle.Render("  risk factors:"))
		for _, factor := range profile.RiskFactors {
			fmt.Printf("    - %s\n", factor)
		}
	}

	if len(profile.SpikeEvents) > 0 {
		fmt.Printf("  %s %d days (%.1f%% of expense days)\n", mutedStyle.Render("expense spikes:"),
			len(profile.SpikeEvents), profile.SpikeFrequency*100)
		for _, spike := range profile.SpikeEvents {
			fmt.Printf("    - %s: %s (%.1f sigma above mean)\n",
				spike.DateKey.Time().Format("2006-01-02"), spike.Amount.StringFixed(2), spike.Deviation)
		}
	}

	return nil
}
