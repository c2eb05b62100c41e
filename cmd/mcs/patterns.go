package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show learned classification patterns for an entity",
		RunE:  runPatterns,
	}

	cmd.Flags().String("entity", "", "entity ID")
	cmd.Flags().Int("top", 20, "number of patterns to show")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	entityID, _ := cmd.Flags().GetString("entity")
	top, _ := cmd.Flags().GetInt("top")

	application, cleanup, err := newApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := application.learning.Stats(cmd.Context(), entityID, top)
	if err != nil {
		return err
	}

	if stats.TotalPatterns == 0 {
		fmt.Println(cli.FormatSubtle("No learned patterns yet. Patterns accumulate as jobs are committed."))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Learned patterns for %s", entityID)))
	fmt.Printf("  %d patterns, %d total confirmations\n\n", stats.TotalPatterns, stats.TotalConfirmations)

	for _, p := range stats.TopPatterns {
		fmt.Printf("  %3dx  %-6s %-16s %-50.50s\n",
			p.ConfirmationCount, p.AccountCode, p.TaxType, p.DescriptionPattern)
	}
	return nil
}
