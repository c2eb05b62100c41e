package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
	"github.com/faceless-truth/mcs-platform/internal/model"
	"github.com/faceless-truth/mcs-platform/internal/parser"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a bank statement and classify its transactions",
		Long: `Parses a statement document (PDF, OFX or CSV), classifies every
transaction, and creates a review job awaiting confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("entity", "", "entity ID the statement belongs to")
	cmd.Flags().String("source", "", "source reference for audit purposes")
	cmd.Flags().String("format", "", "declared document format (pdf, ofx or csv) when sniffing cannot tell")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	entityID, _ := cmd.Flags().GetString("entity")
	source, _ := cmd.Flags().GetString("source")
	formatFlag, _ := cmd.Flags().GetString("format")
	path := args[0]

	declared, err := parser.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	application, cleanup, err := newApp(true)
	if err != nil {
		return err
	}
	defer cleanup()

	var bar *progressbar.ProgressBar
	var once sync.Once
	progress := func(done, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("classifying"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		})
		_ = bar.Set(done)
	}

	job, err := application.ingest.Ingest(cmd.Context(), entityID, source, filepath.Base(path), content, declared, progress)
	if err != nil {
		if job != nil {
			fmt.Println(cli.FormatError(fmt.Sprintf("job %s failed: %v", job.ID, err)))
		}
		return err
	}

	fmt.Println(cli.FormatTitle("Statement ingested"))
	fmt.Printf("  Job:          %s\n", job.ID)
	fmt.Printf("  Status:       %s\n", job.Status)
	fmt.Printf("  Transactions: %d\n", job.TotalTransactions)
	if job.Statement.AccountName != "" {
		fmt.Printf("  Account:      %s\n", job.Statement.AccountName)
	}
	if job.Statement.PeriodStart != "" {
		fmt.Printf("  Period:       %s to %s\n", job.Statement.PeriodStart, job.Statement.PeriodEnd)
	}

	if job.Status == model.JobAwaitingReview {
		fmt.Println(cli.FormatSubtle(fmt.Sprintf("\nReview with: mcs jobs show %s", job.ID)))
	}
	return nil
}
