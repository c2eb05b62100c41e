package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect review jobs",
	}

	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsShowCmd())

	return cmd
}

func jobsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent review jobs for an entity",
		RunE:  runJobsList,
	}

	cmd.Flags().String("entity", "", "entity ID")
	cmd.Flags().Int("limit", 20, "maximum jobs to show")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	entityID, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")

	application, cleanup, err := newApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := application.storage.ListJobs(cmd.Context(), entityID, limit)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Println(cli.FormatSubtle("No review jobs found."))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Review jobs for %s", entityID)))
	for i := range jobs {
		j := &jobs[i]
		fmt.Printf("  %s  %-16s %3d%%  %s  %s\n",
			j.ID,
			statusLabel(j.Status),
			j.ProgressPercent(),
			j.ReceivedAt.Format("2006-01-02"),
			j.FileName)
	}
	return nil
}

func jobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [job-id]",
		Short: "Show a job and its pending transactions",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobsShow,
	}
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	application, cleanup, err := newApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	job, err := application.jobs.Progress(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Job %s", job.ID)))
	fmt.Printf("  Status:    %s\n", statusLabel(job.Status))
	fmt.Printf("  Entity:    %s\n", job.EntityID)
	fmt.Printf("  File:      %s\n", job.FileName)
	fmt.Printf("  Progress:  %d%% (%d confirmed, %d rejected of %d)\n",
		job.ProgressPercent(), job.ConfirmedCount, job.RejectedCount, job.TotalTransactions)
	if job.FailureReason != "" {
		fmt.Printf("  Failure:   %s\n", cli.FormatError(job.FailureReason))
	}
	if job.Statement.AccountName != "" {
		fmt.Printf("  Account:   %s (%s %s)\n",
			job.Statement.AccountName, job.Statement.BSB, job.Statement.AccountNumber)
	}

	txns, err := application.storage.GetJobTransactions(cmd.Context(), job.ID)
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		return nil
	}

	fmt.Println()
	for i := range txns {
		t := &txns[i]
		line := fmt.Sprintf("  %s  %s  %10s  %-40.40s",
			t.ID[:8],
			t.Transaction.Date.Format("2006-01-02"),
			t.Transaction.Amount.StringFixed(2),
			t.Transaction.Description)

		switch t.Status {
		case model.StatusConfirmed:
			line += cli.FormatSuccess(fmt.Sprintf("%s %s", t.ConfirmedAccountCode, t.ConfirmedTaxType))
		case model.StatusRejected:
			line += cli.FormatSubtle("rejected")
		default:
			if t.Suggestion.AccountCode != "" {
				line += fmt.Sprintf("%s %s (%s %.0f%%)",
					t.Suggestion.AccountCode, t.Suggestion.TaxType,
					t.Suggestion.Source, t.Suggestion.Confidence*100)
				if t.Suggestion.NeedsReview(application.cfg.Classification.ReviewThreshold) {
					line += " " + cli.FormatWarning("needs review")
				}
			} else {
				line += cli.FormatWarning("no suggestion")
			}
		}
		fmt.Println(line)
	}
	return nil
}

func statusLabel(status model.JobStatus) string {
	switch status {
	case model.JobCommitted:
		return cli.SuccessStyle.Render(string(status))
	case model.JobFailed:
		return cli.ErrorStyle.Render(string(status))
	case model.JobAwaitingReview:
		return cli.WarningStyle.Render(string(status))
	default:
		return string(status)
	}
}
