package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Confirm, reject and finalize pending transactions",
	}

	cmd.AddCommand(confirmCmd())
	cmd.AddCommand(rejectCmd())
	cmd.AddCommand(acceptAllCmd())
	cmd.AddCommand(finalizeCmd())
	cmd.AddCommand(abandonCmd())

	return cmd
}

func confirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm [transaction-id]",
		Short: "Confirm a transaction's classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountCode, _ := cmd.Flags().GetString("account")
			taxType, _ := cmd.Flags().GetString("tax-type")

			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.jobs.Confirm(cmd.Context(), args[0], accountCode, model.TaxType(taxType)); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("confirmed %s as %s / %s", args[0], accountCode, taxType)))
			return nil
		},
	}

	cmd.Flags().String("account", "", "account code from the chart of accounts")
	cmd.Flags().String("tax-type", "", "tax type, e.g. 'GST on Expenses'")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("tax-type")

	return cmd
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject [transaction-id]",
		Short: "Exclude a transaction from the commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.jobs.Reject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rejected %s", args[0])))
			return nil
		},
	}
}

func acceptAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept-all [job-id]",
		Short: "Confirm every transaction that has a usable suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			confirmed, err := application.jobs.AcceptAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("confirmed %d suggested transactions", confirmed)))
			if confirmed == 0 {
				fmt.Println(cli.FormatSubtle("remaining transactions need manual review"))
			}
			return nil
		},
	}
}

func finalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize [job-id]",
		Short: "Commit a fully reviewed job to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := application.jobs.Finalize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"committed: %d ledger entries written, %d patterns updated",
				result.LedgerEntriesWritten, result.PatternsUpdated)))
			return nil
		},
	}
}

func abandonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abandon [job-id]",
		Short: "Abandon a job without committing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")

			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.jobs.Abandon(cmd.Context(), args[0], reason); err != nil {
				return err
			}
			fmt.Println(cli.FormatWarning(fmt.Sprintf("abandoned job %s", args[0])))
			return nil
		},
	}

	cmd.Flags().String("reason", "", "why the job is being abandoned")

	return cmd
}
