package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
	"github.com/faceless-truth/mcs-platform/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsImportCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active accounts for an entity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entityID, _ := cmd.Flags().GetString("entity")

			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			accounts, err := application.storage.GetAccounts(cmd.Context(), entityID)
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				fmt.Println(cli.FormatSubtle("No accounts found. Import a chart with: mcs accounts import"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Chart of accounts for %s", entityID)))
			for _, a := range accounts {
				fmt.Printf("  %-6s %-40.40s %-12s %s\n", a.Code, a.Name, a.Section, a.TaxCode)
			}
			return nil
		},
	}

	cmd.Flags().String("entity", "", "entity ID")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func accountsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [csv-file]",
		Short: "Import a chart of accounts from CSV",
		Long: `Imports accounts from a CSV with columns: code, name, section, tax_code.
A header row is detected and skipped. Existing accounts are updated.`,
		Args: cobra.ExactArgs(1),
		RunE: runAccountsImport,
	}

	cmd.Flags().String("entity", "", "entity ID the accounts belong to")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runAccountsImport(cmd *cobra.Command, args []string) error {
	entityID, _ := cmd.Flags().GetString("entity")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	application, cleanup, err := newApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	imported := 0
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed CSV: %w", err)
		}
		if len(record) < 4 {
			skipped++
			continue
		}
		if strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}

		taxCode := model.TaxType(strings.TrimSpace(record[3]))
		if !taxCode.Valid() {
			fmt.Println(cli.FormatWarning(fmt.Sprintf(
				"skipping account %s: unknown tax code %q", record[0], record[3])))
			skipped++
			continue
		}

		account := &model.Account{
			EntityID: entityID,
			Code:     strings.TrimSpace(record[0]),
			Name:     strings.TrimSpace(record[1]),
			Section:  strings.TrimSpace(record[2]),
			TaxCode:  taxCode,
			IsActive: true,
		}
		if err := application.storage.SaveAccount(cmd.Context(), account); err != nil {
			return fmt.Errorf("failed to save account %s: %w", account.Code, err)
		}
		imported++
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("imported %d accounts (%d skipped)", imported, skipped)))
	return nil
}
