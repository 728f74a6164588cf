package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert a collected JSON file into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
				summary, err := parks.ImportFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printImportSummary(cmd, summary)
				return nil
			})
		},
	}
}

func newImportCSVCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv <file>",
		Short: "Build and upsert the rows of a reviewed CSV whose keep column is TRUE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
				summary, report, err := parks.ImportCSV(cmd.Context(), file)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), "CSV rows",
					count("built", report.Built),
					count("duplicates", report.Duplicates),
					count("rentals excluded", report.Rentals),
					count("invalid", report.Invalid),
				)
				printImportSummary(cmd, summary)
				return nil
			})
		},
	}
}

func printImportSummary(cmd *cobra.Command, summary dto.ImportSummary) {
	w := cmd.OutOrStdout()
	printSummary(w, "Import",
		count("imported", summary.Imported),
		count("skipped", summary.Skipped),
	)
	for _, msg := range summary.Errors {
		fmt.Fprintln(w, "  skipped:", msg)
	}
}
