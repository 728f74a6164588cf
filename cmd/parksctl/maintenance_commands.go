package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var (
		ids    []string
		names  []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete parks by place id or exact name",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.RemoveParksRequest{IDs: compact(ids), Names: compact(names)}
			if len(req.IDs) == 0 && len(req.Names) == 0 {
				return errors.New("pass --ids or --names")
			}

			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
				w := cmd.OutOrStdout()
				preview, err := parks.PreviewRemoval(cmd.Context(), req)
				if err != nil {
					return err
				}
				rows := make([][]string, len(preview))
				for i, p := range preview {
					rows[i] = []string{p.ID, p.Name, p.City}
				}
				fmt.Fprintln(w, renderTable("Matching parks", []string{"ID", "Name", "City"}, rows, nil))
				if dryRun {
					return nil
				}

				summary, err := parks.RemoveParks(cmd.Context(), req)
				if err != nil {
					return err
				}
				printSummary(w, "Remove",
					count("requested", summary.Requested),
					count("removed", summary.Removed),
					count("remaining", summary.Remaining),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Place ids to delete (comma separated)")
	cmd.Flags().StringSliceVar(&names, "names", nil, "Exact park names to delete (comma separated); ignored when --ids is set")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list the matching parks")

	return cmd
}

func newReclassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify-metros",
		Short: "Recompute every park's metro area from its city",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
				summary, err := parks.ReclassifyMetros(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				names := make([]string, 0, len(summary.Changes))
				for name := range summary.Changes {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, len(names))
				for i, name := range names {
					rows[i] = []string{name, summary.Changes[name]}
				}
				if len(rows) > 0 {
					fmt.Fprintln(w, renderTable("Changes", []string{"Park", "Metro"}, rows, nil))
				}
				printSummary(w, "Reclassify",
					count("checked", summary.Checked),
					count("updated", summary.Updated),
					count("failed", summary.Failed),
				)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show directory counts by state, metro and city",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
				stats, err := parks.Stats(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				printSummary(w, "Directory",
					count("parks", stats.Total),
					count("with images", stats.WithImages),
				)
				fmt.Fprintln(w, countTable("States", stats.ByState, top))
				fmt.Fprintln(w, countTable("Metro areas", stats.ByMetro, top))
				fmt.Fprintln(w, countTable("Cities", stats.ByCity, top))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Rows per table (0 for all)")
	return cmd
}

func countTable(title string, counts []dto.CountRow, top int) string {
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Value, strconv.Itoa(c.Count)}
	}
	return renderTable(title, []string{"", "Parks"}, rows, []columnAlignment{alignLeft, alignRight})
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
