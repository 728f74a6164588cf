package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/pipeline"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var (
		profileName string
		out         string
		offline     bool
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Search the Places API with a collection profile and write the parks as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, ok := pipeline.LookupProfile(profileName)
			if !ok {
				return fmt.Errorf("unknown profile %q (available: %s)", profileName, strings.Join(pipeline.ProfileNames(), ", "))
			}
			if out == "" {
				out = filepath.Join("data", profile.Name+"-parks.json")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.placesClient(cfg)
			if err != nil {
				return err
			}

			lock, err := lockArtifact(out)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			run, err := newCollectionRun(cmd.Context(), ctx, cfg, profile, offline)
			if err != nil {
				return err
			}

			log := ctx.logger()
			result, err := pipeline.NewCollector(client, run, cfg.Pipeline.RateLimitDelay, log).Run(cmd.Context(), profile)
			if err != nil {
				return err
			}

			if err := writeParks(out, result.Parks); err != nil {
				return err
			}
			log.Info("collection written", zap.String("run_id", result.RunID), zap.String("path", out), zap.Int("parks", len(result.Parks)))

			printCollectSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "texas", "Collection profile ("+strings.Join(pipeline.ProfileNames(), ", ")+")")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default data/<profile>-parks.json)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not check slugs already stored in the database")

	return cmd
}

// newCollectionRun builds the pipeline for one collection. Online runs seed
// the slug registry from the store so new slugs never collide with stored ones.
func newCollectionRun(ctx context.Context, cc *commandContext, cfg *config.Config, profile pipeline.Profile, offline bool) (*pipeline.Pipeline, error) {
	if offline || !cfg.Pipeline.CheckPersistedSlugs {
		rules, tables, err := cc.classification(cfg)
		if err != nil {
			return nil, err
		}
		return pipeline.New(cfg.Pipeline, rules, tables, nil, cc.logger(), profile.BuilderOptions()...), nil
	}

	var run *pipeline.Pipeline
	err := cc.withStore(ctx, func(_ *config.Config, _ repository.ParksRepository, parks *service.ParksService) error {
		var err error
		run, err = parks.NewRun(ctx, profile.BuilderOptions()...)
		return err
	})
	return run, err
}

// lockArtifact takes an exclusive lock next to path so two collections can
// not write the same artifact.
func lockArtifact(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another collection is writing %s", path)
	}
	return lock, nil
}

// writeParks replaces path with the JSON array of parks.
func writeParks(path string, parks []entity.Park) error {
	if parks == nil {
		parks = []entity.Park{}
	}
	data, err := json.MarshalIndent(parks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode parks: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write parks: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func printCollectSummary(cmd *cobra.Command, result *pipeline.Result) {
	w := cmd.OutOrStdout()
	r := result.Report
	printSummary(w, "Collection "+result.Profile,
		count("queries", result.Queries),
		count("candidates", result.Candidates),
		count("parks built", r.Built),
		count("duplicates", r.Duplicates),
		count("rentals excluded", r.Rentals),
		count("out of region", r.OutOfRegion),
		count("missing id", r.SkippedMissingID),
		count("invalid", r.Invalid),
		count("search errors", r.SearchErrors),
		count("detail errors", r.DetailErrors),
	)

	dist := pipeline.MetroDistribution(result.Parks)
	rows := make([][]string, len(dist))
	for i, m := range dist {
		rows[i] = []string{m.MetroArea, strconv.Itoa(m.Count)}
	}
	fmt.Fprintln(w, renderTable("Metro areas", []string{"Metro", "Parks"}, rows, []columnAlignment{alignLeft, alignRight}))
}
