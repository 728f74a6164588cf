package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/geo"
	"github.com/bounceheads/directory/internal/ingest"
	"github.com/bounceheads/directory/internal/places"
)

// PlacesAPI is the part of the Places client a collection run needs.
type PlacesAPI interface {
	SearchText(ctx context.Context, query string, rect places.Rect) ([]json.RawMessage, error)
	Details(ctx context.Context, placeID string) (json.RawMessage, error)
}

// Result is the outcome of one collection run.
type Result struct {
	RunID      string
	Profile    string
	Queries    int
	Candidates int
	Parks      []entity.Park
	Report     Report
}

// Collector runs searches and detail lookups one at a time, pausing between
// upstream calls.
type Collector struct {
	api      PlacesAPI
	pipeline *Pipeline
	delay    time.Duration
	logger   *zap.Logger
}

// NewCollector builds a collector that waits delay between upstream calls.
func NewCollector(api PlacesAPI, p *Pipeline, delay time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{api: api, pipeline: p, delay: delay, logger: logger}
}

func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Run searches every profile query, keeps the first sighting of each place
// inside the region, fetches details for each and builds parks. Upstream
// failures skip the query or place; only context cancellation stops the run.
func (c *Collector) Run(ctx context.Context, profile Profile) (*Result, error) {
	delay := c.delay
	if profile.Delay > 0 {
		delay = profile.Delay
	}
	pacer := newPacer(delay)
	bounds := geo.NewBounds(profile.Rect.Low.Latitude, profile.Rect.Low.Longitude, profile.Rect.High.Latitude, profile.Rect.High.Longitude)

	result := &Result{RunID: uuid.NewString(), Profile: profile.Name}
	log := c.logger.With(zap.String("run_id", result.RunID), zap.String("profile", profile.Name))

	seen := classify.NewDedup()
	var candidates []ingest.Place

	for _, query := range profile.Queries {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("collection cancelled: %w", err)
		}
		result.Queries++

		raws, err := c.api.SearchText(ctx, query, profile.Rect)
		if err != nil {
			log.Warn("search failed", zap.String("query", query), zap.Error(err))
			result.Report.SearchErrors++
			continue
		}

		found, missing, invalid := ingest.DecodeAll(raws)
		result.Report.SkippedMissingID += missing
		result.Report.Invalid += invalid

		for _, place := range found {
			if !profile.Region.Match(place.FormattedAddress) {
				result.Report.OutOfRegion++
				continue
			}
			if !seen.Keep(place.ID) {
				result.Report.Duplicates++
				continue
			}
			if geo.Valid(place.Latitude, place.Longitude) && !bounds.Contains(place.Latitude, place.Longitude) {
				log.Debug("result outside search bounds", zap.String("place_id", place.ID), zap.String("name", place.Name))
			}
			candidates = append(candidates, place)
		}
		log.Info("search complete", zap.String("query", query), zap.Int("results", len(raws)), zap.Int("candidates", len(candidates)))
	}
	result.Candidates = len(candidates)

	details := make([]json.RawMessage, 0, len(candidates))
	for i, place := range candidates {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("collection cancelled: %w", err)
		}
		log.Debug("fetching details", zap.Int("index", i+1), zap.Int("total", len(candidates)), zap.String("name", place.Name))

		raw, err := c.api.Details(ctx, place.ID)
		if err != nil {
			log.Warn("details failed", zap.String("place_id", place.ID), zap.Error(err))
			result.Report.DetailErrors++
			continue
		}
		details = append(details, raw)
	}

	parks, report := c.pipeline.Process(details)
	result.Parks = parks
	result.Report.Add(report)

	log.Info("collection complete",
		zap.Int("queries", result.Queries),
		zap.Int("candidates", result.Candidates),
		zap.Int("built", result.Report.Built))
	return result, nil
}
