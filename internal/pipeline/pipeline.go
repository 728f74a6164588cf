// Package pipeline turns raw upstream place records into stored parks:
// ingestion, address and hours parsing, classification with dedup, then
// record building.
package pipeline

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/address"
	"github.com/bounceheads/directory/internal/builder"
	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/ingest"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/slug"
)

// Report counts what happened to each record of a run.
type Report struct {
	Built            int `json:"built"`
	SkippedMissingID int `json:"skippedMissingId"`
	Invalid          int `json:"invalid"`
	Duplicates       int `json:"duplicates"`
	Rentals          int `json:"rentals"`
	OutOfRegion      int `json:"outOfRegion"`
	SearchErrors     int `json:"searchErrors"`
	DetailErrors     int `json:"detailErrors"`
}

// Add accumulates other into r.
func (r *Report) Add(other Report) {
	r.Built += other.Built
	r.SkippedMissingID += other.SkippedMissingID
	r.Invalid += other.Invalid
	r.Duplicates += other.Duplicates
	r.Rentals += other.Rentals
	r.OutOfRegion += other.OutOfRegion
	r.SearchErrors += other.SearchErrors
	r.DetailErrors += other.DetailErrors
}

// Pipeline holds the per-run state: the dedup set and the slug registry. Use
// one Pipeline per run.
type Pipeline struct {
	parser     *address.Parser
	dedup      *classify.Dedup
	classifier *classify.Classifier
	builder    *builder.Builder
	logger     *zap.Logger
}

// New wires the stages from explicit settings. registry may be pre-seeded with
// persisted slugs; nil starts empty.
func New(cfg config.Pipeline, rules classify.Rules, tables metro.Tables, registry *slug.Registry, logger *zap.Logger, opts ...builder.Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	assigner := metro.NewAssigner(tables, cfg.TargetState)
	resolver := photo.NewResolver(cfg.MaxPhotos, cfg.PhotoMaxWidth)

	return &Pipeline{
		parser:     address.NewParser(cfg.HomeState),
		dedup:      classify.NewDedup(),
		classifier: classify.NewClassifier(rules),
		builder:    builder.New(assigner, registry, resolver, opts...),
		logger:     logger,
	}
}

// Process runs every stage over a batch and returns the built parks in input
// order. Bad records are counted and skipped; nothing aborts the batch.
func (p *Pipeline) Process(raws []json.RawMessage) ([]entity.Park, Report) {
	places, missing, invalid := ingest.DecodeAll(raws)
	parks, report := p.ProcessPlaces(places)
	report.SkippedMissingID += missing
	report.Invalid += invalid
	return parks, report
}

// ProcessPlaces runs dedup, classification and building over already decoded
// places.
func (p *Pipeline) ProcessPlaces(places []ingest.Place) ([]entity.Park, Report) {
	var report Report
	places, report.Duplicates = classify.Filter(p.dedup, places, placeID)

	parks := make([]entity.Park, 0, len(places))
	for _, place := range places {
		if reason, rental := p.classifier.Exclude(place.Name, place.Summary); rental {
			p.logger.Info("excluding rental business",
				zap.String("place_id", place.ID),
				zap.String("name", place.Name),
				zap.String("reason", reason))
			report.Rentals++
			continue
		}

		addr := p.parser.Parse(place.FormattedAddress)
		hours := address.ParseHours(place.WeekdayText)

		park, err := p.builder.Build(place, addr, hours)
		if err != nil {
			p.logger.Warn("skipping invalid park", zap.String("place_id", place.ID), zap.Error(err))
			report.Invalid++
			continue
		}
		parks = append(parks, park)
	}
	report.Built = len(parks)
	return parks, report
}

func placeID(p ingest.Place) string {
	return p.ID
}
