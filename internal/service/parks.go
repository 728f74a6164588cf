package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/builder"
	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/geo"
	"github.com/bounceheads/directory/internal/ingest"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/pipeline"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/slug"
)

// ParksService exposes read and maintenance operations for the park directory.
type ParksService struct {
	repo       repository.ParksRepository
	cfg        config.Pipeline
	rules      classify.Rules
	tables     metro.Tables
	classifier *classify.Classifier
	metro      *metro.Assigner
	logger     *zap.Logger
}

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// NearbyPark is a park with its distance from the query point.
type NearbyPark struct {
	entity.Park
	DistanceKm float64 `json:"distanceKm"`
}

// NewParksService creates a new instance of ParksService.
func NewParksService(repo repository.ParksRepository, cfg config.Pipeline, rules classify.Rules, tables metro.Tables, logger *zap.Logger) *ParksService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParksService{
		repo:       repo,
		cfg:        cfg,
		rules:      rules,
		tables:     tables,
		classifier: classify.NewClassifier(rules),
		metro:      metro.NewAssigner(tables, cfg.TargetState),
		logger:     logger,
	}
}

// NewRun builds a pipeline for one collection or import run. When persisted
// slug checking is on, the run's slug registry starts with every stored slug.
func (s *ParksService) NewRun(ctx context.Context, opts ...builder.Option) (*pipeline.Pipeline, error) {
	registry := slug.NewRegistry()
	if s.cfg.CheckPersistedSlugs {
		owners, err := s.repo.SlugOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("load persisted slugs: %w", err)
		}
		registry.Seed(owners)
	}
	return pipeline.New(s.cfg, s.rules, s.tables, registry, s.logger, opts...), nil
}

// ListParks returns one page of parks with rentals hidden and metro areas
// consolidated, plus the total number of non-rental matches.
func (s *ParksService) ListParks(ctx context.Context, filter dto.ParkFilter) ([]entity.Park, int, error) {
	filter = filter.Normalize()
	filter.ExcludeNameKeywords = s.rules.NameKeywords
	filter.ExcludeDescriptionKeywords = s.rules.DescriptionKeywords

	parks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return s.present(parks), total, nil
}

// GetPark returns the park with the given slug.
func (s *ParksService) GetPark(ctx context.Context, slug string) (*entity.Park, error) {
	park, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	park.MetroArea = s.metro.Consolidate(park.MetroArea, park.State)
	return park, nil
}

// Nearby returns parks within q.RadiusKm of the point, nearest first. Parks
// without coordinates are never near anything.
func (s *ParksService) Nearby(ctx context.Context, q dto.NearbyQuery) ([]NearbyPark, error) {
	parks, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	out := []NearbyPark{}
	for _, park := range s.present(parks) {
		if !park.HasCoordinates() {
			continue
		}
		d := geo.DistanceKm(q.Latitude, q.Longitude, park.Latitude, park.Longitude)
		if d <= q.RadiusKm {
			out = append(out, NearbyPark{Park: park, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

// Stats summarises the stored directory.
func (s *ParksService) Stats(ctx context.Context) (dto.ParkStats, error) {
	var (
		stats dto.ParkStats
		err   error
	)
	if stats.Total, err = s.repo.Count(ctx); err != nil {
		return stats, err
	}
	if stats.WithImages, err = s.repo.CountWithImages(ctx); err != nil {
		return stats, err
	}
	if stats.ByState, err = s.repo.CountBy(ctx, "state"); err != nil {
		return stats, err
	}
	if stats.ByCity, err = s.repo.CountBy(ctx, "city"); err != nil {
		return stats, err
	}
	if stats.ByMetro, err = s.repo.CountBy(ctx, "metro_area"); err != nil {
		return stats, err
	}
	return stats, nil
}

// Import upserts parks one by one. A failing record is logged and skipped.
func (s *ParksService) Import(ctx context.Context, parks []entity.Park) dto.ImportSummary {
	var summary dto.ImportSummary
	for i := range parks {
		park := parks[i]
		if err := s.repo.Upsert(ctx, &park); err != nil {
			s.logger.Warn("skipping park", zap.String("id", park.ID), zap.String("name", park.Name), zap.Error(err))
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", park.ID, err))
			continue
		}
		summary.Imported++
	}
	s.logger.Info("import complete", zap.Int("imported", summary.Imported), zap.Int("skipped", summary.Skipped))
	return summary
}

// ImportFile imports a JSON array of parks written by a collection run.
func (s *ParksService) ImportFile(ctx context.Context, path string) (dto.ImportSummary, error) {
	parks, err := ReadParksFile(path)
	if err != nil {
		return dto.ImportSummary{}, err
	}
	return s.Import(ctx, parks), nil
}

// ReadParksFile reads a JSON array of parks.
func ReadParksFile(path string) ([]entity.Park, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parks file: %w", err)
	}
	var parks []entity.Park
	if err := json.Unmarshal(data, &parks); err != nil {
		return nil, fmt.Errorf("decode parks file %s: %w", path, err)
	}
	return parks, nil
}

var requiredCSVHeaders = []string{"place_id", "name", "address", "lat", "lng", "rating", "review_count", "keep"}

// ImportCSV imports reviewed search results. Only rows whose keep column is
// TRUE are built and stored; rows go through the same classification, slug
// and metro rules as a collection run.
func (s *ParksService) ImportCSV(ctx context.Context, r io.Reader) (dto.ImportSummary, pipeline.Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dto.ImportSummary{}, pipeline.Report{}, CSVValidationError{Message: "csv file is empty"}
		}
		return dto.ImportSummary{}, pipeline.Report{}, fmt.Errorf("read csv header: %w", err)
	}

	indexMap, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return dto.ImportSummary{}, pipeline.Report{}, valErr
	}

	var (
		places []ingest.Place
		rowNum = 1
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dto.ImportSummary{}, pipeline.Report{}, fmt.Errorf("read csv row: %w", err)
		}

		rowNum++

		if strings.TrimSpace(row[indexMap["keep"]]) != "TRUE" {
			continue
		}

		lat, latErr := parseOptionalFloat(row[indexMap["lat"]])
		lng, lngErr := parseOptionalFloat(row[indexMap["lng"]])
		if latErr != nil || lngErr != nil {
			return dto.ImportSummary{}, pipeline.Report{}, CSVValidationError{Message: fmt.Sprintf("invalid coordinates on row %d", rowNum)}
		}

		rating, parseErr := parseOptionalFloat(row[indexMap["rating"]])
		if parseErr != nil {
			return dto.ImportSummary{}, pipeline.Report{}, CSVValidationError{Message: fmt.Sprintf("invalid rating value on row %d", rowNum)}
		}

		reviews, parseReviewsErr := parseOptionalInt(row[indexMap["review_count"]])
		if parseReviewsErr != nil {
			return dto.ImportSummary{}, pipeline.Report{}, CSVValidationError{Message: fmt.Sprintf("invalid review_count value on row %d", rowNum)}
		}

		place := ingest.Place{
			Shape:            ingest.ShapeLegacy,
			ID:               strings.TrimSpace(row[indexMap["place_id"]]),
			Name:             strings.TrimSpace(row[indexMap["name"]]),
			FormattedAddress: strings.TrimSpace(row[indexMap["address"]]),
			Rating:           rating,
			ReviewCount:      reviews,
			Types:            []string{},
		}
		if place.ID == "" {
			return dto.ImportSummary{}, pipeline.Report{}, CSVValidationError{Message: fmt.Sprintf("missing place_id on row %d", rowNum)}
		}
		if lat != nil && lng != nil {
			place.Latitude, place.Longitude = *lat, *lng
		}
		places = append(places, place)
	}

	run, err := s.NewRun(ctx)
	if err != nil {
		return dto.ImportSummary{}, pipeline.Report{}, err
	}
	parks, report := run.ProcessPlaces(places)
	return s.Import(ctx, parks), report, nil
}

// PreviewRemoval returns the parks a removal request would delete.
func (s *ParksService) PreviewRemoval(ctx context.Context, req dto.RemoveParksRequest) ([]entity.Park, error) {
	if len(req.IDs) > 0 {
		return s.repo.FindByIDs(ctx, req.IDs)
	}
	return s.repo.FindByNames(ctx, req.Names)
}

// RemoveParks deletes parks by id, or by exact name when no ids are given.
func (s *ParksService) RemoveParks(ctx context.Context, req dto.RemoveParksRequest) (dto.RemoveSummary, error) {
	var (
		removed []string
		err     error
		summary dto.RemoveSummary
	)
	if len(req.IDs) > 0 {
		summary.Requested = len(req.IDs)
		removed, err = s.repo.DeleteByIDs(ctx, req.IDs)
	} else {
		summary.Requested = len(req.Names)
		removed, err = s.repo.DeleteByNames(ctx, req.Names)
	}
	if err != nil {
		return summary, err
	}

	summary.Removed = len(removed)
	summary.Names = removed
	if summary.Names == nil {
		summary.Names = []string{}
	}
	if summary.Remaining, err = s.repo.Count(ctx); err != nil {
		return summary, err
	}
	s.logger.Info("parks removed", zap.Int("removed", summary.Removed), zap.Strings("names", removed))
	return summary, nil
}

// ReclassifyMetros recomputes the metro area of every park whose city is in
// the metro table and stores the ones that changed. Parks in other cities keep
// the metro they were collected with.
func (s *ParksService) ReclassifyMetros(ctx context.Context) (dto.ReclassifySummary, error) {
	parks, err := s.repo.All(ctx)
	if err != nil {
		return dto.ReclassifySummary{}, err
	}

	summary := dto.ReclassifySummary{Changes: map[string]string{}}
	for _, park := range parks {
		summary.Checked++
		next, ok := s.metro.Lookup(park.City, park.State)
		if !ok || next == park.MetroArea {
			continue
		}
		if err := s.repo.UpdateMetroArea(ctx, park.ID, next); err != nil {
			s.logger.Warn("metro update failed", zap.String("id", park.ID), zap.Error(err))
			summary.Failed++
			continue
		}
		s.logger.Info("metro updated", zap.String("name", park.Name), zap.String("from", park.MetroArea), zap.String("to", next))
		summary.Changes[park.Name] = next
		summary.Updated++
	}
	return summary, nil
}

func (s *ParksService) present(parks []entity.Park) []entity.Park {
	out := make([]entity.Park, 0, len(parks))
	for _, park := range parks {
		if s.classifier.IsRental(park.Name, park.DescriptionText()) {
			continue
		}
		park.MetroArea = s.metro.Consolidate(park.MetroArea, park.State)
		out = append(out, park)
	}
	return out
}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
