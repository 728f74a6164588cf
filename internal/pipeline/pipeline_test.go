package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bounceheads/directory/internal/builder"
	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/slug"
)

func testConfig() config.Pipeline {
	return config.Pipeline{
		HomeState:     "Texas",
		TargetState:   "Texas",
		MaxPhotos:     5,
		PhotoMaxWidth: 800,
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestPipeline(opts ...builder.Option) *Pipeline {
	opts = append([]builder.Option{builder.WithClock(fixedClock)}, opts...)
	return New(testConfig(), classify.DefaultRules(), metro.DefaultTables(), nil, nil, opts...)
}

func raws(records ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = json.RawMessage(r)
	}
	return out
}

func TestProcess_AddressOnlyRecord(t *testing.T) {
	parks, report := newTestPipeline().Process(raws(`{"id":"p1","formatted_address":"4300 US-259, Longview, TX 75605, USA"}`))

	require.Len(t, parks, 1)
	park := parks[0]
	assert.Equal(t, "4300 US-259", park.Street)
	assert.Equal(t, "Longview", park.City)
	assert.Equal(t, "Texas", park.State)
	require.NotNil(t, park.ZipCode)
	assert.Equal(t, "75605", *park.ZipCode)
	assert.Equal(t, "2025-03-01", park.LastUpdated)
	assert.Equal(t, 1, report.Built)
}

func TestProcess_DuplicateIDsKeepFirst(t *testing.T) {
	parks, report := newTestPipeline().Process(raws(
		`{"place_id":"p7","name":"Urban Air","formatted_address":"1 Main St, Austin, TX 78701, USA"}`,
		`{"place_id":"p7","name":"Urban Air Again","formatted_address":"2 Main St, Austin, TX 78701, USA"}`,
	))

	require.Len(t, parks, 1)
	assert.Equal(t, "Urban Air", parks[0].Name)
	assert.Equal(t, 1, report.Duplicates)
}

func TestProcess_DuplicatesAcrossBatches(t *testing.T) {
	p := newTestPipeline()
	record := `{"place_id":"p7","name":"Urban Air","formatted_address":"1 Main St, Austin, TX 78701, USA"}`

	first, _ := p.Process(raws(record))
	second, report := p.Process(raws(record))

	assert.Len(t, first, 1)
	assert.Empty(t, second)
	assert.Equal(t, 1, report.Duplicates)
}

func TestProcess_ExcludesRentals(t *testing.T) {
	parks, report := newTestPipeline().Process(raws(
		`{"place_id":"r1","name":"Bounce House Rentals of Katy","formatted_address":"1 A St, Katy, TX 77494, USA"}`,
		`{"place_id":"u1","name":"Urban Air Trampoline Park","formatted_address":"2 B St, Katy, TX 77494, USA"}`,
	))

	require.Len(t, parks, 1)
	assert.Equal(t, "u1", parks[0].ID)
	assert.Equal(t, 1, report.Rentals)
}

func TestProcess_SlugCollisionsWithinRun(t *testing.T) {
	parks, _ := newTestPipeline().Process(raws(
		`{"place_id":"a","name":"Sky Zone!!","formatted_address":"1 A St, Austin, TX 78701, USA"}`,
	))
	require.Len(t, parks, 1)
	assert.Equal(t, "sky-zone", parks[0].Slug)

	parks, _ = newTestPipeline().Process(raws(
		`{"place_id":"a","name":"Sky Zone","formatted_address":"1 A St, Dallas, TX 75201, USA"}`,
		`{"place_id":"b","name":"Sky Zone!!","formatted_address":"2 B St, Austin, TX 78701, USA"}`,
	))
	require.Len(t, parks, 2)
	assert.Equal(t, "sky-zone", parks[0].Slug)
	assert.Equal(t, "sky-zone-austin", parks[1].Slug)
}

func TestProcess_SeededRegistry(t *testing.T) {
	registry := slug.NewRegistry()
	registry.Seed(map[string]string{"sky-zone": "persisted"})
	p := New(testConfig(), classify.DefaultRules(), metro.DefaultTables(), registry, nil)

	parks, _ := p.Process(raws(`{"place_id":"a","name":"Sky Zone","formatted_address":"1 A St, Austin, TX 78701, USA"}`))

	require.Len(t, parks, 1)
	assert.Equal(t, "sky-zone-austin", parks[0].Slug)
}

func TestProcess_MetroAssignment(t *testing.T) {
	parks, _ := newTestPipeline().Process(raws(
		`{"place_id":"a","name":"Plano Park","formatted_address":"1 A St, Plano, TX 75024, USA"}`,
		`{"place_id":"b","name":"Anytown Park","formatted_address":"1 A St, Anytown, TX 75000, USA"}`,
	))

	require.Len(t, parks, 2)
	assert.Equal(t, metro.DallasFortWorth, parks[0].MetroArea)
	assert.Equal(t, "Anytown Area", parks[1].MetroArea)
}

func TestProcess_CountsBadRecords(t *testing.T) {
	parks, report := newTestPipeline().Process(raws(
		`{"name":"No ID"}`,
		`not json`,
		`{"place_id":"bad","name":"Bad Rating","rating":9,"formatted_address":"1 A St, Austin, TX 78701, USA"}`,
		`{"place_id":"ok","name":"Fine","formatted_address":"1 A St, Austin, TX 78701, USA"}`,
	))

	require.Len(t, parks, 1)
	assert.Equal(t, Report{Built: 1, SkippedMissingID: 1, Invalid: 2}, report)
}

func TestProfile_FixedMetro(t *testing.T) {
	profile, ok := LookupProfile("san-antonio")
	require.True(t, ok)

	parks, _ := newTestPipeline(profile.BuilderOptions()...).Process(raws(
		`{"place_id":"a","name":"Jump","formatted_address":"1 A St, Schertz, TX 78154, USA"}`,
	))

	require.Len(t, parks, 1)
	assert.Equal(t, metro.SanAntonioMetro, parks[0].MetroArea)
}

func TestLookupProfile(t *testing.T) {
	assert.Equal(t, []string{"san-antonio", "texas"}, ProfileNames())

	texas, ok := LookupProfile("texas")
	require.True(t, ok)
	assert.NotEmpty(t, texas.Queries)
	assert.Empty(t, texas.BuilderOptions())

	_, ok = LookupProfile("nowhere")
	assert.False(t, ok)
}

func TestMetroDistribution(t *testing.T) {
	parks := []entity.Park{
		{MetroArea: "B"}, {MetroArea: "A"}, {MetroArea: "C"}, {MetroArea: "C"},
	}
	assert.Equal(t, []MetroCount{{"C", 2}, {"A", 1}, {"B", 1}}, MetroDistribution(parks))
	assert.Empty(t, MetroDistribution(nil))
}

type fakePlaces struct {
	mu        sync.Mutex
	search    map[string][]json.RawMessage
	searchErr map[string]error
	details   map[string]json.RawMessage
	queries   []string
	lookups   []string
}

func (f *fakePlaces) SearchText(_ context.Context, query string, _ places.Rect) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := f.searchErr[query]; err != nil {
		return nil, err
	}
	return f.search[query], nil
}

func (f *fakePlaces) Details(_ context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, id)
	raw, ok := f.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return raw, nil
}

func TestCollector_Run(t *testing.T) {
	api := &fakePlaces{
		search: map[string][]json.RawMessage{
			"q1": raws(
				`{"id":"a","displayName":{"text":"Urban Air"},"formattedAddress":"1 A St, Plano, TX 75024, USA"}`,
				`{"id":"ok","displayName":{"text":"Out"},"formattedAddress":"1 A St, Tulsa, OK 74101, USA"}`,
			),
			"q2": raws(
				`{"id":"a","displayName":{"text":"Urban Air"},"formattedAddress":"1 A St, Plano, TX 75024, USA"}`,
				`{"id":"gone","displayName":{"text":"Gone"},"formattedAddress":"1 A St, Austin, TX 78701, USA"}`,
			),
		},
		searchErr: map[string]error{"q3": errors.New("quota")},
		details: map[string]json.RawMessage{
			"a": json.RawMessage(`{"id":"a","displayName":{"text":"Urban Air"},"formattedAddress":"1 A St, Plano, TX 75024, USA","location":{"latitude":33.02,"longitude":-96.7},"rating":4.5,"userRatingCount":100}`),
		},
	}
	profile := Profile{
		Name:    "test",
		Queries: []string{"q1", "q2", "q3"},
		Region:  classify.RegionFilter{RequireAll: []string{"TX"}},
	}

	result, err := NewCollector(api, newTestPipeline(), 0, nil).Run(context.Background(), profile)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Queries)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, []string{"a", "gone"}, api.lookups)
	require.Len(t, result.Parks, 1)
	assert.Equal(t, metro.DallasFortWorth, result.Parks[0].MetroArea)
	assert.Equal(t, Report{
		Built:        1,
		Duplicates:   1,
		OutOfRegion:  1,
		SearchErrors: 1,
		DetailErrors: 1,
	}, result.Report)
}

func TestCollector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakePlaces{}
	_, err := NewCollector(api, newTestPipeline(), time.Hour, nil).Run(ctx, Profile{Queries: []string{"q"}})
	require.Error(t, err)
	assert.Empty(t, api.queries)
}
