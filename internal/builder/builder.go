// Package builder assembles the stored park record from a parsed and filtered
// upstream place.
package builder

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bounceheads/directory/internal/address"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/ingest"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/slug"
)

// ErrInvalidPark wraps validation failures of a built park.
var ErrInvalidPark = errors.New("invalid park")

// Builder turns one place into a park. It owns the run's slug registry and
// must not be shared between concurrent runs.
type Builder struct {
	metro       *metro.Assigner
	slugs       *slug.Registry
	photos      *photo.Resolver
	validate    *validator.Validate
	now         func() time.Time
	phoneRegion string
	fixedMetro  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithFixedMetro assigns every park the same metro area before consolidation.
func WithFixedMetro(name string) Option {
	return func(b *Builder) {
		b.fixedMetro = name
	}
}

// WithPhoneRegion sets the region used to parse phone numbers.
func WithPhoneRegion(region string) Option {
	return func(b *Builder) {
		if region != "" {
			b.phoneRegion = region
		}
	}
}

// New builds a Builder. A nil registry or resolver gets a fresh default.
func New(assigner *metro.Assigner, registry *slug.Registry, resolver *photo.Resolver, opts ...Option) *Builder {
	if registry == nil {
		registry = slug.NewRegistry()
	}
	if resolver == nil {
		resolver = photo.NewResolver(photo.DefaultMaxPhotos, photo.DefaultMaxWidth)
	}
	b := &Builder{
		metro:       assigner,
		slugs:       registry,
		photos:      resolver,
		validate:    validator.New(),
		now:         time.Now,
		phoneRegion: defaultPhoneRegion,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Slugs exposes the run's slug registry.
func (b *Builder) Slugs() *slug.Registry {
	return b.slugs
}

// Build assembles and validates the park for place.
func (b *Builder) Build(place ingest.Place, addr address.Address, hours map[string]string) (entity.Park, error) {
	park := entity.Park{
		ID:               place.ID,
		Name:             place.Name,
		Slug:             b.claimSlug(place, addr.City),
		Description:      stringOrNil(Description(addr.City, addr.State)),
		Street:           addr.Street,
		City:             addr.City,
		State:            addr.State,
		ZipCode:          stringOrNil(addr.ZipCode),
		MetroArea:        b.metroArea(addr),
		FormattedAddress: place.FormattedAddress,
		Latitude:         place.Latitude,
		Longitude:        place.Longitude,
		Phone:            stringOrNil(normalizePhone(place.Phone, b.phoneRegion)),
		Website:          stringOrNil(normalizeWebsite(place.Website)),
		Rating:           place.Rating,
		ReviewCount:      place.ReviewCount,
		Hours:            hours,
		Images:           b.photos.ResolveAll(place.Photos),
		LastUpdated:      b.now().Format(entity.DateLayout),
	}
	park.Normalize()

	if err := b.validate.Struct(park); err != nil {
		return entity.Park{}, fmt.Errorf("%w %s: %v", ErrInvalidPark, place.ID, err)
	}
	return park, nil
}

// Description is the generated description stored for collected parks.
func Description(city, state string) string {
	return fmt.Sprintf("Trampoline park located in %s, %s.", city, state)
}

func (b *Builder) claimSlug(place ingest.Place, city string) string {
	name := place.Name
	if slug.Make(name) == "" {
		name = place.ID
	}
	return b.slugs.Claim(place.ID, name, city)
}

func (b *Builder) metroArea(addr address.Address) string {
	if b.metro == nil {
		return addr.City + " Area"
	}
	if b.fixedMetro != "" {
		return b.metro.Consolidate(b.fixedMetro, addr.State)
	}
	return b.metro.Resolve(addr.City, addr.State)
}

func stringOrNil(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}
