package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/photo"
)

// ParksRepository describes persistence operations for parks.
type ParksRepository interface {
	Upsert(ctx context.Context, park *entity.Park) error
	DeleteByIDs(ctx context.Context, ids []string) ([]string, error)
	DeleteByNames(ctx context.Context, names []string) ([]string, error)
	FindByIDs(ctx context.Context, ids []string) ([]entity.Park, error)
	FindByNames(ctx context.Context, names []string) ([]entity.Park, error)
	List(ctx context.Context, filter dto.ParkFilter) ([]entity.Park, int, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Park, error)
	All(ctx context.Context) ([]entity.Park, error)
	Count(ctx context.Context) (int, error)
	CountWithImages(ctx context.Context) (int, error)
	CountBy(ctx context.Context, field string) ([]dto.CountRow, error)
	SlugOwners(ctx context.Context) (map[string]string, error)
	UpdateMetroArea(ctx context.Context, id, metroArea string) error
	UpdateImages(ctx context.Context, id string, images photo.Images) error
	ListWithoutImages(ctx context.Context) ([]entity.Park, error)
}

// ErrParkNotFound indicates no park matched the lookup.
var ErrParkNotFound = errors.New("park not found")

// ErrUnknownField is returned by CountBy for fields outside the whitelist.
var ErrUnknownField = errors.New("unknown count field")

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// PGXParksRepository implements ParksRepository using pgx.
type PGXParksRepository struct {
	pool pgxPool
}

// NewPGXParksRepository wires a pgx backed repository.
func NewPGXParksRepository(pool *pgxpool.Pool) *PGXParksRepository {
	return &PGXParksRepository{pool: pool}
}

const insertColumns = `
            id,
            name,
            slug,
            description,
            street,
            city,
            state,
            zip_code,
            metro_area,
            formatted_address,
            latitude,
            longitude,
            phone,
            website,
            rating,
            review_count,
            hours,
            amenities,
            features,
            age_groups,
            pricing,
            images,
            last_updated`

const parkColumns = insertColumns + `,
            created_at,
            updated_at`

var countFields = map[string]string{
	"city":       "city",
	"state":      "state",
	"metro":      "metro_area",
	"metro_area": "metro_area",
}

// Upsert inserts or updates a park keyed by id.
func (r *PGXParksRepository) Upsert(ctx context.Context, park *entity.Park) error {
	if park == nil {
		return fmt.Errorf("park payload is nil")
	}
	park.Normalize()

	hours, err := json.Marshal(park.Hours)
	if err != nil {
		return fmt.Errorf("marshal hours: %w", err)
	}
	pricing, err := json.Marshal(park.Pricing)
	if err != nil {
		return fmt.Errorf("marshal pricing: %w", err)
	}
	images, err := json.Marshal(park.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	lastUpdated, err := time.Parse(entity.DateLayout, park.LastUpdated)
	if err != nil {
		return fmt.Errorf("parse last updated %q: %w", park.LastUpdated, err)
	}

	query := `
        INSERT INTO trampoline_parks (` + insertColumns + `
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
            $11, $12, $13, $14, $15, $16, $17::jsonb, $18, $19, $20,
            $21::jsonb, $22::jsonb, $23
        )
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            slug = EXCLUDED.slug,
            description = EXCLUDED.description,
            street = EXCLUDED.street,
            city = EXCLUDED.city,
            state = EXCLUDED.state,
            zip_code = EXCLUDED.zip_code,
            metro_area = EXCLUDED.metro_area,
            formatted_address = EXCLUDED.formatted_address,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            phone = EXCLUDED.phone,
            website = EXCLUDED.website,
            rating = EXCLUDED.rating,
            review_count = EXCLUDED.review_count,
            hours = EXCLUDED.hours,
            amenities = EXCLUDED.amenities,
            features = EXCLUDED.features,
            age_groups = EXCLUDED.age_groups,
            pricing = EXCLUDED.pricing,
            images = EXCLUDED.images,
            last_updated = EXCLUDED.last_updated,
            updated_at = NOW();
    `

	_, err = r.pool.Exec(ctx, query,
		park.ID,
		park.Name,
		park.Slug,
		stringOrNil(park.Description),
		park.Street,
		park.City,
		park.State,
		stringOrNil(park.ZipCode),
		park.MetroArea,
		park.FormattedAddress,
		park.Latitude,
		park.Longitude,
		stringOrNil(park.Phone),
		stringOrNil(park.Website),
		floatOrNil(park.Rating),
		intOrNil(park.ReviewCount),
		string(hours),
		park.Amenities,
		park.Features,
		park.AgeGroups,
		string(pricing),
		string(images),
		lastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert park %s: %w", park.ID, err)
	}
	return nil
}

// DeleteByIDs removes parks by id and returns the names of removed rows.
func (r *PGXParksRepository) DeleteByIDs(ctx context.Context, ids []string) ([]string, error) {
	return r.deleteWhere(ctx, "id", ids)
}

// DeleteByNames removes parks by exact name and returns the names of removed rows.
func (r *PGXParksRepository) DeleteByNames(ctx context.Context, names []string) ([]string, error) {
	return r.deleteWhere(ctx, "name", names)
}

func (r *PGXParksRepository) deleteWhere(ctx context.Context, column string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("DELETE FROM trampoline_parks WHERE %s = ANY($1) RETURNING name", column)
	rows, err := r.pool.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("delete parks by %s: %w", column, err)
	}
	defer rows.Close()

	removed := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan deleted park: %w", err)
		}
		removed = append(removed, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted parks: %w", err)
	}
	return removed, nil
}

// FindByIDs returns the parks with the given ids.
func (r *PGXParksRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Park, error) {
	if len(ids) == 0 {
		return []entity.Park{}, nil
	}
	return r.query(ctx, "SELECT"+parkColumns+" FROM trampoline_parks WHERE id = ANY($1) ORDER BY name", ids)
}

// FindByNames returns the parks with the given exact names.
func (r *PGXParksRepository) FindByNames(ctx context.Context, names []string) ([]entity.Park, error) {
	if len(names) == 0 {
		return []entity.Park{}, nil
	}
	return r.query(ctx, "SELECT"+parkColumns+" FROM trampoline_parks WHERE name = ANY($1) ORDER BY name", names)
}

// List retrieves one page of parks matching the filter, best rated first, and
// the total number of matches.
func (r *PGXParksRepository) List(ctx context.Context, filter dto.ParkFilter) ([]entity.Park, int, error) {
	filter = filter.Normalize()
	where, args := filterClauses(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trampoline_parks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parks: %w", err)
	}

	idx := len(args) + 1
	query := fmt.Sprintf("SELECT%s FROM trampoline_parks%s ORDER BY rating DESC NULLS LAST, name ASC LIMIT $%d OFFSET $%d",
		parkColumns, where, idx, idx+1)
	args = append(args, filter.PerPage, filter.Offset())

	parks, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return parks, total, nil
}

func filterClauses(filter dto.ParkFilter) (string, []any) {
	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.State != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(state) = LOWER($%d)", idx))
		args = append(args, filter.State)
		idx++
	}
	if filter.City != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(city) = LOWER($%d)", idx))
		args = append(args, filter.City)
		idx++
	}
	if filter.Metro != "" {
		clauses = append(clauses, fmt.Sprintf("metro_area = $%d", idx))
		args = append(args, filter.Metro)
		idx++
	}
	if filter.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR city ILIKE $%d OR description ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if len(filter.ExcludeNameKeywords) > 0 {
		clauses = append(clauses, fmt.Sprintf("NOT (LOWER(name) LIKE ANY($%d))", idx))
		args = append(args, containsPatterns(filter.ExcludeNameKeywords))
		idx++
	}
	if len(filter.ExcludeDescriptionKeywords) > 0 {
		clauses = append(clauses, fmt.Sprintf("NOT (LOWER(COALESCE(description, '')) LIKE ANY($%d))", idx))
		args = append(args, containsPatterns(filter.ExcludeDescriptionKeywords))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPatterns turns keywords into lowercased "%keyword%" LIKE patterns.
func containsPatterns(keywords []string) []string {
	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%"
	}
	return patterns
}

// GetBySlug returns the park with the given slug.
func (r *PGXParksRepository) GetBySlug(ctx context.Context, slug string) (*entity.Park, error) {
	row := r.pool.QueryRow(ctx, "SELECT"+parkColumns+" FROM trampoline_parks WHERE slug = $1", slug)
	park, err := scanPark(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParkNotFound
		}
		return nil, err
	}
	return &park, nil
}

// All returns every park ordered by name.
func (r *PGXParksRepository) All(ctx context.Context) ([]entity.Park, error) {
	return r.query(ctx, "SELECT"+parkColumns+" FROM trampoline_parks ORDER BY name")
}

// ListWithoutImages returns parks that have no images yet.
func (r *PGXParksRepository) ListWithoutImages(ctx context.Context) ([]entity.Park, error) {
	return r.query(ctx, "SELECT"+parkColumns+" FROM trampoline_parks WHERE jsonb_array_length(images) = 0 ORDER BY name")
}

// Count returns the number of stored parks.
func (r *PGXParksRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM trampoline_parks")
}

// CountWithImages returns the number of parks with at least one image.
func (r *PGXParksRepository) CountWithImages(ctx context.Context) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM trampoline_parks WHERE jsonb_array_length(images) > 0")
}

func (r *PGXParksRepository) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count parks: %w", err)
	}
	return n, nil
}

// CountBy groups parks by city, state or metro area, largest groups first.
func (r *PGXParksRepository) CountBy(ctx context.Context, field string) ([]dto.CountRow, error) {
	column, ok := countFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM trampoline_parks GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s ASC", column)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count parks by %s: %w", field, err)
	}
	defer rows.Close()

	out := []dto.CountRow{}
	for rows.Next() {
		var row dto.CountRow
		if err := rows.Scan(&row.Value, &row.Count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return out, nil
}

// SlugOwners maps every persisted slug to the id of the park holding it.
func (r *PGXParksRepository) SlugOwners(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT slug, id FROM trampoline_parks")
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	defer rows.Close()

	owners := make(map[string]string)
	for rows.Next() {
		var slug, id string
		if err := rows.Scan(&slug, &id); err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		owners[slug] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slugs: %w", err)
	}
	return owners, nil
}

// UpdateMetroArea rewrites the metro area of one park.
func (r *PGXParksRepository) UpdateMetroArea(ctx context.Context, id, metroArea string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE trampoline_parks SET metro_area = $2, updated_at = NOW() WHERE id = $1", id, metroArea)
	if err != nil {
		return fmt.Errorf("update metro area of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrParkNotFound
	}
	return nil
}

// UpdateImages replaces the image list of one park.
func (r *PGXParksRepository) UpdateImages(ctx context.Context, id string, images photo.Images) error {
	payload, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	tag, err := r.pool.Exec(ctx, "UPDATE trampoline_parks SET images = $2::jsonb, updated_at = NOW() WHERE id = $1", id, string(payload))
	if err != nil {
		return fmt.Errorf("update images of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrParkNotFound
	}
	return nil
}

func (r *PGXParksRepository) query(ctx context.Context, query string, args ...any) ([]entity.Park, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parks: %w", err)
	}
	defer rows.Close()
	return scanParks(rows)
}

func scanParks(rows pgx.Rows) ([]entity.Park, error) {
	parks := []entity.Park{}
	for rows.Next() {
		park, err := scanPark(rows)
		if err != nil {
			return nil, err
		}
		parks = append(parks, park)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parks: %w", err)
	}
	return parks, nil
}

func scanPark(row pgx.Row) (entity.Park, error) {
	var (
		p           entity.Park
		description sql.NullString
		zipCode     sql.NullString
		phone       sql.NullString
		website     sql.NullString
		rating      sql.NullFloat64
		reviewCount sql.NullInt64
		hours       []byte
		pricing     []byte
		images      []byte
		lastUpdated time.Time
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&description,
		&p.Street,
		&p.City,
		&p.State,
		&zipCode,
		&p.MetroArea,
		&p.FormattedAddress,
		&p.Latitude,
		&p.Longitude,
		&phone,
		&website,
		&rating,
		&reviewCount,
		&hours,
		&p.Amenities,
		&p.Features,
		&p.AgeGroups,
		&pricing,
		&images,
		&lastUpdated,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan park: %w", err)
	}

	p.Description = nullStringToPtr(description)
	p.ZipCode = nullStringToPtr(zipCode)
	p.Phone = nullStringToPtr(phone)
	p.Website = nullStringToPtr(website)
	if rating.Valid {
		val := rating.Float64
		p.Rating = &val
	}
	if reviewCount.Valid {
		cast := int(reviewCount.Int64)
		p.ReviewCount = &cast
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &p.Hours); err != nil {
			return p, fmt.Errorf("unmarshal hours of %s: %w", p.ID, err)
		}
	}
	if len(pricing) > 0 {
		if err := json.Unmarshal(pricing, &p.Pricing); err != nil {
			return p, fmt.Errorf("unmarshal pricing of %s: %w", p.ID, err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return p, fmt.Errorf("unmarshal images of %s: %w", p.ID, err)
		}
	}
	p.LastUpdated = lastUpdated.Format(entity.DateLayout)
	p.Normalize()

	return p, nil
}

func nullStringToPtr(value sql.NullString) *string {
	if value.Valid {
		val := value.String
		return &val
	}
	return nil
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	if *value == "" {
		return nil
	}
	return *value
}

func floatOrNil(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func intOrNil(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
