package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/lightbnb/internal/domain"
	"github.com/vbonduro/lightbnb/internal/query"
)

var propertyColumnNames = []string{
	"id", "owner_id", "title", "description",
	"thumbnail_photo_url", "cover_photo_url", "cost_per_night",
	"parking_spaces", "number_of_bathrooms", "number_of_bedrooms",
	"country", "street", "city", "province",
	"post_code", "active",
}

var (
	// propertyColumns is table-qualified for use in joins.
	propertyColumns = "properties." + strings.Join(propertyColumnNames, ", properties.")
	// returningColumns is unqualified; SQLite rejects qualified names in RETURNING.
	returningColumns = strings.Join(propertyColumnNames, ", ")
)

type PropertyStore struct {
	db *sql.DB
}

func NewPropertyStore(db *sql.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

// propertyFields returns scan destinations matching propertyColumns.
func propertyFields(p *domain.Property) []any {
	return []any{
		&p.ID, &p.OwnerID, &p.Title, &p.Description,
		&p.ThumbnailPhotoURL, &p.CoverPhotoURL, &p.CostPerNight,
		&p.ParkingSpaces, &p.NumberOfBathrooms, &p.NumberOfBedrooms,
		&p.Country, &p.Street, &p.City, &p.Province,
		&p.PostCode, &p.Active,
	}
}

// Create inserts p with its cost converted to cents.
func (s *PropertyStore) Create(ctx context.Context, p domain.NewProperty) (*domain.Property, error) {
	created := &domain.Property{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO properties (
			owner_id, title, description, thumbnail_photo_url, cover_photo_url,
			cost_per_night, parking_spaces, number_of_bathrooms, number_of_bedrooms,
			country, street, city, province, post_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+returningColumns,
		p.OwnerID, p.Title, p.Description, p.ThumbnailPhotoURL, p.CoverPhotoURL,
		int64(domain.CentsFromDollars(p.CostPerNight)), p.ParkingSpaces, p.NumberOfBathrooms, p.NumberOfBedrooms,
		p.Country, p.Street, p.City, p.Province, p.PostCode,
	).Scan(propertyFields(created)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", classify(err))
	}
	return created, nil
}

// listQuery builds the statement for List. Every filter that is set applies.
func listQuery(f domain.PropertyFilter, limit int) (string, []any) {
	q := query.Select(`
		SELECT ` + propertyColumns + `, avg(property_reviews.rating) AS average_rating
		FROM properties
		LEFT JOIN property_reviews ON property_reviews.property_id = properties.id
	`).Where("properties.active", query.Eq, true)

	if f.OwnerID != 0 {
		q.Where("properties.owner_id", query.Eq, f.OwnerID)
	}
	if f.City != "" {
		q.Contains("properties.city", f.City)
	}
	if f.MinimumPricePerNight > 0 {
		q.Where("properties.cost_per_night", query.Gte, int64(domain.CentsFromDollars(f.MinimumPricePerNight)))
	}
	if f.MaximumPricePerNight > 0 {
		q.Where("properties.cost_per_night", query.Lte, int64(domain.CentsFromDollars(f.MaximumPricePerNight)))
	}

	q.GroupBy("properties.id")
	if f.MinimumRating > 0 {
		q.Having("avg(property_reviews.rating)", query.Gte, f.MinimumRating)
	}
	return q.OrderBy("properties.cost_per_night ASC", "properties.id ASC").Limit(limit).SQL()
}

// List returns active properties matching f, cheapest first, with their
// average rating.
func (s *PropertyStore) List(ctx context.Context, f domain.PropertyFilter, limit int) ([]*domain.PropertyView, error) {
	stmt, args := listQuery(f, limit)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var properties []*domain.PropertyView
	for rows.Next() {
		view := &domain.PropertyView{}
		var rating sql.NullFloat64
		if err := rows.Scan(append(propertyFields(&view.Property), &rating)...); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		if rating.Valid {
			view.AverageRating = &rating.Float64
		}
		properties = append(properties, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}
