package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/lightbnb/internal/domain"
	"github.com/vbonduro/lightbnb/internal/query"
)

type ReservationStore struct {
	db *sql.DB
}

func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

// ListByGuest returns up to limit reservations made by guestID, earliest
// start date first, each joined with its property and that property's
// average review rating.
func (s *ReservationStore) ListByGuest(ctx context.Context, guestID int64, limit int) ([]*domain.ReservationView, error) {
	stmt, args := query.Select(`
		SELECT reservations.id, properties.id, properties.title, properties.thumbnail_photo_url,
			properties.number_of_bedrooms, properties.number_of_bathrooms, properties.parking_spaces,
			reservations.start_date, reservations.end_date, properties.cost_per_night,
			avg(property_reviews.rating) AS average_rating
		FROM reservations
		JOIN properties ON reservations.property_id = properties.id
		LEFT JOIN property_reviews ON properties.id = property_reviews.property_id
	`).
		Where("reservations.guest_id", query.Eq, guestID).
		GroupBy("properties.id", "reservations.id").
		OrderBy("reservations.start_date ASC", "reservations.id ASC").
		Limit(limit).
		SQL()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var reservations []*domain.ReservationView
	for rows.Next() {
		r := &domain.ReservationView{}
		var rating sql.NullFloat64
		if err := rows.Scan(
			&r.ID, &r.PropertyID, &r.Title, &r.ThumbnailPhotoURL,
			&r.NumberOfBedrooms, &r.NumberOfBathrooms, &r.ParkingSpaces,
			&r.StartDate, &r.EndDate, &r.CostPerNight,
			&rating,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		if rating.Valid {
			r.AverageRating = &rating.Float64
		}
		reservations = append(reservations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	return reservations, nil
}
