package domain

import (
	"math"
	"time"
)

// Cents is an amount of money in minor currency units.
type Cents int64

// MaxDollars bounds any dollar amount accepted as input, keeping its cent
// value well inside int64.
const MaxDollars = 1e9

// CentsFromDollars converts a decimal amount to cents, rounding to the
// nearest cent.
func CentsFromDollars(d float64) Cents {
	return Cents(math.Round(d * 100))
}

func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

type User struct {
	ID       int64
	Name     string
	Email    string
	Password string
}

type NewUser struct {
	Name     string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required"`
}

type Property struct {
	ID                int64
	OwnerID           int64
	Title             string
	Description       string
	ThumbnailPhotoURL string
	CoverPhotoURL     string
	CostPerNight      Cents
	ParkingSpaces     int
	NumberOfBathrooms int
	NumberOfBedrooms  int
	Country           string
	Street            string
	City              string
	Province          string
	PostCode          string
	Active            bool
}

// NewProperty is the input for creating a property. CostPerNight is in
// dollars and is stored as cents.
type NewProperty struct {
	OwnerID           int64   `validate:"required,gt=0"`
	Title             string  `validate:"required,max=255"`
	Description       string
	ThumbnailPhotoURL string  `validate:"max=255"`
	CoverPhotoURL     string  `validate:"max=255"`
	CostPerNight      float64 `validate:"gte=0,lte=1000000000"`
	ParkingSpaces     int     `validate:"gte=0"`
	NumberOfBathrooms int     `validate:"gte=0"`
	NumberOfBedrooms  int     `validate:"gte=0"`
	Country           string  `validate:"max=255"`
	Street            string  `validate:"max=255"`
	City              string  `validate:"max=255"`
	Province          string  `validate:"max=255"`
	PostCode          string  `validate:"max=255"`
}

// PropertyView is a property with the average rating of its reviews.
// AverageRating is nil when the property has no reviews.
type PropertyView struct {
	Property
	AverageRating *float64
}

// PropertyFilter holds the optional filters for listing properties. Zero
// values mean "not set"; prices are in dollars.
type PropertyFilter struct {
	OwnerID              int64
	City                 string
	MinimumPricePerNight float64
	MaximumPricePerNight float64
	MinimumRating        float64
}

// ReservationView is a guest's reservation joined with the reserved
// property.
type ReservationView struct {
	ID                int64
	PropertyID        int64
	Title             string
	ThumbnailPhotoURL string
	NumberOfBedrooms  int
	NumberOfBathrooms int
	ParkingSpaces     int
	StartDate         time.Time
	EndDate           time.Time
	CostPerNight      Cents
	AverageRating     *float64
}
