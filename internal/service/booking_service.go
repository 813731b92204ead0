package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/lightbnb/internal/domain"
)

// DefaultLimit is the page size used when a caller passes a non-positive limit.
const DefaultLimit = 10

// userRepository is the subset of store.UserStore that BookingService requires.
type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, name, email, password string) (*domain.User, error)
}

// propertyRepository is the subset of store.PropertyStore that BookingService requires.
type propertyRepository interface {
	Create(ctx context.Context, p domain.NewProperty) (*domain.Property, error)
	List(ctx context.Context, f domain.PropertyFilter, limit int) ([]*domain.PropertyView, error)
}

// reservationRepository is the subset of store.ReservationStore that BookingService requires.
type reservationRepository interface {
	ListByGuest(ctx context.Context, guestID int64, limit int) ([]*domain.ReservationView, error)
}

type BookingService struct {
	userStore        userRepository
	propertyStore    propertyRepository
	reservationStore reservationRepository
	validate         *validator.Validate
	hashCost         int
	logger           *slog.Logger
}

func NewBookingService(
	userStore userRepository,
	propertyStore propertyRepository,
	reservationStore reservationRepository,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		userStore:        userStore,
		propertyStore:    propertyStore,
		reservationStore: reservationStore,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		hashCost:         bcrypt.DefaultCost,
		logger:           logger,
	}
}

// GetUserWithEmail returns the first user whose email contains email.
func (s *BookingService) GetUserWithEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	user, err := s.userStore.FindByEmail(ctx, email)
	if err != nil {
		s.logFailure("get user with email", err, "email", email)
		return nil, err
	}
	s.logger.Debug("user found by email", "email", email, "user_id", user.ID)
	return user, nil
}

func (s *BookingService) GetUserWithID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		s.logFailure("get user with id", err, "user_id", id)
		return nil, err
	}
	s.logger.Debug("user found by id", "user_id", id)
	return user, nil
}

// AddUser validates u, hashes its password and stores it.
func (s *BookingService) AddUser(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	if err := s.validate.Struct(u); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userStore.Create(ctx, u.Name, u.Email, string(hash))
	if err != nil {
		s.logFailure("add user", err, "email", u.Email)
		return nil, err
	}
	s.logger.Info("user added", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login returns the user with exactly this email if password matches its
// stored hash.
func (s *BookingService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("login rejected: unknown email", "email", email)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.logFailure("login", err, "email", email)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Debug("login rejected: password mismatch", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetAllReservations returns up to limit reservations for guestID, earliest
// first. A non-positive limit means DefaultLimit.
func (s *BookingService) GetAllReservations(ctx context.Context, guestID int64, limit int) ([]*domain.ReservationView, error) {
	limit = normalizeLimit(limit)
	reservations, err := s.reservationStore.ListByGuest(ctx, guestID, limit)
	if err != nil {
		s.logFailure("get all reservations", err, "guest_id", guestID)
		return nil, err
	}
	s.logger.Debug("reservations listed", "guest_id", guestID, "limit", limit, "count", len(reservations))
	return reservations, nil
}

// GetAllProperties returns up to limit properties matching every filter set
// in f, cheapest first. A non-positive limit means DefaultLimit.
func (s *BookingService) GetAllProperties(ctx context.Context, f domain.PropertyFilter, limit int) ([]*domain.PropertyView, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}

	limit = normalizeLimit(limit)
	properties, err := s.propertyStore.List(ctx, f, limit)
	if err != nil {
		s.logFailure("get all properties", err, "filter", f)
		return nil, err
	}
	s.logger.Debug("properties listed", "filter", f, "limit", limit, "count", len(properties))
	return properties, nil
}

// AddProperty validates p and persists it; the new property is immediately
// visible to GetAllProperties.
func (s *BookingService) AddProperty(ctx context.Context, p domain.NewProperty) (*domain.Property, error) {
	if err := s.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	property, err := s.propertyStore.Create(ctx, p)
	if err != nil {
		s.logFailure("add property", err, "owner_id", p.OwnerID, "title", p.Title)
		return nil, err
	}
	s.logger.Info("property added", "property_id", property.ID, "owner_id", property.OwnerID)
	return property, nil
}

func validateFilter(f domain.PropertyFilter) error {
	for _, v := range []float64{f.MinimumPricePerNight, f.MaximumPricePerNight, f.MinimumRating} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: filter values must be finite", domain.ErrInvalidInput)
		}
	}

	switch {
	case f.OwnerID < 0:
		return fmt.Errorf("%w: owner id must not be negative", domain.ErrInvalidInput)
	case f.MinimumPricePerNight < 0, f.MaximumPricePerNight < 0:
		return fmt.Errorf("%w: prices must not be negative", domain.ErrInvalidInput)
	case f.MinimumPricePerNight > domain.MaxDollars, f.MaximumPricePerNight > domain.MaxDollars:
		return fmt.Errorf("%w: prices must not exceed %.0f", domain.ErrInvalidInput, domain.MaxDollars)
	case f.MaximumPricePerNight > 0 && f.MinimumPricePerNight > f.MaximumPricePerNight:
		return fmt.Errorf("%w: minimum price exceeds maximum price", domain.ErrInvalidInput)
	case f.MinimumRating < 0 || f.MinimumRating > 5:
		return fmt.Errorf("%w: minimum rating must be between 0 and 5", domain.ErrInvalidInput)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// logFailure logs unexpected errors. Not-found results are part of normal
// operation and are logged at debug.
func (s *BookingService) logFailure(op string, err error, attrs ...any) {
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug(op+": not found", attrs...)
		return
	}
	s.logger.Error(op+" failed", append(attrs, "error", err)...)
}
