package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/lightbnb/internal/db"
	"github.com/vbonduro/lightbnb/internal/domain"
	"github.com/vbonduro/lightbnb/internal/store"
)

func newTestService(t *testing.T) (*BookingService, *sql.DB) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	svc := NewBookingService(
		store.NewUserStore(d),
		store.NewPropertyStore(d),
		store.NewReservationStore(d),
		slog.New(slog.DiscardHandler),
	)
	svc.hashCost = bcrypt.MinCost
	return svc, d
}

func addUser(t *testing.T, svc *BookingService, name, email string) *domain.User {
	t.Helper()
	u, err := svc.AddUser(context.Background(), domain.NewUser{Name: name, Email: email, Password: "password"})
	require.NoError(t, err)
	return u
}

// failingUsers fails every call with err.
type failingUsers struct{ err error }

func (f failingUsers) FindByEmail(context.Context, string) (*domain.User, error) { return nil, f.err }
func (f failingUsers) GetByEmail(context.Context, string) (*domain.User, error)  { return nil, f.err }
func (f failingUsers) GetByID(context.Context, int64) (*domain.User, error)      { return nil, f.err }
func (f failingUsers) Create(context.Context, string, string, string) (*domain.User, error) {
	return nil, f.err
}

// recordingReservations captures the limit it was called with.
type recordingReservations struct{ limit int }

func (r *recordingReservations) ListByGuest(_ context.Context, _ int64, limit int) ([]*domain.ReservationView, error) {
	r.limit = limit
	return nil, nil
}

func TestBookingServiceAddUserThenGetByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.AddUser(ctx, domain.NewUser{Name: "A", Email: "a@x.com", Password: "p"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := svc.GetUserWithID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestBookingServiceAddUser_HashesPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.AddUser(context.Background(), domain.NewUser{Name: "A", Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotEqual(t, "secret", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))
}

func TestBookingServiceAddUser_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, u := range []domain.NewUser{
		{Email: "a@x.com", Password: "p"},
		{Name: "A", Email: "not-an-email", Password: "p"},
		{Name: "A", Email: "a@x.com"},
	} {
		_, err := svc.AddUser(ctx, u)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", u)
	}
}

func TestBookingServiceAddUser_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	addUser(t, svc, "A", "a@x.com")

	_, err := svc.AddUser(context.Background(), domain.NewUser{Name: "B", Email: "a@x.com", Password: "p"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestBookingServiceGetUserWithEmail(t *testing.T) {
	svc, _ := newTestService(t)
	bob := addUser(t, svc, "Bob", "bob@x.com")
	ctx := context.Background()

	got, err := svc.GetUserWithEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = svc.GetUserWithEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetUserWithEmail(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBookingServiceGetUserWithID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.GetUserWithID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, user)
}

func TestBookingServiceQueryFailureIsNotNotFound(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewBookingService(failingUsers{err: boom}, nil, nil, slog.New(slog.DiscardHandler))

	_, err := svc.GetUserWithEmail(context.Background(), "bob@x.com")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetUserWithID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	_, err = svc.Login(context.Background(), "bob@x.com", "p")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestBookingServiceLogin(t *testing.T) {
	svc, _ := newTestService(t)
	bob := addUser(t, svc, "Bob", "bob@x.com")
	ctx := context.Background()

	got, err := svc.Login(ctx, "bob@x.com", "password")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = svc.Login(ctx, "bob@x.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Substring of a real email must not log anyone in.
	_, err = svc.Login(ctx, "bob@x", "password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestBookingServiceAddPropertyVisibleToGetAllProperties(t *testing.T) {
	svc, _ := newTestService(t)
	owner := addUser(t, svc, "Owner", "owner@x.com")
	ctx := context.Background()

	p, err := svc.AddProperty(ctx, domain.NewProperty{
		OwnerID:      owner.ID,
		Title:        "Lakeside cabin",
		City:         "Kelowna",
		CostPerNight: 129.99,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(12999), p.CostPerNight)

	list, err := svc.GetAllProperties(ctx, domain.PropertyFilter{OwnerID: owner.ID}, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestBookingServiceAddProperty_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	owner := addUser(t, svc, "Owner", "owner@x.com")
	ctx := context.Background()

	for _, p := range []domain.NewProperty{
		{Title: "No owner"},
		{OwnerID: owner.ID},
		{OwnerID: owner.ID, Title: "Negative", CostPerNight: -1},
		{OwnerID: owner.ID, Title: "Negative rooms", NumberOfBedrooms: -2},
		{OwnerID: owner.ID, Title: "Overflowing", CostPerNight: 1e17},
		{OwnerID: owner.ID, Title: "Infinite", CostPerNight: math.Inf(1)},
		{OwnerID: owner.ID, Title: "NaN", CostPerNight: math.NaN()},
	} {
		_, err := svc.AddProperty(ctx, p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", p)
	}
}

func TestBookingServiceAddProperty_UnknownOwner(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddProperty(context.Background(), domain.NewProperty{OwnerID: 77, Title: "Ghost"})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestBookingServiceGetAllProperties_DefaultLimit(t *testing.T) {
	svc, _ := newTestService(t)
	owner := addUser(t, svc, "Owner", "owner@x.com")
	ctx := context.Background()
	for i := 0; i < DefaultLimit+2; i++ {
		_, err := svc.AddProperty(ctx, domain.NewProperty{OwnerID: owner.ID, Title: "p", CostPerNight: float64(100 + i)})
		require.NoError(t, err)
	}

	list, err := svc.GetAllProperties(ctx, domain.PropertyFilter{}, 0)
	require.NoError(t, err)
	assert.Len(t, list, DefaultLimit)
	assert.Equal(t, domain.Cents(10000), list[0].CostPerNight)
}

func TestBookingServiceGetAllProperties_InvalidFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, f := range []domain.PropertyFilter{
		{MinimumPricePerNight: -5},
		{MinimumPricePerNight: 200, MaximumPricePerNight: 100},
		{MinimumRating: 6},
		{OwnerID: -1},
		{MaximumPricePerNight: 1e17},
		{MaximumPricePerNight: math.Inf(1)},
		{MinimumPricePerNight: math.NaN()},
		{MinimumRating: math.NaN()},
		{MinimumPricePerNight: math.Inf(-1)},
	} {
		_, err := svc.GetAllProperties(ctx, f, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", f)
	}
}

func TestBookingServiceGetAllProperties_MaximumPriceBound(t *testing.T) {
	svc, _ := newTestService(t)
	owner := addUser(t, svc, "Owner", "owner@x.com")
	ctx := context.Background()
	_, err := svc.AddProperty(ctx, domain.NewProperty{OwnerID: owner.ID, Title: "Cabin", CostPerNight: 100})
	require.NoError(t, err)

	list, err := svc.GetAllProperties(ctx, domain.PropertyFilter{MaximumPricePerNight: domain.MaxDollars}, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookingServiceGetAllReservations(t *testing.T) {
	svc, d := newTestService(t)
	owner := addUser(t, svc, "Owner", "owner@x.com")
	guest := addUser(t, svc, "Guest", "guest@x.com")
	ctx := context.Background()
	p, err := svc.AddProperty(ctx, domain.NewProperty{OwnerID: owner.ID, Title: "Cabin", CostPerNight: 100})
	require.NoError(t, err)

	var resID int64
	require.NoError(t, d.QueryRow(`
		INSERT INTO reservations (guest_id, property_id, start_date, end_date)
		VALUES ($1, $2, '2023-05-01', '2023-05-03') RETURNING id
	`, guest.ID, p.ID).Scan(&resID))
	_, err = d.Exec(`
		INSERT INTO property_reviews (guest_id, property_id, reservation_id, rating)
		VALUES ($1, $2, $3, 5)
	`, guest.ID, p.ID, resID)
	require.NoError(t, err)

	list, err := svc.GetAllReservations(ctx, guest.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resID, list[0].ID)
	require.NotNil(t, list[0].AverageRating)
	assert.InDelta(t, 5.0, *list[0].AverageRating, 1e-9)

	list, err = svc.GetAllReservations(ctx, owner.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookingServiceGetAllReservations_LimitPassedThrough(t *testing.T) {
	rec := &recordingReservations{}
	svc := NewBookingService(nil, nil, rec, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, err := svc.GetAllReservations(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.limit)

	_, err = svc.GetAllReservations(ctx, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, rec.limit)
}
