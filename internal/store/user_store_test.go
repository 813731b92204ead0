package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lightbnb/internal/domain"
)

func TestUserStoreCreate(t *testing.T) {
	d := openTestDB(t)
	users := NewUserStore(d)

	user, err := users.Create(context.Background(), "A", "a@x.com", "p")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "A", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "p", user.Password)
}

func TestUserStoreCreateThenGetByID(t *testing.T) {
	d := openTestDB(t)
	users := NewUserStore(d)
	ctx := context.Background()

	created, err := users.Create(ctx, "A", "a@x.com", "p")
	require.NoError(t, err)

	got, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestUserStoreGetByID_NotFound(t *testing.T) {
	d := openTestDB(t)

	user, err := NewUserStore(d).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, user)
}

func TestUserStoreCreate_DuplicateEmail(t *testing.T) {
	d := openTestDB(t)
	users := NewUserStore(d)
	ctx := context.Background()

	_, err := users.Create(ctx, "A", "a@x.com", "p")
	require.NoError(t, err)

	_, err = users.Create(ctx, "Another A", "a@x.com", "q")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserStoreFindByEmail_Substring(t *testing.T) {
	d := openTestDB(t)
	bob := createUser(t, d, "Bob", "bob@x.com")
	createUser(t, d, "Alice", "alice@y.org")

	user, err := NewUserStore(d).FindByEmail(context.Background(), "bob@x")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, user.ID)
}

func TestUserStoreFindByEmail_FirstMatchByID(t *testing.T) {
	d := openTestDB(t)
	first := createUser(t, d, "Bob", "bob@x.com")
	createUser(t, d, "Bobby", "bobby@x.com")

	user, err := NewUserStore(d).FindByEmail(context.Background(), "x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, user.ID)
}

func TestUserStoreFindByEmail_NoMatch(t *testing.T) {
	d := openTestDB(t)
	createUser(t, d, "Bob", "bob@x.com")

	user, err := NewUserStore(d).FindByEmail(context.Background(), "carol@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, user)
}

func TestUserStoreFindByEmail_CaseSensitive(t *testing.T) {
	d := openTestDB(t)
	createUser(t, d, "Bob", "bob@x.com")

	_, err := NewUserStore(d).FindByEmail(context.Background(), "BOB@X.COM")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStoreFindByEmail_WildcardsLiteral(t *testing.T) {
	d := openTestDB(t)
	createUser(t, d, "Bob", "bob@x.com")

	_, err := NewUserStore(d).FindByEmail(context.Background(), "b_b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = NewUserStore(d).FindByEmail(context.Background(), "%")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStoreGetByEmail_Exact(t *testing.T) {
	d := openTestDB(t)
	bob := createUser(t, d, "Bob", "bob@x.com")
	users := NewUserStore(d)
	ctx := context.Background()

	user, err := users.GetByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, user.ID)

	_, err = users.GetByEmail(ctx, "bob@x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
