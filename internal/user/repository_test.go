package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharedrop/internal/database"
	"sharedrop/internal/database/dbtest"
	"sharedrop/internal/models"
)

var testConfig database.Config

func TestMain(m *testing.M) {
	cfg, teardown, err := dbtest.MustStartPostgresContainer()
	if err != nil {
		log.Fatal().Err(err).Msg("could not start postgres container")
	}
	testConfig = cfg

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("could not teardown postgres container")
		}
	}
}

// createTestUser creates a user with random email and username for testing
func createTestUser(t *testing.T, repo Repository) *models.User {
	suffix := uuid.New().String()[:8]
	user := &models.User{
		ID:           uuid.New(),
		Email:        "test-" + suffix + "@example.com",
		Username:     "testuser-" + suffix,
		PasswordHash: "hashed_password",
		IsActive:     true,
	}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestRepository_Create(t *testing.T) {
	db := dbtest.Setup(t, testConfig)
	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("successful user creation", func(t *testing.T) {
		user := &models.User{
			ID:           uuid.New(),
			Email:        "test@example.com",
			Username:     "testuser",
			PasswordHash: "hashed_password",
			IsActive:     true,
		}

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.False(t, user.CreatedAt.IsZero())

		fetched, err := repo.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Equal(t, user.Email, fetched.Email)
		assert.Equal(t, user.Username, fetched.Username)
	})

	t.Run("duplicate email", func(t *testing.T) {
		user1 := createTestUser(t, repo)

		user2 := &models.User{
			ID:           uuid.New(),
			Email:        user1.Email,
			Username:     "user2",
			PasswordHash: "hashed_password",
			IsActive:     true,
		}
		err := repo.Create(ctx, user2)
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		user1 := createTestUser(t, repo)

		user2 := &models.User{
			ID:           uuid.New(),
			Email:        "other@example.com",
			Username:     user1.Username,
			PasswordHash: "hashed_password",
			IsActive:     true,
		}
		err := repo.Create(ctx, user2)
		assert.ErrorIs(t, err, ErrUsernameExists)
	})
}

func TestRepository_Lookups(t *testing.T) {
	db := dbtest.Setup(t, testConfig)
	repo := NewRepository(db)
	ctx := context.Background()

	user := createTestUser(t, repo)

	t.Run("by id", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, fetched.Username)
	})

	t.Run("by email", func(t *testing.T) {
		fetched, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, fetched.ID)
	})

	t.Run("by username", func(t *testing.T) {
		fetched, err := repo.GetByUsername(ctx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, fetched.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.GetByEmail(ctx, "nonexistent@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = repo.GetByUsername(ctx, "nonexistentuser")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestRepository_ExistingIDs(t *testing.T) {
	db := dbtest.Setup(t, testConfig)
	repo := NewRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, repo)
	bob := createTestUser(t, repo)
	unknown := uuid.New()

	found, err := repo.ExistingIDs(ctx, []uuid.UUID{alice.ID, unknown, bob.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, found)

	found, err = repo.ExistingIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestService_Credentials(t *testing.T) {
	db := dbtest.Setup(t, testConfig)
	svc := NewService(NewRepository(db))
	ctx := context.Background()

	registered, err := svc.Register(ctx, &CreateUserRequest{
		Email:    "carol@example.com",
		Username: "carol",
		Password: "S3cure!pass",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "S3cure!pass", registered.PasswordHash)

	t.Run("valid", func(t *testing.T) {
		user, err := svc.ValidateCredentials(ctx, "carol", "S3cure!pass")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.ValidateCredentials(ctx, "carol", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.ValidateCredentials(ctx, "mallory", "S3cure!pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
