package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"sharedrop/internal/database"
	"sharedrop/internal/models"
)

// Repository defines the user repository interface
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error
	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetByEmail retrieves a user by their email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByUsername retrieves a user by their username
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistingIDs returns the subset of ids that belong to active users
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	*database.Repository
}

// NewRepository creates a new user repository
func NewRepository(db *database.DB) Repository {
	return &repository{
		Repository: database.NewRepository(db),
	}
}

// Create relies on the unique constraints; the violated one decides the error.
func (r *repository) Create(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (id, email, username, password_hash, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING created_at, updated_at`

	err := r.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "email") {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return r.Error("create user", err)
	}
	return nil
}

func (r *repository) getBy(ctx context.Context, column string, value interface{}) (*models.User, error) {
	var user models.User
	err := r.Get(ctx, &user, "SELECT * FROM users WHERE "+column+" = $1", value)
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, r.Error("get user by "+column, err)
	}
	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *repository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	var found []uuid.UUID
	query := `SELECT id FROM users WHERE is_active AND id::text = ANY($1)`
	if err := r.Select(ctx, &found, query, params); err != nil {
		return nil, fmt.Errorf("checking user ids: %w", err)
	}
	return found, nil
}
