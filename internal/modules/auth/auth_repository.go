package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syonosuke743/portfolio/internal/models"
)

// RepositoryInterface defines the contract for the user repository.
type RepositoryInterface interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProvider(ctx context.Context, userID, provider string) (*models.User, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const userColumns = `id, email, password_hash, provider, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Provider, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// FindByEmail retrieves a user by e-mail address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("repository.FindByEmail: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by id.
func (r *Repository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return u, nil
}

// Create inserts a user and fills in its id and creation time.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, provider)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		user.ID, user.Email, user.PasswordHash, user.Provider,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("repository.CreateUser: %w", err)
	}
	return nil
}

// UpdateProvider records the external provider of an existing user.
func (r *Repository) UpdateProvider(ctx context.Context, userID, provider string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users SET provider = $2
		WHERE id = $1
		RETURNING `+userColumns, userID, provider)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("repository.UpdateProvider: %w", err)
	}
	return u, nil
}
