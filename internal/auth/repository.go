package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

// RepositoryInterface defines user data access for the auth service.
type RepositoryInterface interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Repository handles user data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `
	id, phone, name, email, referral_code, is_admin, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Phone, &u.Name, &u.Email, &u.ReferralCode,
		&u.IsAdmin, &u.CreatedAt, &u.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, phone, name, email, referral_code, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Phone, u.Name, u.Email, u.ReferralCode, u.IsAdmin, u.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByPhone retrieves a user by phone number
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE phone = $1`, phone)
	return scanUser(row)
}

// GetByEmail retrieves a user by email. Only OAuth accounts carry one.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// TouchLastLogin stamps the login time.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}
