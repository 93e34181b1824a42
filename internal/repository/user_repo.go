package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository handles all database operations for Users and their
// notification settings.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row inside an existing transaction.
func (r *UserRepository) Create(ctx context.Context, tx *sqlx.Tx, u *domain.User) error {
	query := `
		INSERT INTO users
			(id, email, name, phone, password_hash, role, is_active, created_at, updated_at)
		VALUES
			(:id, :email, :name, :phone, :password_hash, :role, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, u); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("user_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByID: %w", err)
	}
	return &u, nil
}

// GetByEmail fetches a user by email address (used for login).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByEmail: %w", err)
	}
	return &u, nil
}

// UpdateProfile stores the mutable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET name = :name,
		    phone = :phone,
		    mess_qr_url = :mess_qr_url,
		    profile_pic_url = :profile_pic_url,
		    updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("user_repo.UpdateProfile: %w", err)
	}
	return nil
}

// SetActive suspends or reactivates an account.
func (r *UserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`,
		active, userID)
	if err != nil {
		return fmt.Errorf("user_repo.SetActive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List returns a paginated slice of users. Returns (users, totalCount, error).
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List count: %w", err)
	}
	if err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List select: %w", err)
	}
	return users, total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Notification settings
// ──────────────────────────────────────────────────────────────────────────────

// CreateSettings inserts the default settings row inside an existing
// transaction (part of registration).
func (r *UserRepository) CreateSettings(ctx context.Context, tx *sqlx.Tx, s *domain.NotificationSettings) error {
	query := `
		INSERT INTO user_settings
			(user_id, notify_listing_sold, notify_listing_resumed, notify_auction_won,
			 notify_auction_lost, notify_lost_auction_resumes, notify_price_reduced,
			 created_at, updated_at)
		VALUES
			(:user_id, :notify_listing_sold, :notify_listing_resumed, :notify_auction_won,
			 :notify_auction_lost, :notify_lost_auction_resumes, :notify_price_reduced,
			 :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("user_repo.CreateSettings: %w", err)
	}
	return nil
}

// GetSettings fetches a user's notification settings. A missing row (legacy
// account) falls back to the defaults rather than an error.
func (r *UserRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	err := r.db.GetContext(ctx, &s, `SELECT * FROM user_settings WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(userID, time.Now()), nil
		}
		return nil, fmt.Errorf("user_repo.GetSettings: %w", err)
	}
	return &s, nil
}

// UpsertSettings replaces a user's notification settings.
func (r *UserRepository) UpsertSettings(ctx context.Context, s *domain.NotificationSettings) error {
	query := `
		INSERT INTO user_settings
			(user_id, notify_listing_sold, notify_listing_resumed, notify_auction_won,
			 notify_auction_lost, notify_lost_auction_resumes, notify_price_reduced,
			 created_at, updated_at)
		VALUES
			(:user_id, :notify_listing_sold, :notify_listing_resumed, :notify_auction_won,
			 :notify_auction_lost, :notify_lost_auction_resumes, :notify_price_reduced,
			 :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			notify_listing_sold         = EXCLUDED.notify_listing_sold,
			notify_listing_resumed      = EXCLUDED.notify_listing_resumed,
			notify_auction_won          = EXCLUDED.notify_auction_won,
			notify_auction_lost         = EXCLUDED.notify_auction_lost,
			notify_lost_auction_resumes = EXCLUDED.notify_lost_auction_resumes,
			notify_price_reduced        = EXCLUDED.notify_price_reduced,
			updated_at                  = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("user_repo.UpsertSettings: %w", err)
	}
	return nil
}
