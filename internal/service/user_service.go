package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
)

// UserService handles profile and notification-settings management.
type UserService struct {
	userRepo *repository.UserRepository
	logger   *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(userRepo *repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// GetProfile returns a user's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.PublicProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.ToPublicProfile()
	return &p, nil
}

// UpdateProfileParams carries the editable profile fields. Nil pointers leave
// the stored value unchanged.
type UpdateProfileParams struct {
	Name          *string
	Phone         *string
	MessQRURL     *string
	ProfilePicURL *string
}

// UpdateProfile applies partial profile edits for the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, p UpdateProfileParams) (*domain.PublicProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.MessQRURL != nil {
		u.MessQRURL = p.MessQRURL
	}
	if p.ProfilePicURL != nil {
		u.ProfilePicURL = p.ProfilePicURL
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	out := u.ToPublicProfile()
	return &out, nil
}

// GetSettings returns a user's notification settings.
func (s *UserService) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.NotificationSettings, error) {
	return s.userRepo.GetSettings(ctx, userID)
}

// UpdateSettings replaces a user's notification toggles.
func (s *UserService) UpdateSettings(ctx context.Context, settings *domain.NotificationSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = settings.UpdatedAt
	}
	return s.userRepo.UpsertSettings(ctx, settings)
}

// ──────────────────────────────────────────────────────────────────────────────
// Back-office
// ──────────────────────────────────────────────────────────────────────────────

// List returns a paginated user list for the back-office.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// Suspend deactivates an account.
func (s *UserService) Suspend(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	s.logger.Warn("user suspended", "user_id", userID)
	return nil
}

// Reinstate reactivates a suspended account.
func (s *UserService) Reinstate(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetActive(ctx, userID, true); err != nil {
		return err
	}
	s.logger.Info("user reinstated", "user_id", userID)
	return nil
}
