package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/internal/repository"
	"github.com/campuskit/roombooking/internal/session"
	"github.com/campuskit/roombooking/pkg/config"
	"github.com/campuskit/roombooking/pkg/events"
	"github.com/campuskit/roombooking/pkg/logger"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	// Login verifies credentials and the declared login channel, then
	// establishes a session. It returns the session token and data.
	Login(ctx context.Context, req *domain.LoginRequest) (string, *session.Data, *domain.User, error)
	Logout(ctx context.Context, token string) error
	// CheckSession returns the live session for token, or nil when there
	// is none. Absence is a normal outcome, not an error.
	CheckSession(ctx context.Context, token string) (*session.Data, error)
}

type authService struct {
	userRepo repository.UserRepository
	sessions session.Store
	eventBus events.Publisher
	config   *config.Config
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessions session.Store,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo: userRepo,
		sessions: sessions,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The plaintext never goes past this point.
	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, req, passwordHash)
	if err != nil {
		return nil, err
	}

	event := events.UserRegisteredEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.UserRegistered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user registered event", "error", err, "user_id", user.ID)
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (string, *session.Data, *domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", nil, nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", nil, nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return "", nil, nil, domain.ErrInvalidCredentials
	}

	// The declared channel must match the account's role: an admin account
	// only enters through the admin login and vice versa.
	if req.LoginType == domain.ChannelAdmin && user.Role != domain.RoleAdmin {
		return "", nil, nil, fmt.Errorf("%w: use the general login", domain.ErrChannelMismatch)
	}
	if req.LoginType != domain.ChannelAdmin && user.Role == domain.RoleAdmin {
		return "", nil, nil, fmt.Errorf("%w: use the admin login", domain.ErrChannelMismatch)
	}

	token := uuid.NewString()
	data := session.Data{
		UserID:      user.ID,
		Role:        user.Role,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		ExpiresAt:   time.Now().Add(s.config.Session.TTL),
	}
	if err := s.sessions.Create(ctx, token, data, s.config.Session.TTL); err != nil {
		return "", nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return token, &data, user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (s *authService) CheckSession(ctx context.Context, token string) (*session.Data, error) {
	if token == "" {
		return nil, nil
	}
	return s.sessions.Get(ctx, token)
}
