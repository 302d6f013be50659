package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docvault/internal/auth"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// TokenIssuer signs identity tokens for a username.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
}

// AuthService registers accounts, checks credentials and resolves token subjects.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	// ResolveIdentity loads the user a validated token names.
	ResolveIdentity(ctx context.Context, username string) (auth.Identity, error)
	// EnsureAdmin creates the bootstrap administrator if no user has that username yet.
	EnsureAdmin(ctx context.Context, req RegisterRequest) error
}

type authService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	clock  *clock
	log    zerolog.Logger
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, log zerolog.Logger) AuthService {
	return &authService{users: users, tokens: tokens, clock: newClock(), log: log}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, &AlreadyExistsError{Field: "username"}
	}
	taken, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, &AlreadyExistsError{Field: "email"}
	}

	u, err := s.createUser(ctx, req, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.respond(u)
}

func (s *authService) createUser(ctx context.Context, req RegisterRequest, role model.Role) (*model.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Next(),
	})
	if err != nil {
		// lost a race with a concurrent registration
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, &AlreadyExistsError{Field: dup.Field}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.ComparePassword(u.PasswordHash, req.Password); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return s.respond(u)
}

func (s *authService) respond(u *model.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResponse{Token: token, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

func (s *authService) ResolveIdentity(ctx context.Context, username string) (auth.Identity, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return auth.Identity{}, &NotFoundError{Resource: ResourceUser, ID: username}
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("find user: %w", err)
	}
	return auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, req RegisterRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	existing, err := s.users.FindByUsername(ctx, req.Username)
	switch {
	case err == nil:
		if !existing.Role.IsAdmin() {
			s.log.Warn().Str("username", req.Username).Msg("bootstrap admin username belongs to a non-admin user")
		}
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("find admin: %w", err)
	}

	if _, err := s.createUser(ctx, req, model.RoleAdmin); err != nil {
		return err
	}
	s.log.Info().Str("username", req.Username).Msg("bootstrap admin created")
	return nil
}
