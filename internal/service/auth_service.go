package service

import (
	"context"
	"strings"
	"time"

	"skillswap/internal/auth"
	"skillswap/internal/models"
	"skillswap/internal/validation"
)

// TokenRevoker blacklists a token until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// AuthService handles signup, login and logout.
type AuthService struct {
	store   Transactor
	tokens  *auth.TokenManager
	revoker TokenRevoker
	now     clock
}

// NewAuthService returns an AuthService. revoker may be nil, which makes Logout a no-op.
func NewAuthService(store Transactor, tokens *auth.TokenManager, revoker TokenRevoker) *AuthService {
	return &AuthService{store: store, tokens: tokens, revoker: revoker, now: time.Now}
}

// SignupInput is the signup request body.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Location string
}

// Session is a freshly issued token and its account.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Signup creates an account and signs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = validation.NormalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email and password are required")
	}
	for _, err := range []error{
		validation.ValidateName(in.Name),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
		validation.ValidateLocation(in.Location),
	} {
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	users := s.store.Repositories().Users
	existing, err := users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:       in.Name,
		Email:      in.Email,
		Password:   hash,
		Location:   in.Location,
		IsPublic:   true,
		IsActive:   true,
		Role:       models.RoleUser,
		LastActive: s.now(),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.SplitSkills()

	return s.issue(user)
}

// Login checks credentials, touches lastActive and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	users := s.store.Repositories().Users
	account, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil || !auth.CheckPassword(account.Password, password) {
		return nil, models.NewValidationError("Invalid credentials")
	}
	if !account.IsActive {
		return nil, models.NewUnauthorizedError("Account is deactivated. Please contact support.")
	}

	if err := users.Update(ctx, account.ID, map[string]interface{}{"last_active": s.now()}); err != nil {
		return nil, err
	}
	user, err := users.GetByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Logout revokes the presented token.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Verify returns the account behind a verified token.
func (s *AuthService) Verify(ctx context.Context, userID uint) (*models.User, error) {
	return s.store.Repositories().Users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}
