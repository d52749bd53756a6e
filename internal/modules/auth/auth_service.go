package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/models"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

const issuer = "tokotoko"

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload of access and refresh tokens. The user id is
// the registered subject.
type Claims struct {
	Email     string  `json:"email"`
	Provider  *string `json:"provider"`
	TokenType string  `json:"typ"`
	jwt.RegisteredClaims
}

// ServiceInterface defines the contract for the auth service.
type ServiceInterface interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	OAuthLogin(ctx context.Context, req models.OAuthLoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

// Service implements account and token logic.
type Service struct {
	repo       RepositoryInterface
	verifier   IdentityVerifier
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	hashCost   int
	now        func() time.Time
}

// NewService creates a new auth service. A nil verifier disables OAuth
// login.
func NewService(repo RepositoryInterface, verifier IdentityVerifier, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		verifier:   verifier,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		hashCost:   BcryptCost,
		now:        time.Now,
	}
}

// HashPassword hashes a plaintext password with BcryptCost.
func HashPassword(password string) (string, error) {
	return hashPassword(password, BcryptCost)
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, models.ErrConflict
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("service.Register: %w", err)
	}

	hash, err := hashPassword(req.Password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("service.Register: %w", err)
	}
	user := &models.User{Email: req.Email, PasswordHash: &hash}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("service.Register: %w", err)
	}

	logging.Info().Str("user_id", user.ID).Msg("user registered")
	return s.tokenResponse(user)
}

// Login checks a password against the stored hash. Unknown users, accounts
// without a password and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.tokenResponse(user)
}

// OAuthLogin signs in the user whose e-mail the identity provider verified,
// creating the account on first use.
func (s *Service) OAuthLogin(ctx context.Context, req models.OAuthLoginRequest) (*models.AuthResponse, error) {
	if s.verifier == nil {
		return nil, models.ErrOAuthUnavailable
	}
	identity, err := s.verifier.Verify(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			logging.Warn().Err(err).Msg("oauth identity rejected")
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.OAuthLogin: %w", err)
	}
	provider := identity.Provider

	user, err := s.repo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if (user.Provider == nil || *user.Provider == "") && provider != "" {
			user, err = s.repo.UpdateProvider(ctx, user.ID, provider)
			if err != nil {
				return nil, fmt.Errorf("service.OAuthLogin: %w", err)
			}
		}
	case errors.Is(err, models.ErrNotFound):
		user = &models.User{Email: identity.Email}
		if provider != "" {
			user.Provider = &provider
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service.OAuthLogin: %w", err)
		}
		logging.Info().Str("user_id", user.ID).Str("provider", provider).Msg("user created from oauth login")
	default:
		return nil, fmt.Errorf("service.OAuthLogin: %w", err)
	}
	return s.tokenResponse(user)
}

// Refresh issues a new token pair for the owner of a valid refresh token.
func (s *Service) Refresh(ctx context.Context, req models.RefreshRequest) (*models.AuthResponse, error) {
	claims, err := parseToken(req.RefreshToken, s.secret, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("service.Refresh: %w", err)
	}
	return s.tokenResponse(user)
}

// Me returns the user behind a validated token.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.Me: %w", err)
	}
	return user, nil
}

func (s *Service) tokenResponse(user *models.User) (*models.AuthResponse, error) {
	access, err := s.sign(user, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email:     user.Email,
		Provider:  user.Provider,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// ValidateToken parses an access token signed by this service.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return parseToken(tokenString, s.secret, TokenTypeAccess)
}

// parseToken verifies signature, expiry and subject, and requires the typ
// claim to equal tokenType.
func parseToken(tokenString string, secret []byte, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, models.ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: %q token where %q expected", models.ErrInvalidToken, claims.TokenType, tokenType)
	}
	return claims, nil
}
