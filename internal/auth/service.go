// Package auth issues and verifies the HS256 JWTs that identify every
// API caller, and exposes the login and registration operations.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/rbac"
	"github.com/assetflow/backend/internal/repository"
)

// Service mints and verifies tokens and runs login/registration.
type Service struct {
	db       *database.DB
	users    *repository.UserRepository
	resolver *rbac.Resolver
	secret   []byte
	ttl      time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewService creates the auth service. ttlHours is the token lifetime.
func NewService(db *database.DB, users *repository.UserRepository, resolver *rbac.Resolver, secret string, ttlHours int) *Service {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &Service{
		db:       db,
		users:    users,
		resolver: resolver,
		secret:   []byte(secret),
		ttl:      time.Duration(ttlHours) * time.Hour,
		logger:   log.New(log.Writer(), "[Auth] ", log.LstdFlags),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// tokenClaims is the JWT payload. Permissions are a cache; the RBAC
// resolver falls back to the database on a miss.
type tokenClaims struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	RoleCode    string   `json:"role"`
	RoleLevel   int      `json:"role_level"`
	Department  string   `json:"department,omitempty"`
	OrgID       string   `json:"org,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login verifies credentials and mints a token. Inactive accounts and bad
// passwords both come back as Unauthorized without distinguishing which,
// so login responses do not leak account state.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, s.db, email)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := s.users.UpdateLastLogin(ctx, s.db, user.ID, s.now()); err != nil {
		s.logger.Printf("last-login stamp failed for %s: %v", user.ID, err)
	}

	perms, err := s.resolver.ResolvePermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.mint(user, perms)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// RegisterRequest is the create-account input.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	RoleCode string `json:"role_code"`
	OrgID    string `json:"org_id"`
}

// Register creates an active account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrValidation("password", "cannot be hashed")
	}
	user := &domain.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		OrgID:        req.OrgID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, s.db, user, req.RoleCode); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Service) mint(user *domain.User, perms []string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := tokenClaims{
		Email:       user.Email,
		Name:        user.Name,
		RoleCode:    user.RoleCode,
		RoleLevel:   user.RoleLevel,
		Department:  user.DepartmentID,
		OrgID:       user.OrgID,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning the resolved claims.
// Expired, malformed and wrongly signed tokens all map to Unauthorized.
func (s *Service) Verify(token string) (*domain.UserClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrUnauthorized("token expired")
		}
		return nil, domain.ErrUnauthorized("invalid token")
	}
	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrUnauthorized("invalid token")
	}
	return &domain.UserClaims{
		UserID:      tc.Subject,
		Email:       tc.Email,
		Name:        tc.Name,
		RoleCode:    tc.RoleCode,
		RoleLevel:   tc.RoleLevel,
		Department:  tc.Department,
		OrgID:       tc.OrgID,
		Permissions: tc.Permissions,
	}, nil
}
