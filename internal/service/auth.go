// Package service contains application services for authentication and journal entries.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgcrypto "github.com/ekropotin/daybook/internal/crypto"
	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/limiter"
	"github.com/ekropotin/daybook/internal/model"
	"github.com/ekropotin/daybook/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Signup creates a new user with secure password hashing.
	Signup(ctx context.Context, email, name, password string) error
	// LoginWithIP applies rate-limiting, authenticates, and mints a bearer token.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Token, model.User, error)
	// Authenticate verifies a bearer token and resolves it to a live user.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type AuthServiceImpl struct {
	users    repository.UserRepository
	signKey  []byte
	tokenTTL time.Duration
	lim      limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, tokenTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, tokenTTL: tokenTTL, lim: lim}
}

// Signup creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Signup(ctx context.Context, email, name, password string) error {
	if email == "" || name == "" || password == "" {
		return fmt.Errorf("%w: empty email/name/password", errs.ErrInvalidInput)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	saltAuth, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return err
	}
	u := &model.User{
		ID:       uid,
		Email:    email,
		Name:     name,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	return s.users.Create(ctx, u)
}

// LoginWithIP authenticates with rate limiting by (email, ip).
// Unknown email and wrong password fail identically.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Token, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Token{}, model.User{}, err
	}
	if !allowed {
		return model.Token{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Token{}, model.User{}, errs.ErrRateLimited
		}
		// lookup failures are masked the same as a wrong password
		return model.Token{}, model.User{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issueToken(u.ID)
	if err != nil {
		return model.Token{}, model.User{}, err
	}
	return tok, *u, nil
}

// Authenticate verifies the HS256 signature and expiry of token and loads the
// user it names. Any failure, including a since-deleted user, is ErrUnauthorized.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (*model.User, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrUnauthorized
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return nil, errs.ErrUnauthorized
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	return u, nil
}

// issueToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueToken(userID uuid.UUID) (model.Token, error) {
	now := time.Now()
	exp := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{Value: signed, ExpiresAt: exp}, nil
}
