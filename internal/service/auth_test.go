package service

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgcrypto "github.com/ekropotin/daybook/internal/crypto"
	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/limiter"
	"github.com/ekropotin/daybook/internal/model"
	"github.com/ekropotin/daybook/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func newUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	return &model.User{
		ID:       uuid.Must(uuid.NewV4()),
		Email:    email,
		Name:     "Test",
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth: salt,
	}
}

func TestAuth_Signup_Basics(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byEmail: map[string]*model.User{}}
	s := NewAuthService(users, []byte("k"), time.Minute, &fakeLimiter{})

	if err := s.Signup(context.Background(), "", "", ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty fields, got %v", err)
	}

	if err := s.Signup(context.Background(), "a@b.com", "A", "longenough1"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	stored := users.byEmail["a@b.com"]
	if stored == nil || len(stored.PwdHash) == 0 || len(stored.SaltAuth) == 0 {
		t.Fatalf("user not persisted with hash+salt: %+v", stored)
	}
	if string(stored.PwdHash) == "longenough1" {
		t.Fatalf("password stored in plaintext")
	}

	if err := s.Signup(context.Background(), "a@b.com", "A2", "otherpass123"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}

	users.createErr = errors.New("boom")
	if err := s.Signup(context.Background(), "b@c.com", "B", "longenough1"); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_LoginWithIP_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()

	u := newUser(t, "alice@example.com", "correct-pass")
	users := &fakeUsers{byEmail: map[string]*model.User{u.Email: u}}
	lim := &fakeLimiter{allowOK: true}
	s := NewAuthService(users, []byte("secret"), 2*time.Minute, lim)

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.LoginWithIP(context.Background(), u.Email, "correct-pass", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.LoginWithIP(context.Background(), u.Email, "correct-pass", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	// Unknown email and wrong password both map to the same sentinel.
	if _, _, err := s.LoginWithIP(context.Background(), "nobody@example.com", "x", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on unknown email, got %v", err)
	}
	if _, _, err := s.LoginWithIP(context.Background(), u.Email, "wrong", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	lim.failBlocked = true
	if _, _, err := s.LoginWithIP(context.Background(), u.Email, "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}
	lim.failBlocked = false

	tok, gotUser, err := s.LoginWithIP(context.Background(), u.Email, "correct-pass", "127.0.0.1:123")
	if err != nil {
		t.Fatalf("LoginWithIP success: %v", err)
	}
	if tok.Value == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if gotUser.ID != u.ID || gotUser.Email != u.Email {
		t.Fatalf("bad user returned: %+v", gotUser)
	}
	if lim.successCalls == 0 {
		t.Fatalf("expected Success() to be called")
	}
}

func TestAuth_Authenticate(t *testing.T) {
	t.Parallel()

	u := newUser(t, "bob@example.com", "p@ssword12")
	users := &fakeUsers{byEmail: map[string]*model.User{u.Email: u}}
	key := []byte("sign-key")
	s := NewAuthService(users, key, time.Hour, &fakeLimiter{allowOK: true})

	tok, _, err := s.LoginWithIP(context.Background(), u.Email, "p@ssword12", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	got, err := s.Authenticate(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user resolved: %v", got.ID)
	}

	if _, err := s.Authenticate(context.Background(), "not-a-jwt"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on garbage token, got %v", err)
	}

	// Token signed with a different key.
	other := NewAuthService(users, []byte("other-key"), time.Hour, &fakeLimiter{allowOK: true})
	otherTok, _, err := other.LoginWithIP(context.Background(), u.Email, "p@ssword12", "")
	if err != nil {
		t.Fatalf("login(other): %v", err)
	}
	if _, err := s.Authenticate(context.Background(), otherTok.Value); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on bad signature, got %v", err)
	}

	// Expired token (beyond the validation leeway).
	expired := issueExpired(t, key, u.ID)
	if _, err := s.Authenticate(context.Background(), expired); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on expired token, got %v", err)
	}

	// Valid token but the user is gone.
	delete(users.byEmail, u.Email)
	if _, err := s.Authenticate(context.Background(), tok.Value); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for deleted user, got %v", err)
	}
}

func issueExpired(t *testing.T, key []byte, userID uuid.UUID) string {
	t.Helper()
	now := time.Now().Add(-2 * time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}
