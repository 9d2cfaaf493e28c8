// Package service provides the dev server's authentication and
// notification fan-out logic, delegating persistence to a repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/CTFClient/internal/middleware"
	"github.com/atinyakov/CTFClient/internal/models"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

const issuer = "ctf-devserver"

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserByEmail returns the account and its bcrypt hash.
	UserByEmail(ctx context.Context, email string) (models.AdminUser, []byte, error)
	// CreateUser stores a new account with an already hashed password.
	CreateUser(ctx context.Context, nu models.NewUser, hash []byte, typ string) (models.AdminUser, error)
	// User returns the account with the given id.
	User(ctx context.Context, id int64) (models.AdminUser, error)
}

// Claims is the payload of a session token.
type Claims struct {
	UserID int64 `json:"uid"`
	Admin  bool  `json:"admin"`
	jwt.RegisteredClaims
}

// AuthService checks passwords and issues signed session tokens.
type AuthService struct {
	repo   AuthRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService constructs an AuthService signing tokens with secret.
func NewAuthService(repo AuthRepository, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register hashes the password and stores the account with the given type
// ("user" or "admin").
func (s *AuthService) Register(ctx context.Context, nu models.NewUser, typ string) (models.AdminUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, nu, hash, typ)
}

// Login verifies creds and returns the account with a fresh token.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (models.AdminUser, string, error) {
	u, hash, err := s.repo.UserByEmail(ctx, creds.Email)
	if err != nil {
		return models.AdminUser{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)) != nil {
		return models.AdminUser{}, "", ErrInvalidCredentials
	}
	if u.Banned {
		return models.AdminUser{}, "", ErrInvalidCredentials
	}
	tok, err := s.Issue(u)
	if err != nil {
		return models.AdminUser{}, "", err
	}
	return u, tok, nil
}

// Issue signs a token for u.
func (s *AuthService) Issue(u models.AdminUser) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		Admin:  u.Type == "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry of token.
func (s *AuthService) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify implements middleware.TokenVerifier.
func (s *AuthService) Verify(token string) (middleware.Session, error) {
	c, err := s.Parse(token)
	if err != nil {
		return middleware.Session{}, err
	}
	return middleware.Session{UserID: c.UserID, Admin: c.Admin}, nil
}

// CurrentUser loads the account a session belongs to.
func (s *AuthService) CurrentUser(ctx context.Context, sess middleware.Session) (models.AdminUser, error) {
	return s.repo.User(ctx, sess.UserID)
}

// EnsureAdmin registers the seed admin unless the email is already taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if _, _, err := s.repo.UserByEmail(ctx, email); err == nil {
		return nil
	}
	_, err := s.Register(ctx, models.NewUser{Name: "admin", Email: email, Password: password}, "admin")
	return err
}
