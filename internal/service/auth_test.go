package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/CTFClient/internal/models"
)

type mockAuthRepo struct {
	UserByEmailFunc func(ctx context.Context, email string) (models.AdminUser, []byte, error)
	CreateUserFunc  func(ctx context.Context, nu models.NewUser, hash []byte, typ string) (models.AdminUser, error)
	UserFunc        func(ctx context.Context, id int64) (models.AdminUser, error)
}

func (m *mockAuthRepo) UserByEmail(ctx context.Context, email string) (models.AdminUser, []byte, error) {
	return m.UserByEmailFunc(ctx, email)
}

func (m *mockAuthRepo) CreateUser(ctx context.Context, nu models.NewUser, hash []byte, typ string) (models.AdminUser, error) {
	return m.CreateUserFunc(ctx, nu, hash, typ)
}

func (m *mockAuthRepo) User(ctx context.Context, id int64) (models.AdminUser, error) {
	return m.UserFunc(ctx, id)
}

func hashed(t *testing.T, pw string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestRegister_HashesPassword(t *testing.T) {
	var stored []byte
	repo := &mockAuthRepo{
		CreateUserFunc: func(_ context.Context, nu models.NewUser, hash []byte, typ string) (models.AdminUser, error) {
			stored = hash
			assert.Equal(t, "admin", typ)
			return models.AdminUser{User: models.User{ID: 1, Email: nu.Email}, Type: typ}, nil
		},
	}
	svc := NewAuthService(repo, "secret", 0)

	u, err := svc.Register(context.Background(), models.NewUser{Name: "root", Email: "root@ctf.io", Password: "hunter22"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword(stored, []byte("hunter22")))
}

func TestLogin(t *testing.T) {
	hash := hashed(t, "hunter22")
	users := map[string]models.AdminUser{
		"alice@ctf.io":  {User: models.User{ID: 1, Email: "alice@ctf.io"}, Type: "admin"},
		"banned@ctf.io": {User: models.User{ID: 2, Email: "banned@ctf.io", Banned: true}, Type: "user"},
	}
	repo := &mockAuthRepo{
		UserByEmailFunc: func(_ context.Context, email string) (models.AdminUser, []byte, error) {
			u, ok := users[email]
			if !ok {
				return models.AdminUser{}, nil, errors.New("not found")
			}
			return u, hash, nil
		},
	}
	svc := NewAuthService(repo, "secret", time.Hour)

	tests := []struct {
		name    string
		creds   models.Credentials
		wantErr error
	}{
		{"valid", models.Credentials{Email: "alice@ctf.io", Password: "hunter22"}, nil},
		{"wrong password", models.Credentials{Email: "alice@ctf.io", Password: "nope"}, ErrInvalidCredentials},
		{"unknown email", models.Credentials{Email: "eve@ctf.io", Password: "hunter22"}, ErrInvalidCredentials},
		{"banned", models.Credentials{Email: "banned@ctf.io", Password: "hunter22"}, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, tok, err := svc.Login(context.Background(), tt.creds)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, tok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), u.ID)

			sess, err := svc.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, int64(1), sess.UserID)
			assert.True(t, sess.Admin)
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	svc := NewAuthService(nil, "secret", time.Hour)
	u := models.AdminUser{User: models.User{ID: 5}, Type: "user"}

	tok, err := svc.Issue(u)
	require.NoError(t, err)

	other := NewAuthService(nil, "other-secret", time.Hour)
	_, err = other.Verify(tok)
	assert.Error(t, err, "foreign signature must be rejected")

	expired := NewAuthService(nil, "secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Verify(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 5, Admin: true}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(none)
	assert.Error(t, err, "alg none must be rejected")

	sess, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.False(t, sess.Admin)
}

func TestEnsureAdmin(t *testing.T) {
	created := 0
	repo := &mockAuthRepo{
		UserByEmailFunc: func(_ context.Context, email string) (models.AdminUser, []byte, error) {
			if created > 0 {
				return models.AdminUser{}, nil, nil
			}
			return models.AdminUser{}, nil, errors.New("not found")
		},
		CreateUserFunc: func(_ context.Context, nu models.NewUser, _ []byte, typ string) (models.AdminUser, error) {
			created++
			assert.Equal(t, "admin", typ)
			return models.AdminUser{}, nil
		},
	}
	svc := NewAuthService(repo, "secret", time.Hour)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@ctf.io", "admin123"))
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@ctf.io", "admin123"))
	assert.Equal(t, 1, created)
}
