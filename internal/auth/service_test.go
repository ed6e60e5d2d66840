package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/internal/users"
	pkgauth "github.com/velara-labs/cryptomart-backend/pkg/auth"
	"github.com/velara-labs/cryptomart-backend/pkg/auth/session"
	"github.com/velara-labs/cryptomart-backend/pkg/config"
	"github.com/velara-labs/cryptomart-backend/pkg/db/models"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
	"github.com/velara-labs/cryptomart-backend/pkg/security"
)

type stubUsersRepo struct {
	user       *models.User
	lastLogins int
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.Repository {
	return s
}

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	panic("not implemented")
}

func (s *stubUsersRepo) FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	panic("not implemented")
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUsersRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	s.lastLogins++
	return nil
}

type stubSessions struct {
	generated  []string
	revoked    []string
	rotateErr  error
	nextAccess string
	nextToken  string
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return s.nextAccess, s.nextToken, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubLimiter struct {
	denyScopes map[string]bool
	calls      []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.calls = append(s.calls, scope)
	if s.denyScopes[scope] {
		return false, limit, nil
	}
	return true, 1, nil
}

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret-test-secret-test-secret",
	Issuer:            "cryptomart-test",
	ExpirationMinutes: 15,
}

var testRLCfg = config.AuthRateLimitConfig{
	LoginWindow:     time.Minute,
	LoginEmailLimit: 5,
	LoginIPLimit:    20,
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
	}
}

func newTestService(t *testing.T, repo users.Repository, sessions sessionManager, limiter rateLimiter) Service {
	t.Helper()
	svc, err := NewService(repo, sessions, limiter, testJWTCfg, testRLCfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	user := testUser(t, "correct horse battery staple")
	repo := &stubUsersRepo{user: user}
	sessions := &stubSessions{}
	svc := newTestService(t, repo, sessions, &stubLimiter{})

	pair, err := svc.Login(context.Background(), " Admin@Example.com ", "correct horse battery staple", "10.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token pair")
	}
	if pair.ExpiresIn != 15*60 {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}
	if repo.lastLogins != 1 {
		t.Fatalf("last login updates = %d", repo.lastLogins)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
	if len(sessions.generated) != 1 || sessions.generated[0] != claims.ID {
		t.Fatalf("session keyed by %v, token jti %s", sessions.generated, claims.ID)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	user := testUser(t, "right password")
	repo := &stubUsersRepo{user: user}
	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{})

	_, err := svc.Login(context.Background(), user.Email, "wrong password", "")
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if repo.lastLogins != 0 {
		t.Fatal("last login must not be touched on failure")
	}
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc := newTestService(t, &stubUsersRepo{}, &stubSessions{}, &stubLimiter{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever", "")
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginRateLimitedByEmail(t *testing.T) {
	user := testUser(t, "pw")
	limiter := &stubLimiter{denyScopes: map[string]bool{"login:email:" + user.Email: true}}
	svc := newTestService(t, &stubUsersRepo{user: user}, &stubSessions{}, limiter)

	_, err := svc.Login(context.Background(), user.Email, "pw", "10.0.0.1")
	assertCode(t, err, pkgerrors.CodeRateLimit)
}

func TestLoginRateLimitedByIP(t *testing.T) {
	user := testUser(t, "pw")
	limiter := &stubLimiter{denyScopes: map[string]bool{"login:ip:10.0.0.9": true}}
	svc := newTestService(t, &stubUsersRepo{user: user}, &stubSessions{}, limiter)

	_, err := svc.Login(context.Background(), user.Email, "pw", "10.0.0.9")
	assertCode(t, err, pkgerrors.CodeRateLimit)
}

func TestRefreshRotatesSession(t *testing.T) {
	user := testUser(t, "pw")
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(testJWTCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	nextAccess := session.NewAccessID()
	sessions := &stubSessions{nextAccess: nextAccess, nextToken: "fresh-refresh"}
	svc := newTestService(t, &stubUsersRepo{user: user}, sessions, &stubLimiter{})

	pair, err := svc.Refresh(context.Background(), accessToken, "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken != "fresh-refresh" {
		t.Fatalf("refresh token = %q", pair.RefreshToken)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.ID != nextAccess {
		t.Fatalf("new jti = %s, want %s", claims.ID, nextAccess)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %s", claims.UserID)
	}
}

func TestRefreshInvalidTokenUnauthorized(t *testing.T) {
	user := testUser(t, "pw")
	accessToken, err := pkgauth.MintAccessToken(testJWTCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	sessions := &stubSessions{rotateErr: session.ErrInvalidRefreshToken}
	svc := newTestService(t, &stubUsersRepo{user: user}, sessions, &stubLimiter{})

	_, err = svc.Refresh(context.Background(), accessToken, "stolen-token")
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessions{}
	svc := newTestService(t, &stubUsersRepo{}, sessions, &stubLimiter{})

	accessID := session.NewAccessID()
	if err := svc.Logout(context.Background(), accessID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != accessID {
		t.Fatalf("revoked = %v", sessions.revoked)
	}
}
