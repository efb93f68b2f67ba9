package usecase_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/domain"
	"github.com/Stepanishin/telepublisher-be/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

// ---- fakes ----

type fakeTenantRepo struct {
	findOrCreate     func(ctx context.Context, email string) (*domain.Tenant, error)
	findByID         func(ctx context.Context, id string) (*domain.Tenant, error)
	createMagicToken func(ctx context.Context, tenantID, tokenHash string, expiresAt time.Time) error
	claimMagicToken  func(ctx context.Context, tokenHash string) (*domain.MagicToken, error)
	balance          func(ctx context.Context, tenantID string) (int, error)
	adjustCredits    func(ctx context.Context, tenantID string, delta, addUsed int) (int, error)
}

func (r *fakeTenantRepo) FindOrCreate(ctx context.Context, email string) (*domain.Tenant, error) {
	return r.findOrCreate(ctx, email)
}

func (r *fakeTenantRepo) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.findByID(ctx, id)
}

func (r *fakeTenantRepo) CreateMagicToken(ctx context.Context, tenantID, tokenHash string, expiresAt time.Time) error {
	return r.createMagicToken(ctx, tenantID, tokenHash, expiresAt)
}

func (r *fakeTenantRepo) ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error) {
	return r.claimMagicToken(ctx, tokenHash)
}

func (r *fakeTenantRepo) DeleteExpiredMagicTokens(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTenantRepo) Balance(ctx context.Context, tenantID string) (int, error) {
	return r.balance(ctx, tenantID)
}

func (r *fakeTenantRepo) AdjustCredits(ctx context.Context, tenantID string, delta, addUsed int) (int, error) {
	return r.adjustCredits(ctx, tenantID, delta, addUsed)
}

type fakeEmailSender struct {
	send func(ctx context.Context, to, subject, body string) error
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

// ---- helpers ----

const (
	testJWTKey        = "test-jwt-secret-at-least-32-chars!!"
	testMagicLinkBase = "http://localhost:8080"
)

func newAuthUsecase(repo *fakeTenantRepo, sender *fakeEmailSender) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(repo, sender, []byte(testJWTKey), testMagicLinkBase)
}

var testTenant = &domain.Tenant{ID: "tenant-1", Email: "test@example.com", Credits: 10}

// ---- RequestMagicLink ----

func TestRequestMagicLink_StoresHashOfEmailedToken(t *testing.T) {
	var capturedHash string
	var capturedBody string

	repo := &fakeTenantRepo{
		findOrCreate: func(_ context.Context, _ string) (*domain.Tenant, error) {
			return testTenant, nil
		},
		createMagicToken: func(_ context.Context, _, tokenHash string, _ time.Time) error {
			capturedHash = tokenHash
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, body string) error {
			capturedBody = body
			return nil
		},
	}

	if err := newAuthUsecase(repo, sender).RequestMagicLink(context.Background(), testTenant.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Extract the raw token from the link embedded in the email body.
	idx := strings.Index(capturedBody, "?token=")
	if idx == -1 {
		t.Fatal("email body does not contain ?token=")
	}
	rawToken := strings.SplitN(capturedBody[idx+len("?token="):], `"`, 2)[0]

	wantHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))
	if capturedHash != wantHash {
		t.Errorf("stored hash %q != SHA-256 of emailed token %q", capturedHash, wantHash)
	}
}

func TestRequestMagicLink_TokenExpiresInFuture(t *testing.T) {
	var capturedExpiry time.Time

	repo := &fakeTenantRepo{
		findOrCreate: func(_ context.Context, _ string) (*domain.Tenant, error) {
			return testTenant, nil
		},
		createMagicToken: func(_ context.Context, _, _ string, expiresAt time.Time) error {
			capturedExpiry = expiresAt
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error { return nil },
	}

	before := time.Now()
	if err := newAuthUsecase(repo, sender).RequestMagicLink(context.Background(), testTenant.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !capturedExpiry.After(before) {
		t.Errorf("expiry %v is not after request time %v", capturedExpiry, before)
	}
}

func TestRequestMagicLink_RepoError_Propagates(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &fakeTenantRepo{
		findOrCreate: func(_ context.Context, _ string) (*domain.Tenant, error) {
			return nil, repoErr
		},
	}
	sender := &fakeEmailSender{}

	err := newAuthUsecase(repo, sender).RequestMagicLink(context.Background(), testTenant.Email)
	if !errors.Is(err, repoErr) {
		t.Errorf("want wrapped repoErr, got %v", err)
	}
}

func TestRequestMagicLink_EmailError_Propagates(t *testing.T) {
	sendErr := errors.New("smtp unavailable")
	repo := &fakeTenantRepo{
		findOrCreate: func(_ context.Context, _ string) (*domain.Tenant, error) {
			return testTenant, nil
		},
		createMagicToken: func(_ context.Context, _, _ string, _ time.Time) error {
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error { return sendErr },
	}

	err := newAuthUsecase(repo, sender).RequestMagicLink(context.Background(), testTenant.Email)
	if !errors.Is(err, sendErr) {
		t.Errorf("want wrapped sendErr, got %v", err)
	}
}

// ---- VerifyMagicLink ----

func TestVerifyMagicLink_ReturnsSignedJWT(t *testing.T) {
	const rawToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))

	mt := &domain.MagicToken{ID: "mt-1", TenantID: testTenant.ID, TokenHash: expectedHash}
	repo := &fakeTenantRepo{
		claimMagicToken: func(_ context.Context, tokenHash string) (*domain.MagicToken, error) {
			if tokenHash != expectedHash {
				return nil, domain.ErrTokenInvalid
			}
			return mt, nil
		},
		findByID: func(_ context.Context, _ string) (*domain.Tenant, error) {
			return testTenant, nil
		},
	}
	sender := &fakeEmailSender{}

	signed, err := newAuthUsecase(repo, sender).VerifyMagicLink(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, parseErr := jwt.Parse(signed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected method")
		}
		return []byte(testJWTKey), nil
	})
	if parseErr != nil || !token.Valid {
		t.Fatalf("returned JWT is invalid: %v", parseErr)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("could not cast claims")
	}
	if claims["sub"] != testTenant.ID {
		t.Errorf("sub = %v, want %q", claims["sub"], testTenant.ID)
	}
	if claims["email"] != testTenant.Email {
		t.Errorf("email = %v, want %q", claims["email"], testTenant.Email)
	}
}

func TestVerifyMagicLink_InvalidToken_ReturnsErrTokenInvalid(t *testing.T) {
	repo := &fakeTenantRepo{
		claimMagicToken: func(_ context.Context, _ string) (*domain.MagicToken, error) {
			return nil, domain.ErrTokenInvalid
		},
	}
	sender := &fakeEmailSender{}

	_, err := newAuthUsecase(repo, sender).VerifyMagicLink(context.Background(), "bad-token")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}
