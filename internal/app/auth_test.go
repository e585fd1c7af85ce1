package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "learnpath-service/internal/app"
	"learnpath-service/internal/domain"
	"learnpath-service/internal/infra/memory"
	"learnpath-service/internal/logging"
)

type stubLimiter struct {
	retryAfter int
	limited    bool
	err        error
	keys       []string
}

func (l *stubLimiter) Reserve(_ context.Context, key string) (int, bool, error) {
	l.keys = append(l.keys, key)
	return l.retryAfter, l.limited, l.err
}

func newAuthService(t *testing.T, limiter RateLimiter) *AuthService {
	t.Helper()
	return NewAuthService(memory.NewUserStore(), limiter, memory.NewTokenDenylist(), "test-secret", time.Hour, logging.Discard())
}

func TestAuthSignUpSignInRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)

	user, err := svc.SignUp(ctx, "  Learner@Example.COM ", "Learner", "supersecret")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "learner@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if user.PasswordHash == "supersecret" {
		t.Error("password stored in the clear")
	}

	token, signedIn, err := svc.SignIn(ctx, "learner@example.com", "supersecret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if token == "" {
		t.Fatal("no token issued")
	}
	if signedIn.ID != user.ID {
		t.Errorf("signed-in user = %s, want %s", signedIn.ID, user.ID)
	}

	userID, err := svc.ParseToken(ctx, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != user.ID {
		t.Errorf("token user = %s, want %s", userID, user.ID)
	}
}

func TestAuthSignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)

	cases := []struct {
		name        string
		email       string
		displayName string
		password    string
	}{
		{"bad email", "not-an-email", "Learner", "supersecret"},
		{"short password", "a@b.com", "Learner", "short"},
		{"blank display name", "a@b.com", "   ", "supersecret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.email, tc.displayName, tc.password)
			authErr, ok := domain.AsAuthError(err)
			if !ok || authErr.Reason != domain.AuthValidation {
				t.Fatalf("err = %v, want validation AuthError", err)
			}
		})
	}
}

func TestAuthSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)

	if _, err := svc.SignUp(ctx, "a@b.com", "First", "supersecret"); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@b.com", "Second", "supersecret"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestAuthSignInInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)
	if _, err := svc.SignUp(ctx, "a@b.com", "Learner", "supersecret"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	for _, tc := range []struct{ name, email, password string }{
		{"unknown email", "nobody@b.com", "supersecret"},
		{"wrong password", "a@b.com", "wrongwrong"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.SignIn(ctx, tc.email, tc.password)
			authErr, ok := domain.AsAuthError(err)
			if !ok || authErr.Reason != domain.AuthInvalidCredentials {
				t.Fatalf("err = %v, want invalid-credentials AuthError", err)
			}
		})
	}
}

func TestAuthSignInRateLimited(t *testing.T) {
	ctx := context.Background()
	limiter := &stubLimiter{retryAfter: 42, limited: true}
	svc := newAuthService(t, limiter)

	_, _, err := svc.SignIn(ctx, "a@b.com", "whatever1")
	authErr, ok := domain.AsAuthError(err)
	if !ok || authErr.Reason != domain.AuthRateLimited {
		t.Fatalf("err = %v, want rate-limited AuthError", err)
	}
	if authErr.RetryAfter != 42 {
		t.Errorf("retry after = %d, want 42", authErr.RetryAfter)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "signin:a@b.com" {
		t.Errorf("limiter keys = %v, want [signin:a@b.com]", limiter.keys)
	}
}

func TestAuthSignInLimiterFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter := &stubLimiter{err: errors.New("redis down")}
	svc := newAuthService(t, limiter)
	if _, err := svc.SignUp(ctx, "a@b.com", "Learner", "supersecret"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, _, err := svc.SignIn(ctx, "a@b.com", "supersecret"); err != nil {
		t.Fatalf("sign in with broken limiter: %v", err)
	}
}

func TestAuthSignInUnconfirmedEmail(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc := NewAuthService(users, nil, memory.NewTokenDenylist(), "test-secret", time.Hour, logging.Discard())

	seeded, err := svc.SignUp(ctx, "a@b.com", "Learner", "supersecret")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	seeded.EmailConfirmed = false
	users.Replace(seeded)

	_, _, err = svc.SignIn(ctx, "a@b.com", "supersecret")
	authErr, ok := domain.AsAuthError(err)
	if !ok || authErr.Reason != domain.AuthUnconfirmedEmail {
		t.Fatalf("err = %v, want unconfirmed-email AuthError", err)
	}
}

func TestAuthResetPasswordHidesUnknownEmails(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)

	if err := svc.ResetPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("reset for unknown email leaked: %v", err)
	}
	if err := svc.ResetPassword(ctx, "not-an-email"); err == nil {
		t.Fatal("malformed email accepted")
	}
}

func TestAuthSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, nil)

	if _, err := svc.SignUp(ctx, "a@b.com", "Learner", "supersecret"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	token, _, err := svc.SignIn(ctx, "a@b.com", "supersecret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if err := svc.SignOut(ctx, token); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := svc.ParseToken(ctx, token); err == nil {
		t.Fatal("revoked token still accepted")
	}
}

func TestAuthParseTokenGarbage(t *testing.T) {
	svc := newAuthService(t, nil)
	if _, err := svc.ParseToken(context.Background(), "not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
