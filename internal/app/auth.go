package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"learnpath-service/internal/domain"
)

// UserRepository persists registered users.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
}

// RateLimiter counts hits per key within a fixed window and reports the
// cooldown once the limit is breached. RetryAfter is in seconds so the
// client countdown can seed itself from an absolute unlock timestamp.
type RateLimiter interface {
	Reserve(ctx context.Context, key string) (retryAfter int, limited bool, err error)
}

// TokenDenylist invalidates issued tokens until they would have expired.
type TokenDenylist interface {
	Deny(ctx context.Context, token string, ttl time.Duration) error
	Denied(ctx context.Context, token string) (bool, error)
}

const minPasswordLength = 8

// AuthService implements sign-in, sign-up, password reset and sign-out over
// a user repository, with bcrypt hashes and HS256 tokens. Every failure is
// a typed *domain.AuthError so callers can distinguish bad credentials from
// cooldowns and surface the retry-after seconds.
type AuthService struct {
	users    UserRepository
	limiter  RateLimiter
	denylist TokenDenylist
	secret   []byte
	tokenTTL time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

func NewAuthService(users UserRepository, limiter RateLimiter, denylist TokenDenylist, secret string, tokenTTL time.Duration, log *logrus.Entry) *AuthService {
	return &AuthService{
		users:    users,
		limiter:  limiter,
		denylist: denylist,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}
}

// SignIn verifies credentials and issues a token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, domain.User, error) {
	email = normalizeEmail(email)
	if err := s.reserve(ctx, "signin:"+email); err != nil {
		return "", domain.User{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.User{}, &domain.AuthError{Reason: domain.AuthInvalidCredentials, Message: "invalid email or password"}
		}
		return "", domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, &domain.AuthError{Reason: domain.AuthInvalidCredentials, Message: "invalid email or password"}
	}
	if !user.EmailConfirmed {
		return "", domain.User{}, &domain.AuthError{Reason: domain.AuthUnconfirmedEmail, Message: "email address not confirmed"}
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

// SignUp registers a new user. The confirmation mail flow is delegated
// upstream; accounts start confirmed.
func (s *AuthService) SignUp(ctx context.Context, email, displayName, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return domain.User{}, &domain.AuthError{Reason: domain.AuthValidation, Message: "invalid email address"}
	}
	if len(password) < minPasswordLength {
		return domain.User{}, &domain.AuthError{Reason: domain.AuthValidation, Message: "password must be at least 8 characters"}
	}
	if strings.TrimSpace(displayName) == "" {
		return domain.User{}, &domain.AuthError{Reason: domain.AuthValidation, Message: "display name is required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:             uuid.New().String(),
		Email:          email,
		DisplayName:    strings.TrimSpace(displayName),
		PasswordHash:   string(hash),
		EmailConfirmed: true,
		CreatedAt:      s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ResetPassword starts the reset flow for an email address. Unknown
// addresses succeed silently so the endpoint cannot be used for account
// enumeration; mail delivery is delegated upstream.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return &domain.AuthError{Reason: domain.AuthValidation, Message: "invalid email address"}
	}
	if err := s.reserve(ctx, "reset:"+email); err != nil {
		return err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	s.log.WithField("email", email).Info("password reset issued")
	return nil
}

// SignOut denylists the token for the remainder of its lifetime.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parseClaims(token)
	if err != nil {
		// Already invalid tokens need no denylisting.
		return nil
	}
	ttl := s.tokenTTL
	if exp, ok := claims["exp"].(float64); ok {
		if until := time.Unix(int64(exp), 0).Sub(s.now()); until > 0 {
			ttl = until
		}
	}
	return s.denylist.Deny(ctx, token, ttl)
}

// ParseToken validates a bearer token and returns the user id it carries.
func (s *AuthService) ParseToken(ctx context.Context, token string) (string, error) {
	denied, err := s.denylist.Denied(ctx, token)
	if err != nil {
		return "", err
	}
	if denied {
		return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials, Message: "token revoked"}
	}

	claims, err := s.parseClaims(token)
	if err != nil {
		return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials, Message: "invalid token"}
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", &domain.AuthError{Reason: domain.AuthInvalidCredentials, Message: "invalid token claims"}
	}
	return userID, nil
}

func (s *AuthService) issueToken(user domain.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     s.now().Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *AuthService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return *claims, nil
}

func (s *AuthService) reserve(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	retryAfter, limited, err := s.limiter.Reserve(ctx, key)
	if err != nil {
		// A broken limiter must not lock everyone out.
		s.log.WithError(err).Warn("rate limiter unavailable")
		return nil
	}
	if limited {
		return &domain.AuthError{
			Reason:     domain.AuthRateLimited,
			Message:    "too many attempts",
			RetryAfter: retryAfter,
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
