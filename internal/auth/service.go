package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/acctbay/storefront-backend/internal/users"
	pkgAuth "github.com/acctbay/storefront-backend/pkg/auth"
	"github.com/acctbay/storefront-backend/pkg/auth/session"
	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
	"github.com/acctbay/storefront-backend/pkg/metrics"
	"github.com/acctbay/storefront-backend/pkg/security"
)

const invalidCodeMessage = "invalid or expired code"

// Service defines the behavior needed by the auth controller.
type Service interface {
	RequestCode(ctx context.Context, req RequestCodeRequest) error
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error)
	SignOut(ctx context.Context, sess Session) error
	SessionFromToken(ctx context.Context, token string) (*Session, error)
	Subscribe(fn func(Transition)) func()
}

type service struct {
	users   userStore
	codes   codeStore
	session sessionManager
	mailer  mailer
	jwtCfg  config.JWTConfig
	otpCfg  config.OTPConfig
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics

	mu   sync.Mutex
	subs map[int]func(Transition)
	next int
}

type userStore interface {
	EnsureByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OTPCodeKey(email string) string
	OTPAttemptsKey(email string) string
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type mailer interface {
	SendLoginCode(ctx context.Context, to, code string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserStore      userStore
	CodeStore      codeStore
	SessionManager sessionManager
	Mailer         mailer
	JWTConfig      config.JWTConfig
	OTPConfig      config.OTPConfig
	Logger         *logger.Logger
	Metrics        *metrics.StorefrontMetrics
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CodeStore == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &service{
		users:   params.UserStore,
		codes:   params.CodeStore,
		session: params.SessionManager,
		mailer:  params.Mailer,
		jwtCfg:  params.JWTConfig,
		otpCfg:  params.OTPConfig,
		logg:    params.Logger,
		metrics: params.Metrics,
		subs:    make(map[int]func(Transition)),
	}, nil
}

func (s *service) RequestCode(ctx context.Context, req RequestCodeRequest) error {
	email := normalizeEmail(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate login code")
	}
	hash, err := security.HashOTP(code, s.otpCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash login code")
	}

	if err := s.codes.Set(ctx, s.codes.OTPCodeKey(email), hash, s.otpCfg.CodeTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store login code")
	}
	// A fresh code resets the attempt budget.
	if err := s.codes.Del(ctx, s.codes.OTPAttemptsKey(email)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset code attempts")
	}

	if err := s.mailer.SendLoginCode(ctx, email, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeAuthProvider, err, "send login code email")
	}

	s.metrics.IncOTPRequested()
	return nil
}

func (s *service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*VerifyCodeResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	// Reject malformed codes before touching any store.
	if !isSixDigits(req.Code) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code must be 6 digits")
	}

	attempts, err := s.codes.IncrWithTTL(ctx, s.codes.OTPAttemptsKey(email), s.otpCfg.CodeTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count code attempts")
	}
	if s.otpCfg.MaxAttempts > 0 && attempts > int64(s.otpCfg.MaxAttempts) {
		s.metrics.IncOTPVerified("rate_limited")
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, request a new code")
	}

	stored, err := s.codes.Get(ctx, s.codes.OTPCodeKey(email))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			s.metrics.IncOTPVerified("failure")
			return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCodeMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load login code")
	}

	valid, err := security.VerifyOTP(req.Code, stored)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify login code")
	}
	if !valid {
		s.metrics.IncOTPVerified("failure")
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, invalidCodeMessage)
	}

	if err := s.codes.Del(ctx, s.codes.OTPCodeKey(email), s.codes.OTPAttemptsKey(email)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume login code")
	}

	user := s.bootstrapProfile(ctx, email)
	role := user.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", user.ID.String()), "recording last login failed")
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  email,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	sess := &Session{UserID: user.ID, Email: email, Role: role, AccessID: accessID}
	s.notify(Transition{UserID: user.ID, Session: sess})
	s.metrics.IncOTPVerified("success")

	return &VerifyCodeResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// bootstrapProfile makes sure the email has a profile row. A failed bootstrap
// never blocks the login: the session degrades to a customer-role identity.
func (s *service) bootstrapProfile(ctx context.Context, email string) *models.User {
	user, err := s.users.EnsureByEmail(ctx, email)
	if err == nil && user != nil {
		return user
	}
	if s.logg != nil && err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logg.Error(ctx, "profile bootstrap failed, continuing with customer session", err)
	}
	return &models.User{
		ID:       uuid.New(),
		Email:    email,
		Role:     enums.UserRoleCustomer,
		IsActive: true,
	}
}

func (s *service) SignOut(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.AccessID) == "" {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "no active session")
	}
	if err := s.session.Revoke(ctx, sess.AccessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	s.notify(Transition{UserID: sess.UserID})
	return nil
}

func (s *service) SessionFromToken(ctx context.Context, token string) (*Session, error) {
	claims, err := pkgAuth.ParseAccessToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotAuthenticated, err, "invalid token")
	}

	alive, err := s.session.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check session liveness")
	}
	if !alive {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "session has been revoked")
	}

	role := claims.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}

	return &Session{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Role:     role,
		AccessID: claims.ID,
	}, nil
}

// Subscribe registers a listener for session transitions. Listeners are
// invoked synchronously on every transition so a sign-out is never lost;
// the returned cancel func unregisters.
func (s *service) Subscribe(fn func(Transition)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *service) notify(t Transition) {
	s.mu.Lock()
	listeners := make([]func(Transition), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isSixDigits(code string) bool {
	if len(code) != security.OTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
