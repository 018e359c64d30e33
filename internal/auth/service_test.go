package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db/models"
	"github.com/acctbay/storefront-backend/pkg/enums"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
)

type fakeUserStore struct {
	byEmail    map[string]*models.User
	failEnsure bool
	lastLogins map[uuid.UUID]time.Time
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail:    make(map[string]*models.User),
		lastLogins: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeUserStore) EnsureByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.failEnsure {
		return nil, errors.New("db down")
	}
	if existing, ok := f.byEmail[email]; ok {
		return existing, nil
	}
	user := &models.User{ID: uuid.New(), Email: email, Role: enums.UserRoleCustomer, IsActive: true}
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogins[id] = at
	return nil
}

type fakeCodeStore struct {
	data     map[string]string
	counters map[string]int64
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{data: make(map[string]string), counters: make(map[string]int64)}
}

func (f *fakeCodeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCodeStore) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (f *fakeCodeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		delete(f.counters, key)
	}
	return nil
}

func (f *fakeCodeStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeCodeStore) OTPCodeKey(email string) string     { return "code:" + email }
func (f *fakeCodeStore) OTPAttemptsKey(email string) string { return "attempts:" + email }

type fakeSessionManager struct {
	live map[string]bool
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{live: make(map[string]bool)}
}

func (f *fakeSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	f.live[accessID] = true
	return "refresh-" + accessID, nil
}

func (f *fakeSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(f.live, accessID)
	return nil
}

func (f *fakeSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return f.live[accessID], nil
}

type fakeMailer struct {
	lastTo   string
	lastCode string
	err      error
}

func (f *fakeMailer) SendLoginCode(ctx context.Context, to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.lastTo = to
	f.lastCode = code
	return nil
}

type authFixture struct {
	svc      Service
	users    *fakeUserStore
	codes    *fakeCodeStore
	sessions *fakeSessionManager
	mailer   *fakeMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUserStore()
	codes := newFakeCodeStore()
	sessions := newFakeSessionManager()
	mailer := &fakeMailer{}

	svc, err := NewService(ServiceParams{
		UserStore:      users,
		CodeStore:      codes,
		SessionManager: sessions,
		Mailer:         mailer,
		JWTConfig:      config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30},
		OTPConfig: config.OTPConfig{
			CodeTTL:          10 * time.Minute,
			MaxAttempts:      5,
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &authFixture{svc: svc, users: users, codes: codes, sessions: sessions, mailer: mailer}
}

func TestRequestCodeStoresHashAndMails(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: "  Buyer@Example.COM "}); err != nil {
		t.Fatalf("request code: %v", err)
	}

	if fx.mailer.lastTo != "buyer@example.com" {
		t.Fatalf("expected normalized recipient, got %q", fx.mailer.lastTo)
	}
	if len(fx.mailer.lastCode) != 6 {
		t.Fatalf("expected 6-digit code, got %q", fx.mailer.lastCode)
	}
	stored := fx.codes.data["code:buyer@example.com"]
	if stored == "" {
		t.Fatal("expected hashed code in store")
	}
	if stored == fx.mailer.lastCode {
		t.Fatal("code must not be stored in plaintext")
	}
}

func TestRequestCodeMailerFailure(t *testing.T) {
	fx := newAuthFixture(t)
	fx.mailer.err = errors.New("provider down")

	err := fx.svc.RequestCode(context.Background(), RequestCodeRequest{Email: "buyer@example.com"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAuthProvider {
		t.Fatalf("expected auth provider error, got %v", err)
	}
}

func TestVerifyCodeSuccessIssuesSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	var transitions []Transition
	cancel := fx.svc.Subscribe(func(tr Transition) { transitions = append(transitions, tr) })
	defer cancel()

	if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("request code: %v", err)
	}

	resp, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: fx.mailer.lastCode})
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected minted tokens")
	}
	if resp.User == nil || resp.User.Email != "buyer@example.com" {
		t.Fatalf("unexpected user payload %+v", resp.User)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", resp.User.Role)
	}

	// code is single-use
	if _, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: fx.mailer.lastCode}); err == nil {
		t.Fatal("expected second verification to fail")
	}

	if len(transitions) == 0 {
		t.Fatal("expected a transition notification")
	}
	if transitions[0].Session == nil {
		t.Fatal("expected sign-in transition to carry a session")
	}

	sess, err := fx.svc.SessionFromToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}
	if sess.Email != "buyer@example.com" {
		t.Fatalf("unexpected session email %q", sess.Email)
	}
}

func TestVerifyCodeRejectsMalformedCodeBeforeStores(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.VerifyCode(context.Background(), VerifyCodeRequest{Email: "buyer@example.com", Code: "12ab56"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fx.codes.counters["attempts:buyer@example.com"] != 0 {
		t.Fatal("malformed code must not consume an attempt")
	}
}

func TestVerifyCodeAttemptBudget(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("request code: %v", err)
	}

	wrong := "000000"
	if wrong == fx.mailer.lastCode {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		_, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: wrong})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeNotAuthenticated {
			t.Fatalf("attempt %d: expected not authenticated, got %v", i+1, err)
		}
	}

	_, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: wrong})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit after budget spent, got %v", err)
	}

	// even the right code is refused now
	_, err = fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: fx.mailer.lastCode})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit for correct code too, got %v", err)
	}
}

func TestVerifyCodeExpired(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.VerifyCode(context.Background(), VerifyCodeRequest{Email: "buyer@example.com", Code: "123456"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotAuthenticated {
		t.Fatalf("expected not authenticated for missing code, got %v", err)
	}
}

func TestVerifyCodeProfileBootstrapDegrades(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("request code: %v", err)
	}
	fx.users.failEnsure = true

	resp, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: fx.mailer.lastCode})
	if err != nil {
		t.Fatalf("login must not fail on profile bootstrap: %v", err)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("degraded session must default to customer, got %s", resp.User.Role)
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("request code: %v", err)
	}
	resp, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: "buyer@example.com", Code: fx.mailer.lastCode})
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}

	sess, err := fx.svc.SessionFromToken(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}

	var transitions []Transition
	cancel := fx.svc.Subscribe(func(tr Transition) { transitions = append(transitions, tr) })
	defer cancel()

	if err := fx.svc.SignOut(ctx, *sess); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if _, err := fx.svc.SessionFromToken(ctx, resp.AccessToken); err == nil {
		t.Fatal("expected revoked session to be rejected")
	}

	if len(transitions) != 1 {
		t.Fatalf("expected a sign-out transition, got %d", len(transitions))
	}
	if transitions[0].Session != nil {
		t.Fatal("sign-out transition must carry a nil session")
	}
	if transitions[0].UserID != sess.UserID {
		t.Fatalf("unexpected user id %s", transitions[0].UserID)
	}
}

func TestBackToBackSignOutsAllNotify(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	var signOuts []uuid.UUID
	cancel := fx.svc.Subscribe(func(tr Transition) {
		if tr.Session == nil {
			signOuts = append(signOuts, tr.UserID)
		}
	})
	defer cancel()

	var sessions []Session
	for _, email := range []string{"a@example.com", "b@example.com"} {
		if err := fx.svc.RequestCode(ctx, RequestCodeRequest{Email: email}); err != nil {
			t.Fatalf("request code for %s: %v", email, err)
		}
		resp, err := fx.svc.VerifyCode(ctx, VerifyCodeRequest{Email: email, Code: fx.mailer.lastCode})
		if err != nil {
			t.Fatalf("verify code for %s: %v", email, err)
		}
		sess, err := fx.svc.SessionFromToken(ctx, resp.AccessToken)
		if err != nil {
			t.Fatalf("session from token for %s: %v", email, err)
		}
		sessions = append(sessions, *sess)
	}

	for _, sess := range sessions {
		if err := fx.svc.SignOut(ctx, sess); err != nil {
			t.Fatalf("sign out %s: %v", sess.Email, err)
		}
	}

	if len(signOuts) != len(sessions) {
		t.Fatalf("expected %d sign-out notifications, got %d", len(sessions), len(signOuts))
	}
	for i, sess := range sessions {
		if signOuts[i] != sess.UserID {
			t.Fatalf("notification %d for user %s, want %s", i, signOuts[i], sess.UserID)
		}
	}
}
