package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/acctbay/storefront-backend/pkg/db/models"
	pkgerrors "github.com/acctbay/storefront-backend/pkg/errors"
	"github.com/acctbay/storefront-backend/pkg/logger"
)

// Defaults are served when a key has no stored value and when the store is
// unreachable. Reads never fail because of a settings backend outage.
var Defaults = map[string]string{
	"site_name":         "AcctBay",
	"site_tagline":      "Instant digital goods",
	"support_email":     "support@acctbay.io",
	"discord_url":       "",
	"announcement":      "",
	"checkout_disabled": "false",
}

const cacheTTL = 5 * time.Minute

// Service exposes site settings with a cache in front of the database.
type Service interface {
	All(ctx context.Context) map[string]string
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type settingsRepo interface {
	List(ctx context.Context) ([]models.SiteSetting, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type settingsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SettingsKey(name string) string
}

type service struct {
	repo  settingsRepo
	cache settingsCache
	logg  *logger.Logger
}

// ServiceParams bundles the dependencies required to build a settings service.
type ServiceParams struct {
	Repo   settingsRepo
	Cache  settingsCache
	Logger *logger.Logger
}

// NewService constructs a settings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("settings cache is required")
	}
	return &service{repo: params.Repo, cache: params.Cache, logg: params.Logger}, nil
}

// All returns every setting, stored values layered over defaults. Backend
// failures degrade to defaults.
func (s *service) All(ctx context.Context) map[string]string {
	merged := make(map[string]string, len(Defaults))
	for key, value := range Defaults {
		merged[key] = value
	}

	stored, err := s.load(ctx)
	if err != nil {
		s.warn(ctx, "settings load failed, serving defaults", err)
		return merged
	}
	for key, value := range stored {
		merged[key] = value
	}
	return merged
}

func (s *service) Get(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	value, ok := s.All(ctx)[key]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "setting not found")
	}
	return value, nil
}

func (s *service) Upsert(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store setting")
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete setting")
	}
	s.invalidate(ctx)
	return nil
}

// load reads through the cache: a hit is decoded as the full settings map, a
// miss falls back to the database and repopulates the cache best-effort.
func (s *service) load(ctx context.Context) (map[string]string, error) {
	cacheKey := s.cache.SettingsKey("all")

	if raw, err := s.cache.Get(ctx, cacheKey); err == nil && raw != "" {
		var cached map[string]string
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		s.warn(ctx, "settings cache entry corrupt, reloading", nil)
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]string, len(rows))
	for _, row := range rows {
		stored[row.Key] = row.Value
	}

	if encoded, err := json.Marshal(stored); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(encoded), cacheTTL); err != nil {
			s.warn(ctx, "settings cache write failed", err)
		}
	}
	return stored, nil
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, s.cache.SettingsKey("all")); err != nil {
		s.warn(ctx, "settings cache invalidation failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	s.logg.Warn(ctx, msg)
}
