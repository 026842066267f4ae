// Package service serves cached user profiles and one-time phone
// verification codes.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"atatek/internal/platform/cache"
	"atatek/internal/profile/models"
	dErrors "atatek/pkg/domain-errors"
	"atatek/pkg/platform/sentinel"
	"atatek/pkg/requestcontext"
)

const (
	DefaultProfileTTL = 600 * time.Second
	DefaultCodeTTL    = 180 * time.Second

	codeDigits = 4
)

type Store interface {
	FindByID(ctx context.Context, id int64) (*models.Profile, error)
	UpdateName(ctx context.Context, id int64, name models.NameUpdate, now time.Time) error
	AssignPage(ctx context.Context, id, pageID int64, now time.Time) error
	MarkVerified(ctx context.Context, id int64, now time.Time) error
}

// CodeSender delivers a verification code to the user's phone.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

type Service struct {
	store      Store
	cache      *cache.Cache
	sender     CodeSender
	profileTTL time.Duration
	codeTTL    time.Duration
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCodeSender(sender CodeSender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

func WithTTLs(profile, code time.Duration) Option {
	return func(s *Service) {
		if profile > 0 {
			s.profileTTL = profile
		}
		if code > 0 {
			s.codeTTL = code
		}
	}
}

func New(store Store, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:      store,
		cache:      c,
		profileTTL: DefaultProfileTTL,
		codeTTL:    DefaultCodeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Get returns the profile of userID, served from cache when possible.
// Unknown users are never cached.
func (s *Service) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := cache.GetOrPopulate(ctx, s.cache, cache.UserProfileKey(userID), s.profileTTL,
		func(ctx context.Context) (*models.Profile, bool, error) {
			p, err := s.store.FindByID(ctx, userID)
			if err != nil {
				return nil, false, err
			}
			return p, true, nil
		})
	if err != nil {
		return nil, s.translate(ctx, err, "get profile")
	}
	return p, nil
}

// UpdateName renames the user and drops the cached profile.
func (s *Service) UpdateName(ctx context.Context, userID int64, name models.NameUpdate) (*models.Profile, error) {
	if !name.Normalize() {
		return nil, dErrors.New(dErrors.CodeValidation, "first_name and last_name are required")
	}
	if err := s.store.UpdateName(ctx, userID, name, requestcontext.Now(ctx)); err != nil {
		return nil, s.translate(ctx, err, "update name")
	}
	s.invalidate(ctx, cache.UserProfileKey(userID))
	return s.Get(ctx, userID)
}

// AssignPage links the user to a family page and drops the cached profile.
func (s *Service) AssignPage(ctx context.Context, userID, pageID int64) error {
	if pageID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "page_id must be positive")
	}
	if err := s.store.AssignPage(ctx, userID, pageID, requestcontext.Now(ctx)); err != nil {
		return s.translate(ctx, err, "assign page")
	}
	s.invalidate(ctx, cache.UserProfileKey(userID))
	return nil
}

// RequestCode generates a code, stores it and hands it to the sender.
func (s *Service) RequestCode(ctx context.Context, userID int64) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	code, err := GenerateCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "generate code failed")
	}
	if err := s.IssueCode(ctx, userID, code); err != nil {
		return err
	}
	if s.sender == nil {
		return nil
	}
	if err := s.sender.Send(ctx, p.Phone, code); err != nil {
		s.logger.ErrorContext(ctx, "verification code delivery failed", "user_id", userID, "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "code delivery failed")
	}
	return nil
}

// IssueCode replaces any pending code of userID with code.
func (s *Service) IssueCode(ctx context.Context, userID int64, code string) error {
	if !s.cache.Enabled() {
		return dErrors.New(dErrors.CodeUnavailable, "verification is unavailable")
	}
	key := cache.VerifyCodeKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		return s.translate(ctx, err, "issue code")
	}
	if err := s.cache.Put(ctx, key, models.VerificationCode{Code: code}, s.codeTTL); err != nil {
		return s.translate(ctx, err, "issue code")
	}
	return nil
}

// VerifyCode reports whether code matches the pending code of userID. A
// match consumes the code and marks the user verified.
func (s *Service) VerifyCode(ctx context.Context, userID int64, code string) (bool, error) {
	if !s.cache.Enabled() {
		return false, dErrors.New(dErrors.CodeUnavailable, "verification is unavailable")
	}
	taken, err := s.cache.Take(ctx, cache.VerifyCodeKey(userID), models.VerificationCode{Code: code})
	if err != nil {
		return false, s.translate(ctx, err, "verify code")
	}
	if !taken {
		return false, nil
	}
	if err := s.store.MarkVerified(ctx, userID, requestcontext.Now(ctx)); err != nil {
		return false, s.translate(ctx, err, "verify code")
	}
	s.invalidate(ctx, cache.UserProfileKey(userID))
	return true, nil
}

// GenerateCode returns a random numeric code.
func GenerateCode() (string, error) {
	limit := big.NewInt(1)
	for range codeDigits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "profile cache invalidation failed", "key", key, "error", err)
	}
}

func (s *Service) translate(ctx context.Context, err error, op string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		s.logger.WarnContext(ctx, op+" failed, cache unavailable", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" unavailable")
	default:
		s.logger.ErrorContext(ctx, op+" failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, op+" failed")
	}
}

// LogSender writes codes to the log instead of sending an SMS. For local runs.
type LogSender struct {
	Logger *slog.Logger
}

func (l LogSender) Send(ctx context.Context, phone, code string) error {
	l.Logger.DebugContext(ctx, "verification code issued", "phone", phone, "code", code)
	return nil
}
