package registration

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/mail"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/telemetry"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

var (
	ErrCodeNotFound     = errors.New("verification code not found")
	ErrCodeConsumed     = errors.New("verification code already used")
	ErrDuplicateAccount = errors.New("username or email already registered")
)

const (
	mailSubject = "Your OTP code"
	maxLimiters = 4096
)

// Store is the persistence used by the registration flow.
type Store interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	// IssueCode marks every unused code for email as used and records a new one.
	IssueCode(ctx context.Context, email, code string, expiresAt time.Time) (*models.OneTimeCode, error)
	// LatestUnusedCode returns ErrCodeNotFound when no unused code exists.
	LatestUnusedCode(ctx context.Context, email string) (*models.OneTimeCode, error)
	InvalidateCode(ctx context.Context, id uuid.UUID) error
	// CreateAccount consumes the code and creates the user with its customer
	// profile. It returns ErrCodeConsumed when the code was used meanwhile
	// and ErrDuplicateAccount when the username or email got taken.
	CreateAccount(ctx context.Context, pending PendingRegistration, codeID uuid.UUID, now time.Time) (*Account, error)
}

// Account identifies a freshly created user.
type Account struct {
	UserID     uuid.UUID
	CustomerID uint
	Username   string
	Email      string
}

// BeginInput is the sign-up form.
type BeginInput struct {
	FirstName string `json:"first_name" validate:"max=30"`
	LastName  string `json:"last_name" validate:"max=30"`
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password1 string `json:"password1" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required"`
}

// Outcome reports an issued code. Warning is set when the email could not
// be delivered; the code is still valid.
type Outcome struct {
	Email     string
	ExpiresAt time.Time
	Warning   *apperr.Error
}

// Config tunes the flow.
type Config struct {
	CodeTTL        time.Duration
	LogCodes       bool
	ResendInterval time.Duration
	ResendBurst    int
}

// Service runs begin, verify and resend.
type Service struct {
	store  Store
	mailer mail.Mailer
	cfg    Config
	logger zerolog.Logger
	tracer trace.Tracer

	now    func() time.Time
	random io.Reader
	hash   func(string) (string, error)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewService wires the registration flow.
func NewService(store Store, mailer mail.Mailer, cfg Config, logger zerolog.Logger) *Service {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = 30 * time.Second
	}
	if cfg.ResendBurst <= 0 {
		cfg.ResendBurst = 3
	}
	return &Service{
		store:    store,
		mailer:   mailer,
		cfg:      cfg,
		logger:   telemetry.Component(logger, "registration"),
		tracer:   otel.Tracer("storefront/registration"),
		now:      time.Now,
		random:   rand.Reader,
		hash:     utils.HashPassword,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Begin validates the form, parks it in the session and emails a code.
func (s *Service) Begin(ctx context.Context, sess Session, in BeginInput) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Begin")
	defer span.End()

	if err := validation.Struct(in); err != nil {
		return nil, fail(span, err)
	}
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string]string{}
	var first string
	reject := func(field, msg string) {
		if first == "" {
			first = msg
		}
		fields[field] = msg
	}

	if in.Password1 != in.Password2 {
		reject("password2", "passwords do not match")
	}
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fail(span, apperr.Internal(err))
	}
	if taken {
		reject("username", "username already taken")
	}
	taken, err = s.store.EmailTaken(ctx, email)
	if err != nil {
		return nil, fail(span, apperr.Internal(err))
	}
	if taken {
		reject("email", "email already registered")
	}
	if len(fields) > 0 {
		return nil, fail(span, apperr.ValidationFields(first, fields))
	}
	if !s.limiter(email).AllowN(s.now(), 1) {
		return nil, fail(span, apperr.TooManyRequests("please wait before requesting another code"))
	}

	hash, err := s.hash(in.Password1)
	if err != nil {
		return nil, fail(span, apperr.Internal(err))
	}
	pending := &PendingRegistration{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		StartedAt:    s.now(),
	}
	if err := storePending(sess, pending); err != nil {
		return nil, fail(span, apperr.Internal(err))
	}

	out, err := s.issue(ctx, email)
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

// Verify checks the submitted code against the newest unused code for the
// pending email and creates the account on success.
func (s *Service) Verify(ctx context.Context, sess Session, code string) (*Account, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Verify")
	defer span.End()

	pending, ok := loadPending(sess)
	if !ok {
		telemetry.OTPVerifications.WithLabelValues("session_expired").Inc()
		return nil, fail(span, apperr.SessionExpired("registration session expired, please register again"))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fail(span, apperr.ValidationFields("code is required", map[string]string{"code": "this field is required"}))
	}
	span.SetAttributes(attribute.String("registration.email", pending.Email))

	rec, err := s.store.LatestUnusedCode(ctx, pending.Email)
	if errors.Is(err, ErrCodeNotFound) {
		telemetry.OTPVerifications.WithLabelValues("not_found").Inc()
		return nil, fail(span, apperr.NotFound("no active verification code, request a new one"))
	}
	if err != nil {
		return nil, fail(span, apperr.Internal(err))
	}

	now := s.now()
	if rec.IsExpired(now) {
		if err := s.store.InvalidateCode(ctx, rec.ID); err != nil {
			s.logger.Error().Err(err).Str("email", pending.Email).Msg("failed to invalidate expired code")
		}
		telemetry.OTPVerifications.WithLabelValues("expired").Inc()
		return nil, fail(span, apperr.Expired("verification code expired, request a new one"))
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		telemetry.OTPVerifications.WithLabelValues("mismatch").Inc()
		return nil, fail(span, apperr.Mismatch("invalid verification code"))
	}

	account, err := s.store.CreateAccount(ctx, *pending, rec.ID, now)
	switch {
	case errors.Is(err, ErrCodeConsumed):
		telemetry.OTPVerifications.WithLabelValues("not_found").Inc()
		return nil, fail(span, apperr.NotFound("verification code already used"))
	case errors.Is(err, ErrDuplicateAccount):
		sess.Delete(SessionKey)
		return nil, fail(span, apperr.Validation("username or email already registered"))
	case err != nil:
		return nil, fail(span, apperr.Internal(err))
	}

	sess.Delete(SessionKey)
	telemetry.OTPVerifications.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("user_id", account.UserID.String()).
		Uint("customer_id", account.CustomerID).
		Msg("registration verified")
	return account, nil
}

// Resend invalidates outstanding codes for the pending email and issues a
// fresh one. Uniqueness is not checked again.
func (s *Service) Resend(ctx context.Context, sess Session) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Resend")
	defer span.End()

	pending, ok := loadPending(sess)
	if !ok {
		return nil, fail(span, apperr.SessionExpired("registration session expired, please register again"))
	}
	if !s.limiter(pending.Email).AllowN(s.now(), 1) {
		return nil, fail(span, apperr.TooManyRequests("please wait before requesting another code"))
	}

	out, err := s.issue(ctx, pending.Email)
	if err != nil {
		return nil, fail(span, err)
	}
	return out, nil
}

func (s *Service) issue(ctx context.Context, email string) (*Outcome, error) {
	code, err := generateCode(s.random)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	expiresAt := s.now().Add(s.cfg.CodeTTL)

	if _, err := s.store.IssueCode(ctx, email, code, expiresAt); err != nil {
		return nil, apperr.Internal(err)
	}
	telemetry.OTPIssued.Inc()

	if s.cfg.LogCodes {
		s.logger.Debug().Str("email", email).Str("code", code).Msg("verification code issued")
	}

	out := &Outcome{Email: email, ExpiresAt: expiresAt}
	if err := s.mailer.Send(ctx, email, mailSubject, mailBody(code, s.cfg.CodeTTL)); err != nil {
		telemetry.MailFailures.Inc()
		s.logger.Warn().Err(err).Str("email", email).Msg("failed to send verification email")
		out.Warning = apperr.Dependency("verification email could not be sent", err)
	}
	return out, nil
}

func (s *Service) limiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters[email]; ok {
		return l
	}
	if len(s.limiters) >= maxLimiters {
		now := s.now()
		for key, l := range s.limiters {
			if l.TokensAt(now) >= float64(s.cfg.ResendBurst) {
				delete(s.limiters, key)
			}
		}
	}
	l := rate.NewLimiter(rate.Every(s.cfg.ResendInterval), s.cfg.ResendBurst)
	s.limiters[email] = l
	return l
}

func mailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your OTP code is %s.\n\nThis code expires in %d minutes.", code, int(ttl.Minutes()))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
