package registration

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
)

type mapSession map[string]string

func (m mapSession) Get(key string) (string, bool) { v, ok := m[key]; return v, ok }
func (m mapSession) Set(key, value string)         { m[key] = value }
func (m mapSession) Delete(key string)             { delete(m, key) }

type memStore struct {
	mu        sync.Mutex
	codes     []models.OneTimeCode
	usernames map[string]bool
	emails    map[string]bool
	accounts  []PendingRegistration
	seq       time.Duration
}

func newMemStore() *memStore {
	return &memStore{usernames: map[string]bool{}, emails: map[string]bool{}}
}

func (m *memStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usernames[strings.ToLower(username)], nil
}

func (m *memStore) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[strings.ToLower(email)], nil
}

func (m *memStore) IssueCode(_ context.Context, email, code string, expiresAt time.Time) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].Email == email {
			m.codes[i].Used = true
		}
	}
	m.seq++
	rec := models.OneTimeCode{Email: email, Code: code, ExpiresAt: expiresAt}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Unix(0, 0).Add(m.seq)
	m.codes = append(m.codes, rec)
	return &rec, nil
}

func (m *memStore) LatestUnusedCode(_ context.Context, email string) (*models.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.OneTimeCode
	for i := range m.codes {
		c := m.codes[i]
		if c.Email != email || c.Used {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, ErrCodeNotFound
	}
	return latest, nil
}

func (m *memStore) InvalidateCode(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].ID == id {
			m.codes[i].Used = true
		}
	}
	return nil
}

func (m *memStore) CreateAccount(_ context.Context, pending PendingRegistration, codeID uuid.UUID, now time.Time) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	consumed := false
	for i := range m.codes {
		if m.codes[i].ID == codeID && !m.codes[i].Used {
			m.codes[i].Used = true
			m.codes[i].UsedAt = &now
			consumed = true
		}
	}
	if !consumed {
		return nil, ErrCodeConsumed
	}
	if m.usernames[strings.ToLower(pending.Username)] || m.emails[pending.Email] {
		return nil, ErrDuplicateAccount
	}
	m.usernames[strings.ToLower(pending.Username)] = true
	m.emails[pending.Email] = true
	m.accounts = append(m.accounts, pending)
	return &Account{UserID: uuid.New(), CustomerID: uint(len(m.accounts)), Username: pending.Username, Email: pending.Email}, nil
}

func (m *memStore) unusedCodes(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if c.Email == email && !c.Used {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	codes []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	fields := strings.Fields(body)
	if len(fields) >= 5 {
		f.codes = append(f.codes, strings.TrimSuffix(fields[4], "."))
	}
	if f.fail {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func (f *fakeMailer) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[len(f.codes)-1]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type harness struct {
	svc    *Service
	store  *memStore
	mailer *fakeMailer
	clock  *clock
	sess   mapSession
}

func newHarness() *harness {
	h := &harness{
		store:  newMemStore(),
		mailer: &fakeMailer{},
		clock:  &clock{t: time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)},
		sess:   mapSession{},
	}
	h.svc = NewService(h.store, h.mailer, Config{CodeTTL: 10 * time.Minute}, zerolog.Nop())
	h.svc.now = h.clock.now
	h.svc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return h
}

func validInput() BeginInput {
	return BeginInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     "A@X.com",
		Password1: "correct horse",
		Password2: "correct horse",
	}
}

func TestBeginStoresPendingAndSendsCode(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", out.Email)
	assert.Nil(t, out.Warning)
	assert.Equal(t, h.clock.t.Add(10*time.Minute), out.ExpiresAt)

	pending, ok := loadPending(h.sess)
	require.True(t, ok)
	assert.Equal(t, "ada", pending.Username)
	assert.Equal(t, "hashed:correct horse", pending.PasswordHash)

	assert.Equal(t, []string{"a@x.com"}, h.mailer.sent)
	assert.Len(t, h.mailer.lastCode(), 6)
	assert.Equal(t, 1, h.store.unusedCodes("a@x.com"))
}

func TestBeginRejections(t *testing.T) {
	cases := []struct {
		name  string
		setup func(h *harness, in *BeginInput)
		field string
	}{
		{"password mismatch", func(_ *harness, in *BeginInput) { in.Password2 = "different" }, "password2"},
		{"username taken", func(h *harness, _ *BeginInput) { h.store.usernames["ada"] = true }, "username"},
		{"email taken", func(h *harness, _ *BeginInput) { h.store.emails["a@x.com"] = true }, "email"},
		{"bad email", func(_ *harness, in *BeginInput) { in.Email = "not-an-email" }, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			in := validInput()
			tc.setup(h, &in)

			_, err := h.svc.Begin(context.Background(), h.sess, in)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tc.field)

			_, pending := loadPending(h.sess)
			assert.False(t, pending)
			assert.Empty(t, h.mailer.sent)
		})
	}
}

func TestBeginMailFailureIsWarning(t *testing.T) {
	h := newHarness()
	h.mailer.fail = true

	out, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)
	require.NotNil(t, out.Warning)
	assert.Equal(t, apperr.KindDependency, out.Warning.Kind)

	account, err := h.svc.Verify(context.Background(), h.sess, h.mailer.lastCode())
	require.NoError(t, err)
	assert.Equal(t, "ada", account.Username)
}

func TestVerifySucceedsOnce(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)

	snapshot := h.sess[SessionKey]
	code := h.mailer.lastCode()

	account, err := h.svc.Verify(context.Background(), h.sess, code)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", account.Email)
	_, pending := loadPending(h.sess)
	assert.False(t, pending, "pending payload cleared")

	_, err = h.svc.Verify(context.Background(), h.sess, code)
	assert.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))

	// Replaying a copied session still cannot reuse the code.
	h.sess[SessionKey] = snapshot
	_, err = h.svc.Verify(context.Background(), h.sess, code)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Len(t, h.store.accounts, 1)
}

func TestVerifyWithoutSession(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Verify(context.Background(), h.sess, "123456")
	assert.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))

	h.sess[SessionKey] = "{broken"
	_, err = h.svc.Verify(context.Background(), h.sess, "123456")
	assert.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))
}

func TestVerifyMismatch(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)

	wrong := "000000"
	if h.mailer.lastCode() == wrong {
		wrong = "111111"
	}
	_, err = h.svc.Verify(context.Background(), h.sess, wrong)
	assert.Equal(t, apperr.KindMismatch, apperr.KindOf(err))

	_, pending := loadPending(h.sess)
	assert.True(t, pending, "a wrong code keeps the registration pending")

	_, err = h.svc.Verify(context.Background(), h.sess, h.mailer.lastCode())
	assert.NoError(t, err)
}

func TestVerifyExpiry(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)
	code := h.mailer.lastCode()
	start := h.clock.t

	h.clock.t = start.Add(10*time.Minute + time.Second)
	_, err = h.svc.Verify(context.Background(), h.sess, code)
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
	assert.Zero(t, h.store.unusedCodes("a@x.com"), "expired code is invalidated")

	_, err = h.svc.Verify(context.Background(), h.sess, code)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVerifyAtExactExpiryStillValid(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)

	h.clock.t = h.clock.t.Add(10 * time.Minute)
	_, err = h.svc.Verify(context.Background(), h.sess, h.mailer.lastCode())
	assert.NoError(t, err)
}

func TestResendLeavesOneUnusedCode(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)
	first := h.mailer.lastCode()

	out, err := h.svc.Resend(context.Background(), h.sess)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", out.Email)
	assert.Equal(t, 1, h.store.unusedCodes("a@x.com"))

	second := h.mailer.lastCode()
	if first != second {
		_, err = h.svc.Verify(context.Background(), h.sess, first)
		assert.Equal(t, apperr.KindMismatch, apperr.KindOf(err))
	}
	_, err = h.svc.Verify(context.Background(), h.sess, second)
	assert.NoError(t, err)
}

func TestResendWithoutSession(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Resend(context.Background(), h.sess)
	assert.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))
}

func TestResendIsThrottled(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)

	// Begin spent one of the three tokens.
	for i := 0; i < 2; i++ {
		_, err := h.svc.Resend(context.Background(), h.sess)
		require.NoError(t, err)
	}
	_, err = h.svc.Resend(context.Background(), h.sess)
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))

	h.clock.t = h.clock.t.Add(31 * time.Second)
	_, err = h.svc.Resend(context.Background(), h.sess)
	assert.NoError(t, err)
}

func TestBeginSharesResendThrottle(t *testing.T) {
	h := newHarness()
	for i := 0; i < 3; i++ {
		_, err := h.svc.Begin(context.Background(), h.sess, validInput())
		require.NoError(t, err)
	}
	sent := len(h.mailer.sent)

	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))
	assert.Len(t, h.mailer.sent, sent)

	_, err = h.svc.Resend(context.Background(), h.sess)
	assert.Equal(t, apperr.KindTooManyRequests, apperr.KindOf(err))
}

func TestBeginRejectionDoesNotSpendThrottle(t *testing.T) {
	h := newHarness()
	in := validInput()
	in.Password2 = "different"
	for i := 0; i < 5; i++ {
		_, err := h.svc.Begin(context.Background(), h.sess, in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}

	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	assert.NoError(t, err)
}

func TestVerifyDuplicateAccountAtCommit(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Begin(context.Background(), h.sess, validInput())
	require.NoError(t, err)

	h.store.usernames["ada"] = true
	_, err = h.svc.Verify(context.Background(), h.sess, h.mailer.lastCode())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode(rand.Reader)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', code)
		}
	}
}

func TestGenerateCodePadsSmallValues(t *testing.T) {
	code, err := generateCode(strings.NewReader(strings.Repeat("\x00", 16)))
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}
