package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

var testEpoch = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) //nolint:gochecknoglobals

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type memStore struct {
	mu     sync.Mutex
	tokens map[uint64]map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{tokens: make(map[uint64]map[string]time.Time)}
}

func (s *memStore) Add(_ context.Context, id uint64, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[id] == nil {
		s.tokens[id] = make(map[string]time.Time)
	}

	s.tokens[id][hash] = expiresAt

	return nil
}

func (s *memStore) Remove(_ context.Context, id uint64, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[id][hash]
	delete(s.tokens[id], hash)

	return ok, nil
}

func (s *memStore) Has(_ context.Context, id uint64, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[id][hash]

	return ok, nil
}

func (s *memStore) Clear(_ context.Context, id uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.tokens[id]))
	delete(s.tokens, id)

	return n, nil
}

func (s *memStore) count(id uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens[id])
}

type mapLoader map[uint64]*models.User

func (l mapLoader) LoadPrincipal(_ context.Context, id uint64) (*models.User, error) {
	u, ok := l[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}

	return u, nil
}

type captureSink struct {
	mu      sync.Mutex
	records []*models.AuditRecord
}

func (*captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, rec *models.AuditRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	return nil
}

func (s *captureSink) all() []*models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*models.AuditRecord(nil), s.records...)
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Issuer:              "users-permissions-test",
		AccessSecret:        []byte("test-access-secret-0123456789"),
		RefreshSecret:       []byte("test-refresh-secret-0123456789"),
		AccessTTL:           15 * time.Minute,
		RefreshTTL:          7 * 24 * time.Hour,
		RotateRefreshTokens: true,
	}
}

func newTestTokens(t *testing.T, cfg TokenConfig, loader PrincipalLoader, store RefreshTokenStore, clock *testClock) *TokenService {
	t.Helper()

	tokens, err := NewTokenService(cfg, loader, store, WithTokenClock(clock.Now))
	require.NoError(t, err)

	return tokens
}

func newTestRecorder(clock *testClock) (*audit.Recorder, *captureSink) {
	sink := &captureSink{}
	return audit.NewRecorder([]audit.Sink{sink}, audit.WithClock(clock.Now)), sink
}
