package repository

import (
	"context"
	"sync"
	"time"

	"auth-service/internal/session/domain"
)

// MemoryRepository is an in-process Repository used by unit tests across packages.
// Err, when set, is returned by every call.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]domain.RefreshToken
	Err     error
	Now     func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[int64]domain.RefreshToken), Now: time.Now}
}

func (m *MemoryRepository) Persist(_ context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextID++
	t := domain.RefreshToken{ID: m.nextID, UserID: userID, ExpiresAt: expiresAt, CreatedAt: m.Now()}
	m.records[t.ID] = t
	return &t, nil
}

func (m *MemoryRepository) FindActive(_ context.Context, id, userID int64) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.records[id]
	if !ok || t.UserID != userID || t.Expired(m.Now()) {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.records[id]
	delete(m.records, id)
	return ok, nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for id, t := range m.records {
		if t.Expired(now) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are stored.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Has reports whether a record with id is stored, expired or not.
func (m *MemoryRepository) Has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// SetErr sets the error returned by every subsequent call.
func (m *MemoryRepository) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
