package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"auth-service/internal/user/domain"
)

// MemoryRepository is an in-process Repository used by unit tests across packages.
// It enforces e-mail uniqueness like the users table does.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.Credential
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[int64]domain.Credential)}
}

func (m *MemoryRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u := c.User
	return &u, nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	c, err := m.GetCredentialByEmail(ctx, email)
	if c == nil || err != nil {
		return nil, err
	}
	return &c.User, nil
}

func (m *MemoryRepository) GetCredentialByEmail(_ context.Context, email string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.findEmail(email); ok {
		c := m.users[id]
		return &c, nil
	}
	return nil, nil
}

func (m *MemoryRepository) Create(_ context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.findEmail(u.Email); taken {
		return nil, ErrDuplicateEmail
	}
	m.nextID++
	now := time.Now().UTC()
	stored := *u
	stored.ID = m.nextID
	stored.Email = domain.NormalizeEmail(u.Email)
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.users[stored.ID] = domain.Credential{User: stored, PasswordHash: passwordHash}
	return &stored, nil
}

func (m *MemoryRepository) Update(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.users[u.ID]
	if !ok {
		return nil, nil
	}
	if id, taken := m.findEmail(u.Email); taken && id != u.ID {
		return nil, ErrDuplicateEmail
	}
	c.FirstName, c.LastName, c.Role, c.TenantID = u.FirstName, u.LastName, u.Role, u.TenantID
	c.Email = domain.NormalizeEmail(u.Email)
	c.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = c
	updated := c.User
	return &updated, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

func (m *MemoryRepository) List(_ context.Context, p ListParams) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(p.Query)
	var matched []*domain.User
	for _, c := range m.users {
		if p.Role != "" && c.Role != p.Role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.FirstName), q) &&
			!strings.Contains(strings.ToLower(c.LastName), q) && !strings.Contains(c.Email, q) {
			continue
		}
		u := c.User
		matched = append(matched, &u)
	}
	slices.SortFunc(matched, func(a, b *domain.User) int { return int(b.ID - a.ID) })

	total := len(matched)
	start := min(p.Offset(), total)
	end := min(start+p.PerPage, total)
	return matched[start:end], total, nil
}

func (m *MemoryRepository) findEmail(email string) (int64, bool) {
	email = domain.NormalizeEmail(email)
	for id, c := range m.users {
		if c.Email == email {
			return id, true
		}
	}
	return 0, false
}
