package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"auth-service/internal/logging"
	"auth-service/internal/security"
	"auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]domain.Credential
	lastList userrepo.ListParams
	err      error
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]domain.Credential)}
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u := c.User
	return &u, nil
}

func (r *memRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	c, err := r.GetCredentialByEmail(ctx, email)
	if c == nil {
		return nil, err
	}
	u := c.User
	return &u, nil
}

func (r *memRepo) GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.users {
		if c.Email == domain.NormalizeEmail(email) {
			cp := c
			return &cp, nil
		}
	}
	return nil, r.err
}

func (r *memRepo) Create(ctx context.Context, u *domain.User, hash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *u
	stored.ID = r.nextID
	stored.Email = domain.NormalizeEmail(u.Email)
	r.users[stored.ID] = domain.Credential{User: stored, PasswordHash: hash}
	return &stored, nil
}

func (r *memRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[u.ID]
	if !ok {
		return nil, nil
	}
	c.User = *u
	r.users[u.ID] = c
	out := c.User
	return &out, nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	delete(r.users, id)
	return ok, nil
}

func (r *memRepo) List(ctx context.Context, p userrepo.ListParams) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = p
	out := make([]*domain.User, 0, len(r.users))
	for _, c := range r.users {
		u := c.User
		out = append(out, &u)
	}
	return out, len(out), nil
}

func newService(repo *memRepo) *UserService {
	return NewUserService(repo, security.NewHasher(4), logging.Discard())
}

func TestCreate_HashesPasswordAndKeepsRole(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	tenant := int64(4)

	u, err := svc.Create(context.Background(), CreateInput{
		FirstName: " Grace ", LastName: "Hopper", Email: "Grace@Navy.mil",
		Password: "password123", Role: domain.RoleManager, TenantID: &tenant,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, u.Role)
	require.Equal(t, "Grace", u.FirstName)
	require.Equal(t, int64(4), *u.TenantID)

	stored := repo.users[u.ID]
	require.NotEqual(t, "password123", stored.PasswordHash)
	ok, err := security.NewHasher(4).Matches(stored.PasswordHash, "password123")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	_, err := svc.Create(context.Background(), CreateInput{Email: "a@b.co", Password: "password123", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Email: "A@B.co", Password: "password123", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, userrepo.ErrDuplicateEmail)
}

func TestUpdate(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	u, err := svc.Create(context.Background(), CreateInput{Email: "a@b.co", Password: "password123", Role: domain.RoleCustomer})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), u.ID, UpdateInput{FirstName: "New", LastName: "Name", Email: "a@b.co", Role: domain.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, updated.Role)

	_, err = svc.Update(context.Background(), 999, UpdateInput{Email: "x@y.z", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGet_NotFound(t *testing.T) {
	svc := newService(newMemRepo())
	_, err := svc.Get(context.Background(), 1)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGet_RepoError(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("db down")
	_, err := newService(repo).Get(context.Background(), 1)
	require.ErrorContains(t, err, "db down")
}

func TestList_AppliesDefaults(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)

	page, err := svc.List(context.Background(), userrepo.ListParams{Query: "  ada "})
	require.NoError(t, err)
	require.Equal(t, DefaultPage, page.CurrentPage)
	require.Equal(t, DefaultPerPage, page.PerPage)
	require.Equal(t, "ada", repo.lastList.Query)
}

func TestDelete_Idempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	u, err := svc.Create(context.Background(), CreateInput{Email: "a@b.co", Password: "password123", Role: domain.RoleCustomer})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), u.ID))
	require.NoError(t, svc.Delete(context.Background(), u.ID))
	require.Empty(t, repo.users)
}
