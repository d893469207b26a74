package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	healthhandler "auth-service/internal/health/handler"
	identityhandler "auth-service/internal/identity/handler"
	identityservice "auth-service/internal/identity/service"
	"auth-service/internal/logging"
	"auth-service/internal/security"
	"auth-service/internal/server/middleware"
	"auth-service/internal/session"
	sessionrepo "auth-service/internal/session/repository"
	"auth-service/internal/telemetry"
	tenantdomain "auth-service/internal/tenant/domain"
	tenanthandler "auth-service/internal/tenant/handler"
	tenantservice "auth-service/internal/tenant/service"
	"auth-service/internal/user/domain"
	userhandler "auth-service/internal/user/handler"
	userrepo "auth-service/internal/user/repository"
	userservice "auth-service/internal/user/service"
)

type memTenantRepo struct {
	mu      sync.Mutex
	nextID  int64
	tenants map[int64]tenantdomain.Tenant
}

func (m *memTenantRepo) GetByID(_ context.Context, id int64) (*tenantdomain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTenantRepo) List(context.Context) ([]*tenantdomain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*tenantdomain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, &t)
	}
	return out, nil
}

func (m *memTenantRepo) Create(_ context.Context, t *tenantdomain.Tenant) (*tenantdomain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *t
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	m.tenants[stored.ID] = stored
	return &stored, nil
}

func (m *memTenantRepo) Update(_ context.Context, t *tenantdomain.Tenant) (*tenantdomain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; !ok {
		return nil, nil
	}
	m.tenants[t.ID] = *t
	return t, nil
}

func (m *memTenantRepo) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tenants[id]
	delete(m.tenants, id)
	return ok, nil
}

type auditEntry struct {
	userID           int64
	action, resource string
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (r *recordingAudit) LogEvent(_ context.Context, userID int64, action, resource, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, auditEntry{userID: userID, action: action, resource: resource})
}

func (r *recordingAudit) has(action, resource string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.action == action && e.resource == resource {
			return true
		}
	}
	return false
}

type fixture struct {
	router http.Handler
	codec  *security.TokenCodec
	hasher *security.Hasher
	users  *userrepo.MemoryRepository
	tokens *sessionrepo.MemoryRepository
	audit  *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.Discard()
	codec, err := security.NewTestTokenCodec()
	require.NoError(t, err)
	hasher := security.NewHasher(4)
	users := userrepo.NewMemoryRepository()
	tokens := sessionrepo.NewMemoryRepository()
	rec := &recordingAudit{}

	sessions := identityservice.NewSessionManager(users, tokens, codec, hasher, rec, log)
	authn := middleware.NewAuthenticator(codec, session.NewRevocationCheck(tokens, log), rec, log)
	tenants := tenantservice.NewTenantService(&memTenantRepo{tenants: map[int64]tenantdomain.Tenant{}}, log)

	router := NewRouter(Deps{
		Log:           log,
		Auth:          identityhandler.NewHandler(sessions, session.NewCookiePolicy("localhost", false), log),
		Users:         userhandler.NewHandler(userservice.NewUserService(users, hasher, log), log),
		Tenants:       tenanthandler.NewHandler(tenants, log),
		Health:        healthhandler.NewChecker(nil, nil, log),
		Authn:         authn,
		Audit:         rec,
		Metrics:       telemetry.NewMetrics(),
		FrontendURL:   "http://localhost:3000",
		AuthRateLimit: 1000,
	})
	return &fixture{router: router, codec: codec, hasher: hasher, users: users, tokens: tokens, audit: rec}
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// principal stores a user with the given role and returns an access cookie for it.
func (f *fixture) principal(t *testing.T, email string, role domain.Role) (*domain.User, *http.Cookie) {
	t.Helper()
	hash, err := f.hasher.Hash("password123")
	require.NoError(t, err)
	u, err := f.users.Create(context.Background(), &domain.User{FirstName: "F", LastName: "L", Email: email, Role: role}, hash)
	require.NoError(t, err)
	token, err := f.codec.SignAccess(security.NewAccessClaims(u.ID, role))
	require.NoError(t, err)
	return u, &http.Cookie{Name: session.AccessCookie, Value: token}
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegister_SetsCookiesAndPersistsRecord(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": "ada@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Positive(t, body.ID)
	require.Equal(t, 1, f.tokens.Len())

	for _, name := range []string{session.AccessCookie, session.RefreshCookie} {
		c := cookieNamed(w, name)
		require.NotNil(t, c, name)
		require.Len(t, strings.Split(c.Value, "."), 3, name)
		require.True(t, c.HttpOnly, name)
	}

	w = f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": "ADA@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Email is already exist!")
}

func TestRegister_ValidationMessage(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": "ada@example.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Password must be at least 8 characters long")
}

func TestPassword_OverBcryptLimitIsValidationError(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("p", 80)

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"firstname": "Ada", "lastname": "Lovelace", "email": "long@example.com", "password": long,
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "Password must be at most 72 characters long")

	_, admin := f.principal(t, "admin@example.com", domain.RoleAdmin)
	w = f.do(t, http.MethodPost, "/users", map[string]string{
		"firstname": "Bo", "lastname": "Lee", "email": "bo@example.com", "password": long, "role": "customer",
	}, admin)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "Password must be at most 72 characters long")
}

func TestLogin_IdenticalErrors(t *testing.T) {
	f := newFixture(t)
	f.principal(t, "known@example.com", domain.RoleCustomer)

	wrongPassword := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "known@example.com", "password": "nope-nope"})
	unknownEmail := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ghost@example.com", "password": "nope-nope"})

	require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	require.Equal(t, wrongPassword.Code, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	require.Nil(t, cookieNamed(wrongPassword, session.AccessCookie))
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	f := newFixture(t)
	f.principal(t, "rot@example.com", domain.RoleManager)

	login := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "rot@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	oldRefresh := cookieNamed(login, session.RefreshCookie)
	require.NotNil(t, oldRefresh)

	first := f.do(t, http.MethodPost, "/auth/refresh", nil, oldRefresh)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	newRefresh := cookieNamed(first, session.RefreshCookie)
	require.NotNil(t, newRefresh)
	require.NotEqual(t, oldRefresh.Value, newRefresh.Value)
	require.Equal(t, 1, f.tokens.Len())

	replay := f.do(t, http.MethodPost, "/auth/refresh", nil, oldRefresh)
	require.Equal(t, http.StatusUnauthorized, replay.Code)
	require.True(t, f.audit.has("auth.refresh_revoked", "session"))

	again := f.do(t, http.MethodPost, "/auth/refresh", nil, newRefresh)
	require.Equal(t, http.StatusOK, again.Code)
}

func TestRefresh_ExpiredTokenLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	u, _ := f.principal(t, "exp@example.com", domain.RoleCustomer)
	rec, err := f.tokens.Persist(context.Background(), u.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims := security.NewRefreshClaims(u.ID, u.Role, rec.ID)
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token, err := f.codec.SignRefresh(claims)
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/auth/refresh", nil, &http.Cookie{Name: session.RefreshCookie, Value: token})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 1, f.tokens.Len())
	require.True(t, f.tokens.Has(rec.ID))
}

func TestRefresh_MissingCookie(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "UnauthorizedError")
}

func TestLogout_DeletesRecordAndClearsCookies(t *testing.T) {
	f := newFixture(t)
	f.principal(t, "out@example.com", domain.RoleCustomer)
	login := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "out@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, login.Code)

	w := f.do(t, http.MethodPost, "/auth/logout", nil, cookieNamed(login, session.AccessCookie), cookieNamed(login, session.RefreshCookie))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 0, f.tokens.Len())
	cleared := cookieNamed(w, session.AccessCookie)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)

	again := f.do(t, http.MethodPost, "/auth/refresh", nil, cookieNamed(login, session.RefreshCookie))
	require.Equal(t, http.StatusUnauthorized, again.Code)
}

func TestLogout_WithOnlyRefreshCookie(t *testing.T) {
	f := newFixture(t)
	f.principal(t, "lapsed@example.com", domain.RoleCustomer)
	login := f.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "lapsed@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, login.Code)
	require.Equal(t, 1, f.tokens.Len())

	w := f.do(t, http.MethodPost, "/auth/logout", nil, cookieNamed(login, session.RefreshCookie))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 0, f.tokens.Len())
	cleared := cookieNamed(w, session.RefreshCookie)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)
}

func TestSelf(t *testing.T) {
	f := newFixture(t)
	u, access := f.principal(t, "me@example.com", domain.RoleManager)

	w := f.do(t, http.MethodGet, "/auth/self", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, u.ID, body["id"])
	require.Equal(t, "manager", body["role"])
	require.NotContains(t, w.Body.String(), "password")

	w = f.do(t, http.MethodGet, "/auth/self", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsers_AdminOnly(t *testing.T) {
	f := newFixture(t)
	_, customer := f.principal(t, "cust@example.com", domain.RoleCustomer)
	admin, adminCookie := f.principal(t, "admin@example.com", domain.RoleAdmin)

	w := f.do(t, http.MethodGet, "/users", nil, customer)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "You don't have permission!")

	w = f.do(t, http.MethodGet, "/users?perPage=10", nil, adminCookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 2, page.Total)

	w = f.do(t, http.MethodGet, "/users/abc", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Invalid url param!")

	w = f.do(t, http.MethodGet, "/users/999", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "User does not exist!")

	w = f.do(t, http.MethodDelete, "/users/1", nil, adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, f.audit.has("delete", "user"))
	require.NotZero(t, admin.ID)
}

func TestTenants_PublicReadsAdminWrites(t *testing.T) {
	f := newFixture(t)
	_, manager := f.principal(t, "mgr@example.com", domain.RoleManager)
	_, admin := f.principal(t, "root@example.com", domain.RoleAdmin)
	body := map[string]string{"name": "Acme", "address": "1 Main St"}

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/tenants", body).Code)
	require.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/tenants", body, manager).Code)

	w := f.do(t, http.MethodPost, "/tenants", body, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, f.audit.has("create", "tenant"))

	w = f.do(t, http.MethodGet, "/tenants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Acme")

	w = f.do(t, http.MethodGet, "/tenants/42", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Tenant does not exist!")
}

func TestRouter_AmbientRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, healthhandler.WelcomeMessage, w.Body.String())
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)

	w = f.do(t, http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NotFoundError")

	w = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "auth_http_requests_total")
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_AuthRateLimit(t *testing.T) {
	f := newFixture(t)
	router := NewRouter(Deps{
		Log:           logging.Discard(),
		Auth:          identityhandler.NewHandler(nil, session.NewCookiePolicy("localhost", false), logging.Discard()),
		Users:         userhandler.NewHandler(nil, logging.Discard()),
		Tenants:       tenanthandler.NewHandler(nil, logging.Discard()),
		Authn:         middleware.NewAuthenticator(f.codec, nil, nil, logging.Discard()),
		AuthRateLimit: 1,
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = "203.0.113.9:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusBadRequest, send())
	require.Equal(t, http.StatusTooManyRequests, send())
}

func TestRouter_AuthRateLimitKeysOnPeerUnlessProxyTrusted(t *testing.T) {
	f := newFixture(t)
	newRouter := func(trustProxy bool) http.Handler {
		return NewRouter(Deps{
			Log:           logging.Discard(),
			Auth:          identityhandler.NewHandler(nil, session.NewCookiePolicy("localhost", false), logging.Discard()),
			Users:         userhandler.NewHandler(nil, logging.Discard()),
			Tenants:       tenanthandler.NewHandler(nil, logging.Discard()),
			Authn:         middleware.NewAuthenticator(f.codec, nil, nil, logging.Discard()),
			AuthRateLimit: 1,
			TrustProxy:    trustProxy,
		})
	}
	send := func(router http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	direct := newRouter(false)
	require.Equal(t, http.StatusBadRequest, send(direct, "198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, send(direct, "198.51.100.2"))

	proxied := newRouter(true)
	require.Equal(t, http.StatusBadRequest, send(proxied, "198.51.100.1"))
	require.Equal(t, http.StatusBadRequest, send(proxied, "198.51.100.2"))
	require.Equal(t, http.StatusTooManyRequests, send(proxied, "198.51.100.2"))
}
