package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"auth-service/internal/audit"
	"auth-service/internal/logging"
	"auth-service/internal/security"
	"auth-service/internal/session"
	sessionrepo "auth-service/internal/session/repository"
	userdomain "auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

// Sentinel errors for the session manager; httpx.RespondError maps them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPrincipalNotFound      = errors.New("principal not found")
)

const instrumentationName = "auth-service/internal/identity/service"

// UserRepo is the minimal user repository needed by the session manager.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetCredentialByEmail(ctx context.Context, email string) (*userdomain.Credential, error)
	Create(ctx context.Context, u *userdomain.User, passwordHash string) (*userdomain.User, error)
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Session is the outcome of Register, Login and Refresh: a signed token pair for User.
type Session struct {
	User         *userdomain.User
	AccessToken  string
	RefreshToken string

	recordID int64
}

// SessionManager implements register, login, refresh and logout on top of the
// refresh token store. Refresh rotation persists the new record before deleting the old one.
type SessionManager struct {
	users  UserRepo
	tokens sessionrepo.Repository
	codec  *security.TokenCodec
	hasher *security.Hasher
	audit  audit.AuditLogger
	log    *slog.Logger
	now    func() time.Time

	tracer trace.Tracer
	issued metric.Int64Counter
	failed metric.Int64Counter

	// dummyHash is compared against when the email is unknown so both login failures cost a bcrypt round.
	dummyHash string
}

// NewSessionManager returns a SessionManager. auditLogger and log may be nil.
func NewSessionManager(
	users UserRepo,
	tokens sessionrepo.Repository,
	codec *security.TokenCodec,
	hasher *security.Hasher,
	auditLogger audit.AuditLogger,
	log *slog.Logger,
) *SessionManager {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	meter := otel.Meter(instrumentationName)
	issued, _ := meter.Int64Counter("auth.sessions.issued",
		metric.WithDescription("Token pairs issued, by flow"))
	failed, _ := meter.Int64Counter("auth.logins.failed",
		metric.WithDescription("Rejected login attempts"))
	return &SessionManager{
		users:     users,
		tokens:    tokens,
		codec:     codec,
		hasher:    hasher,
		audit:     auditLogger,
		log:       log,
		now:       time.Now,
		tracer:    otel.Tracer(instrumentationName),
		issued:    issued,
		failed:    failed,
		dummyHash: hasher.MustHash("not-a-real-password"),
	}
}

// Register creates a customer principal and opens its first session.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) (_ *Session, err error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Register")
	defer func() { endSpan(span, err) }()

	email := userdomain.NormalizeEmail(in.Email)
	m.log.InfoContext(ctx, "registering user",
		slog.String("email", email),
		slog.String("password", logging.MaskSecret(in.Password)))

	existing, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := m.users.Create(ctx, &userdomain.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Role:      userdomain.RoleCustomer,
	}, hash)
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	sess, err := m.issue(ctx, user, "register")
	if err != nil {
		return nil, err
	}
	m.audit.LogEvent(ctx, user.ID, audit.ActionRegister, "user", "")
	return sess, nil
}

// Login verifies the credentials and opens a session. Unknown email and wrong password
// both return ErrInvalidCredentials.
func (m *SessionManager) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Login")
	defer func() { endSpan(span, err) }()

	cred, err := m.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	hash := m.dummyHash
	if cred != nil {
		hash = cred.PasswordHash
	}
	ok, err := m.hasher.Matches(hash, password)
	if err != nil {
		return nil, err
	}
	if cred == nil || !ok {
		m.failed.Add(ctx, 1)
		m.audit.LogEvent(ctx, 0, audit.ActionLoginFailure, audit.ResourceSession, "")
		return nil, ErrInvalidCredentials
	}
	user := cred.User
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	sess, err := m.issue(ctx, &user, "login")
	if err != nil {
		return nil, err
	}
	m.audit.LogEvent(ctx, user.ID, audit.ActionLoginSuccess, audit.ResourceSession, "")
	return sess, nil
}

// Refresh rotates the session named by claims, which must already be verified and checked
// against revocation. The new record is persisted before the old one is deleted, and the
// re-issued tokens carry the principal's current role. When two refreshes race on the same
// token only the one whose delete removes the old record wins; the other drops its new
// record and gets session.ErrRevokedToken.
func (m *SessionManager) Refresh(ctx context.Context, claims *security.RefreshClaims) (_ *Session, err error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Refresh")
	defer func() { endSpan(span, err) }()

	if claims == nil {
		return nil, security.ErrInvalidToken
	}
	user, err := m.users.GetByID(ctx, claims.PrincipalID())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrPrincipalNotFound
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID), attribute.Int64("token.id", claims.RecordID))

	sess, err := m.issue(ctx, user, "refresh")
	if err != nil {
		return nil, err
	}
	removed, err := m.tokens.Delete(ctx, claims.RecordID)
	if err != nil {
		return nil, fmt.Errorf("delete rotated refresh token: %w", err)
	}
	if !removed {
		if _, delErr := m.tokens.Delete(ctx, sess.recordID); delErr != nil {
			m.log.WarnContext(ctx, "failed to drop refresh record after lost rotation",
				slog.Int64("token_id", sess.recordID), slog.Any("error", delErr))
		}
		m.audit.LogEvent(ctx, user.ID, audit.ActionRefreshRevoked, audit.ResourceSession, "")
		return nil, session.ErrRevokedToken
	}
	m.audit.LogEvent(ctx, user.ID, audit.ActionRefresh, audit.ResourceSession, "")
	return sess, nil
}

// Logout deletes the record named by claims. A record that is already gone is not an error.
func (m *SessionManager) Logout(ctx context.Context, claims *security.RefreshClaims) (err error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Logout")
	defer func() { endSpan(span, err) }()

	if claims == nil {
		return security.ErrInvalidToken
	}
	if _, err := m.tokens.Delete(ctx, claims.RecordID); err != nil {
		return err
	}
	m.audit.LogEvent(ctx, claims.PrincipalID(), audit.ActionLogout, audit.ResourceSession, "")
	return nil
}

// Self returns the public view of the principal with userID.
func (m *SessionManager) Self(ctx context.Context, userID int64) (*userdomain.User, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrPrincipalNotFound
	}
	return user, nil
}

// issue signs the access token, persists a refresh record and signs the refresh token
// bound to it. Nothing is returned unless all three succeed.
func (m *SessionManager) issue(ctx context.Context, user *userdomain.User, flow string) (*Session, error) {
	access, err := m.codec.SignAccess(security.NewAccessClaims(user.ID, user.Role))
	if err != nil {
		return nil, err
	}
	rec, err := m.tokens.Persist(ctx, user.ID, m.now().Add(m.codec.RefreshTTL()))
	if err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	refresh, err := m.codec.SignRefresh(security.NewRefreshClaims(user.ID, user.Role, rec.ID))
	if err != nil {
		if _, delErr := m.tokens.Delete(ctx, rec.ID); delErr != nil {
			m.log.WarnContext(ctx, "failed to drop unsigned refresh record",
				slog.Int64("token_id", rec.ID), slog.Any("error", delErr))
		}
		return nil, err
	}
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
	return &Session{User: user, AccessToken: access, RefreshToken: refresh, recordID: rec.ID}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
