package http

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"budgetadvisor/internal/core"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "advisor_session"

var errInvalidSession = errors.New("invalid session")

type identityKey struct{}

type sessionClaims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256-signed session cookies. The
// token is the only session state: nothing is kept server side.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager returns a manager signing with secret. An empty secret
// is replaced with a random key, so sessions do not survive a restart.
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{secret: key, ttl: ttl, secure: secure, now: time.Now}, nil
}

// Issue signs a token for id and sets the session cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, id core.Identity) error {
	token, expires, err := m.sign(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) sign(id core.Identity) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := sessionClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Parse verifies a token and returns the identity it carries.
func (m *SessionManager) Parse(token string) (core.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return core.Identity{}, fmt.Errorf("%w: %w", errInvalidSession, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.Username == "" {
		return core.Identity{}, errInvalidSession
	}
	return core.Identity{UserID: userID, Username: claims.Username}, nil
}

// Middleware puts the session identity, if any, on the request context.
// Invalid or expired cookies are cleared and the request continues
// anonymously.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.Parse(c.Value)
		if err != nil {
			m.Clear(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the logged-in identity, or the zero Identity.
func IdentityFrom(ctx context.Context) core.Identity {
	id, _ := ctx.Value(identityKey{}).(core.Identity)
	return id
}
