package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userContextKey contextKey = "user"

const defaultTokenTTL = 24 * time.Hour

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("invalid authorization format")
)

// JWTClaims is the HS256 payload shared by chat frontends, advisors and admins.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserID   string  `json:"user_id"`
	TenantID *string `json:"tenant_id,omitempty"`
	Phone    string  `json:"phone,omitempty"`
}

func (c *JWTClaims) user() *AuthUser {
	return &AuthUser{ID: c.UserID, TenantID: c.TenantID, Phone: c.Phone}
}

// AuthUser is the caller attached to the request context. A chat frontend
// authenticates as a tenant; advisors and admins also carry a phone.
type AuthUser struct {
	ID       string
	TenantID *string
	Phone    string
}

// Tenant returns the tenant the caller is bound to, or "".
func (u *AuthUser) Tenant() string {
	if u == nil || u.TenantID == nil {
		return ""
	}
	return *u.TenantID
}

// IssueToken signs a token for user valid for ttl (24h when ttl <= 0).
func IssueToken(secret string, user AuthUser, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issued := time.Now()
	expires := issued.Add(ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:   user.ID,
		TenantID: user.TenantID,
		Phone:    user.Phone,
	}).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func parseToken(secret, raw string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket upgrade, so ?access_token= works when the header is
// absent.
func bearerToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		if q := req.URL.Query().Get("access_token"); q != "" {
			return q, nil
		}
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errBadScheme
	}
	return token, nil
}

func (r *Router) authenticate(req *http.Request) (*AuthUser, error) {
	raw, err := bearerToken(req)
	if err != nil {
		return nil, err
	}
	claims, err := parseToken(r.cfg.JWTSecret, raw)
	if err != nil {
		return nil, errors.New("invalid token")
	}
	return claims.user(), nil
}

func (r *Router) isAdmin(u *AuthUser) bool {
	return u != nil && u.Phone != "" && slices.Contains(r.cfg.AdminPhones, u.Phone)
}

// withAuth rejects requests without a valid token.
func (r *Router) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		user, err := r.authenticate(req)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), userContextKey, user)))
	}
}

// withAdmin additionally requires the caller's phone to be in ADMIN_PHONES.
func (r *Router) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return r.withAuth(func(w http.ResponseWriter, req *http.Request) {
		if !r.isAdmin(getAuthUser(req.Context())) {
			http.Error(w, `{"error": "admin access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func getAuthUser(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(userContextKey).(*AuthUser)
	return user
}
