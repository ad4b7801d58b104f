package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
)

const (
	RoleAdmin    = "ADMIN"
	RoleOwner    = "OWNER"
	RoleEmployee = "EMPLOYEE"
)

// Claims is the token payload: sub is the user id.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleOwner
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticate requires an HS256 bearer token signed with secret.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}

			claims := &Claims{}
			_, err := jwt.ParseWithClaims(strings.TrimSpace(authz[7:]), claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				unauthorized(w, msg)
				return
			}
			if claims.Subject == "" {
				unauthorized(w, "token has no subject")
				return
			}

			id := Identity{UserID: claims.Subject, Name: claims.Name, Role: strings.ToUpper(claims.Role)}
			ctx := WithIdentity(r.Context(), id)
			ctx = telemetry.WithUserID(ctx, id.UserID)
			ctx = logger.WithUser(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets only ADMIN and OWNER callers through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			unauthorized(w, "not authenticated")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewToken signs claims for userID. Used by tools and tests.
func NewToken(secret []byte, userID, name, role string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: name, Role: role, RegisteredClaims: claims}).SignedString(secret)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="attendance"`)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
