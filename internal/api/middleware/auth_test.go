package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/pkg/telemetry"
)

var testSecret = []byte("test-secret")

func token(t *testing.T, secret []byte, userID, role string, exp time.Time) string {
	t.Helper()
	tok, err := NewToken(secret, userID, "Ayesha", role, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	require.NoError(t, err)
	return tok
}

func TestAuthenticate(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer " + token(t, testSecret, "u-1", "employee", future), wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token(t, testSecret, "u-1", "ADMIN", future), wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + token(t, []byte("other"), "u-1", "ADMIN", future), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + token(t, testSecret, "u-1", "ADMIN", time.Now().Add(-time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + token(t, testSecret, "", "ADMIN", future), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Identity
			h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = IdentityFrom(r.Context())
				assert.Equal(t, got.UserID, telemetry.GetUserIDFromContext(r.Context()))
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "u-1", got.UserID)
				assert.Equal(t, "Ayesha", got.Name)
			} else {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthenticate_RejectsNoneAlgorithm(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		identity   *Identity
		wantStatus int
	}{
		{name: "admin", identity: &Identity{UserID: "a", Role: RoleAdmin}, wantStatus: http.StatusOK},
		{name: "owner", identity: &Identity{UserID: "o", Role: RoleOwner}, wantStatus: http.StatusOK},
		{name: "employee", identity: &Identity{UserID: "e", Role: RoleEmployee}, wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
