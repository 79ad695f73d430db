// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tenantworks/platform/internal/model"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// IdentityKey is the context key for the authenticated identity.
	IdentityKey ContextKey = "identity"
)

// Claims represents JWT claims issued by the auth provider. Subject is the
// user id; Roles preserve assignment order.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// Auth creates JWT authentication middleware. The verified claims become a
// model.Identity in the request context; the core trusts this identity
// without re-verifying credentials. Permissions are deliberately not taken
// from the token: services consult the permission store.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" || claims.TenantID == "" {
				http.Error(w, `{"error":"token missing subject or tenant"}`, http.StatusUnauthorized)
				return
			}

			ident := model.Identity{
				UserID:   claims.Subject,
				TenantID: claims.TenantID,
				Roles:    claims.Roles,
			}
			ctx := context.WithValue(r.Context(), IdentityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the authenticated identity from the context.
func GetIdentity(ctx context.Context) model.Identity {
	if v := ctx.Value(IdentityKey); v != nil {
		return v.(model.Identity)
	}
	return model.Identity{}
}

// GetUserID gets the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	return GetIdentity(ctx).UserID
}

// GetTenantID gets the authenticated tenant id from the context.
func GetTenantID(ctx context.Context) string {
	return GetIdentity(ctx).TenantID
}
