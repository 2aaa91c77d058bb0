package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// AuthValidator resolves a bearer token to the principal it identifies
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeyValidator accepts a single configured key
type StaticKeyValidator struct {
	Key       string
	Principal string
}

// ValidateAPIKey implements AuthValidator
func (v StaticKeyValidator) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if v.Key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(v.Key)) != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	if v.Principal == "" {
		return "api", nil
	}
	return v.Principal, nil
}

// APIKeyAuth requires "Authorization: Bearer <key>" and stores the resolved
// principal in the request context. The scheme is case-insensitive. A nil
// validator disables the check.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				api.HandleError(w, err)
				return
			}

			principal, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.HandleError(w, domain.ErrInvalidAPIKey)
				return
			}

			if st := stateFrom(r.Context()); st != nil {
				st.principal = principal
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.ErrMissingCredentials.WithCause(errors.New("expected a bearer token"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingCredentials
	}
	return token, nil
}

// GetPrincipal returns the authenticated principal, or "" for open routes.
// Middleware outside APIKeyAuth sees it once the handler has returned.
func GetPrincipal(ctx context.Context) string {
	if principal, ok := ctx.Value(PrincipalKey).(string); ok {
		return principal
	}
	if st := stateFrom(ctx); st != nil {
		return st.principal
	}
	return ""
}
