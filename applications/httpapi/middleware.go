package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	verrors "github.com/verifyengine/core/infrastructure/errors"
	"github.com/verifyengine/core/infrastructure/httputil"
	"github.com/verifyengine/core/infrastructure/logging"
)

// apiKeyAuthenticator is the narrow slice of auth.APIKeyAuthenticator the
// middleware needs, kept as an interface so tests can substitute a fake.
type apiKeyAuthenticator interface {
	Authenticate(presentedKey string) (userID string, ok bool)
}

// bearerAuthenticator is the narrow slice of auth.BearerAuthenticator the
// middleware needs.
type bearerAuthenticator interface {
	Authenticate(token string) (userID string, ok bool)
}

// requireAPIKey gates a route on the X-API-Key header, per spec.md §6.
func requireAPIKey(authn apiKeyAuthenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authn.Authenticate(r.Header.Get("X-API-Key"))
			if !ok {
				writeServiceError(w, r, verrors.AuthError("invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r.WithContext(logging.WithUserID(r.Context(), userID)))
		})
	}
}

// requireBearer gates a route on an Authorization: Bearer <token> header.
func requireBearer(authn bearerAuthenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
				writeServiceError(w, r, verrors.AuthError("missing or malformed bearer token"))
				return
			}
			userID, ok := authn.Authenticate(header[len(prefix):])
			if !ok {
				writeServiceError(w, r, verrors.AuthError("invalid or expired bearer token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(logging.WithUserID(r.Context(), userID)))
		})
	}
}

// writeServiceError renders a *errors.ServiceError through the standard
// JSON error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err *verrors.ServiceError) {
	httputil.WriteErrorResponse(w, r, err.HTTPStatus, string(err.Code), err.Message, err.Details)
}
