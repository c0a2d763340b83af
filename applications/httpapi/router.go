package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/metrics"
	"github.com/verifyengine/core/infrastructure/middleware"
)

// Authenticators groups the two credential schemes spec.md §6 requires:
// an API key for submission/status/report, a bearer token for listing.
type Authenticators struct {
	APIKey apiKeyAuthenticator
	Bearer bearerAuthenticator
}

// NewRouter builds the façade's route table, mirroring the teacher gateway's
// registerRoutes: an unauthenticated health/introspection group, an
// API-key-gated group, and a bearer-gated group, all behind the same ambient
// middleware stack (logging, recovery, metrics, CORS, body limit, rate
// limit).
func NewRouter(deps Deps, authn Authenticators, m *metrics.Metrics, corsOrigins []string) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	if m != nil {
		router.Use(middleware.MetricsMiddleware("verification-api", m))
	}
	router.Use(middleware.NewCORSMiddleware(&middleware.CORSConfig{
		AllowedOrigins:         corsOrigins,
		AllowedMethods:         []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:         []string{"Content-Type", "Authorization", "X-API-Key", "X-Trace-ID"},
		ExposedHeaders:         []string{"X-Trace-ID"},
		AllowCredentials:       true,
		MaxAgeSeconds:          3600,
		PreflightStatus:        http.StatusOK,
		RejectDisallowedOrigin: true,
	}).Handler)
	router.Use(middleware.NewBodyLimitMiddleware(0).Handler)

	rateLimiter := middleware.NewRateLimiterWithWindow(60, time.Minute, 10, deps.Logger)
	router.Use(rateLimiter.Handler)

	api := router.PathPrefix("/").Subrouter()

	// Unauthenticated queue introspection — spec.md §6 names no auth
	// requirement for either endpoint.
	api.HandleFunc("/job-status/{job_id}", handleJobStatus(deps)).Methods(http.MethodGet)
	api.HandleFunc("/queue-info", handleQueueInfo(deps)).Methods(http.MethodGet)

	// API-key-gated: submission, status, and report lookup.
	keyed := api.PathPrefix("/verify").Subrouter()
	keyed.Use(requireAPIKey(authn.APIKey))
	keyed.HandleFunc("/kyc", handleSubmitKYC(deps)).Methods(http.MethodPost)
	keyed.HandleFunc("/business", handleSubmitBusiness(deps)).Methods(http.MethodPost)
	keyed.HandleFunc("/status/{id}", handleGetStatus(deps)).Methods(http.MethodGet)
	keyed.HandleFunc("/report", handleGetReport(deps)).Methods(http.MethodGet)

	// Bearer-gated: paginated listing.
	listed := api.PathPrefix("/verify").Subrouter()
	listed.Use(requireBearer(authn.Bearer))
	listed.HandleFunc("/kyc/list", handleList(deps, verification.SubjectIndividual)).Methods(http.MethodGet)
	listed.HandleFunc("/business/list", handleList(deps, verification.SubjectBusiness)).Methods(http.MethodGet)

	return router
}
