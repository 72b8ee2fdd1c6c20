/**
 * @description
 * This file sets up the HTTP router for the domain-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * middleware for logging, recovery, CORS, timeouts, and session auth.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: Browser clients call this API cross-origin.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DomainRoutes creates and returns the router for the domain service.
// claimTimeout bounds the claim finalization route, which blocks while the
// payment confirmation poll runs and so needs far more headroom than the
// default request timeout.
func DomainRoutes(h *DomainHandlers, allowedOrigins []string, claimTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and CORS.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint, exposed both bare and under the API prefix.
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	}
	r.Get("/health", healthHandler)
	r.Get("/api/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// The claim route polls the chain indexer and can legitimately take
		// minutes; everything else gets the standard timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(claimTimeout))
			r.Post("/domains/claim", h.ClaimDomainHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Post("/sessions", h.CreateSessionHandler)

			r.Get("/domains/check/{username}", h.CheckDomainHandler)
			r.Get("/domains/{username}", h.GetDomainHandler)

			r.Get("/users", h.GetUserByWalletHandler)
			r.Get("/users/{username}", h.GetUserProfileHandler)
			r.Get("/users/{username}/sbts", h.ListUserSBTsHandler)

			r.Get("/sbts/{tokenId}", h.GetSBTHandler)
			r.Post("/stacks/prepare-claim", h.PrepareClaimCallHandler)

			// Session-protected endpoints.
			r.Group(func(r chi.Router) {
				r.Use(WalletSessionMiddleware(h.sessionKey))

				r.Put("/users/{username}", h.UpdateUserProfileHandler)
				r.Post("/sbts", h.IssueSBTHandler)
				r.Post("/sbt/prepare-issue", h.PrepareIssueCallHandler)
				r.Post("/upload/image", h.UploadImageHandler)
			})
		})
	})

	return r
}
