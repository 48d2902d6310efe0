package rest

import (
	"net/http"

	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/metrics"
	"github.com/citymeet/eventhub/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Cache     domain.SnapshotCache
	Handler   *Handler
	Verifier  security.AccessTokenVerifier
	JWTIssuer string
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(HTTPLogger)
	r.Use(metrics.Middleware)

	// Panic recovery
	r.Use(middleware.Recoverer)

	// Cross-cutting
	if d.Cache != nil {
		r.Use(RateLimitMiddleware(d.Cache))
	}
	r.Use(SecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public read surface, no token required.
		r.Get("/events", d.Handler.PublicListEvents)
		r.Get("/events/{eventID}", d.Handler.PublicGetEvent)

		auth := AuthMiddleware(d.Verifier, AuthOptions{ExpectedIssuer: d.JWTIssuer})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/users/events", func(r chi.Router) {
				r.Post("/", d.Handler.CreateEvent)
				r.Get("/", d.Handler.ListOwnEvents)
				r.Get("/{eventID}", d.Handler.GetOwnEvent)
				r.Patch("/{eventID}", d.Handler.UpdateOwnEvent)
				r.Get("/{eventID}/requests", d.Handler.ListEventRequests)
				r.Patch("/{eventID}/requests", d.Handler.DecideRequests)
			})

			r.Route("/users/requests", func(r chi.Router) {
				r.Post("/", d.Handler.CreateRequest)
				r.Get("/", d.Handler.ListOwnRequests)
				r.Patch("/{requestID}/cancel", d.Handler.CancelRequest)
			})

			r.Route("/admin/events", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", d.Handler.AdminListEvents)
				r.Patch("/{eventID}", d.Handler.AdminUpdateEvent)
			})
		})
	})

	return r
}
