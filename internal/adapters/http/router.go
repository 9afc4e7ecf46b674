package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reqquli/reqquli/internal/application"
)

// Handler is the HTTP adapter entrypoint for the REST surface.
// It depends on the application service only, so transport concerns stay out
// of the use-case layer.
type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers every route plus the shared middleware stack.
// Authenticated routes sit behind one bearer-token group so auth behavior is
// uniform across record types.
func NewRouter(handler *Handler, metrics *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	if metrics != nil {
		r.Use(metrics.middleware)
		r.Method(http.MethodGet, "/metrics", metrics.handler())
	}
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/", handler.swaggerUI)
	r.Get("/swagger/openapi.yaml", handler.swaggerSpec)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handler.register)
			r.Post("/login", handler.login)
			r.Get("/jwks", handler.jwks)

			r.Group(func(r chi.Router) {
				r.Use(handler.authMiddleware)
				r.Post("/refresh", handler.refresh)
				r.Post("/logout", handler.logout)
				r.Get("/me", handler.me)
				r.Get("/sessions", handler.listSessions)
				r.Delete("/sessions/{session_id}", handler.revokeSession)
				r.Delete("/sessions", handler.revokeAllSessions)
				r.Get("/login-history", handler.loginHistory)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)

			r.Route("/user-requirements", handler.recordRoutes(handler.userRequirementOps()))
			r.Route("/system-requirements", handler.recordRoutes(handler.systemRequirementOps()))

			r.Route("/risks", func(r chi.Router) {
				r.Post("/", handler.createRisk)
				r.Get("/", handler.listRisks)
				r.Get("/{id}", handler.getRisk)
				r.Put("/{id}", handler.updateRisk)
				r.Post("/{id}/approve", handler.approveRisk)
				r.Delete("/{id}", handler.deleteRisk)
			})

			r.Route("/test-cases", func(r chi.Router) {
				r.Post("/", handler.createTestCase)
				r.Get("/", handler.listTestCases)
				r.Get("/{id}", handler.getTestCase)
				r.Put("/{id}", handler.updateTestCase)
				r.Post("/{id}/approve", handler.approveTestCase)
				r.Delete("/{id}", handler.deleteTestCase)
			})

			r.Route("/test-runs", func(r chi.Router) {
				r.Post("/", handler.createTestRun)
				r.Get("/", handler.listTestRuns)
				r.Get("/{id}", handler.getTestRun)
				r.Post("/{id}/cases/{case_id}/steps/{position}", handler.recordStepResult)
				r.Post("/{id}/approve", handler.approveTestRun)
				r.Delete("/{id}", handler.deleteTestRun)
			})

			r.Route("/traces", func(r chi.Router) {
				r.Post("/", handler.createTrace)
				r.Delete("/", handler.deleteTrace)
				r.Get("/", handler.listTraces)
			})
			r.Get("/trace-graph", handler.traceGraph)

			r.Get("/audit-log", handler.auditLog)
		})
	})

	return r
}
