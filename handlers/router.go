package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/anu100405/REUNITE/repository"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Auth           *AuthHandler
	MissingPersons *MissingPersonHandler
	Uploads        *UploadsHandler
	Users          repository.UserRepository
	JWTSecret      []byte
	CORSOrigins    []string
}

// NewRouter builds the full route tree. Mutation routes sit behind required
// auth; the create route resolves the reporter when a token is present but
// accepts anonymous submissions.
func NewRouter(deps RouterDeps) *chi.Mux {
	requireAuth := AuthMiddleware(deps.Users, deps.JWTSecret)
	optionalAuth := OptionalAuthMiddleware(deps.Users, deps.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.With(requireAuth).Get("/me", deps.Auth.CurrentUser)
		})

		r.Route("/missing-persons", func(r chi.Router) {
			r.With(optionalAuth).Post("/", deps.MissingPersons.Create)
			r.Get("/", deps.MissingPersons.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.MissingPersons.Get)
				r.With(requireAuth).Put("/", deps.MissingPersons.Update)
				r.With(requireAuth).Delete("/", deps.MissingPersons.Delete)
			})
		})

		r.With(requireAuth).Get("/uploads", deps.Uploads.List)
		r.Get("/uploads/{filename}", deps.Uploads.Serve)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
