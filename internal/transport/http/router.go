package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the cross-cutting middleware.
type RouterOptions struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter mounts the REST API and the live quiz websocket.
func NewRouter(api *API, ws *WSHandler, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	// Websocket sessions outlive the request timeout.
	r.Get("/ws/quiz", ws.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))
		r.Use(OptionalAuth(api.Auth))

		r.Post("/auth/signup", api.signup)
		r.Post("/auth/login", api.login)
		r.Post("/auth/logout", api.logout)

		r.Get("/nav", api.nav)
		r.Get("/categories", api.categories)
		r.Get("/results", api.results)
		r.Get("/leaderboard", api.leaderboard)
		r.Get("/badges", api.badges)

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", api.listQuestions)
			r.Post("/", api.createQuestion)
			r.Put("/{id}", api.updateQuestion)
			r.Delete("/{id}", api.deleteQuestion)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Get("/me", api.me)
			r.Get("/me/dashboard", api.dashboard)
		})
	})
	return r
}
