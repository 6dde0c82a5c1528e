package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"videostack-backend/internal/handlers"
	"videostack-backend/internal/middleware"
	"videostack-backend/internal/websocket"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Assets     *handlers.AssetHandler
	Generation *handlers.GenerationHandler
	Storyboard *handlers.StoryboardHandler
	Story      *handlers.StoryHandler
	WSHub      *websocket.Hub
}

// New builds the HTTP routes. ctx bounds the lifetime of background helpers
// such as the rate limiter janitor.
func New(ctx context.Context, jwtAuth *middleware.JWTAuth, h Handlers, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to the VideoStack API"}`))
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Get("/login", h.Auth.Login)
				r.Get("/signup", h.Auth.Signup)
				r.Get("/callback", h.Auth.Callback)
				r.Post("/refresh", h.Auth.Refresh)
			})

			r.With(jwtAuth.Optional).Get("/session", h.Auth.Session)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.GetMe)
				r.Put("/me", h.Auth.UpdateMe)
				r.Get("/user/{user_id}", h.Auth.GetUser)
			})
		})

		// ──── Asset Routes ────
		r.Route("/assets", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", h.Assets.List)
			r.Post("/", h.Assets.Create)
			r.Delete("/{id}", h.Assets.Delete)
		})

		// ──── Generation Routes ────
		r.Route("/generations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", h.Generation.Create)
			r.Get("/", h.Generation.List)
			r.Get("/{id}", h.Generation.Get)
			r.Get("/{id}/status", h.Generation.Status)
		})

		// ──── Storyboard Routes ────
		r.Route("/storyboard_v2", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", h.Storyboard.Create)
			r.Get("/", h.Storyboard.List)

			r.Route("/{storyboardID}", func(r chi.Router) {
				r.Get("/", h.Storyboard.Get)
				r.Patch("/", h.Storyboard.Update)
				r.Delete("/", h.Storyboard.Delete)

				r.Post("/scenes", h.Storyboard.CreateScene)
				r.Route("/scenes/{sceneID}", func(r chi.Router) {
					r.Get("/", h.Storyboard.GetScene)
					r.Patch("/", h.Storyboard.UpdateScene)
					r.Delete("/", h.Storyboard.DeleteScene)

					r.Post("/shots", h.Storyboard.CreateShot)
					r.Route("/shots/{shotID}", func(r chi.Router) {
						r.Get("/", h.Storyboard.GetShot)
						r.Patch("/", h.Storyboard.UpdateShot)
						r.Delete("/", h.Storyboard.DeleteShot)
						r.Post("/generate", h.Storyboard.GenerateShot)
					})
				})
			})
		})

		// ──── Story Drafting Routes ────
		r.Route("/storyboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/options", h.Story.Options)
			r.Post("/scenes", h.Story.Scenes)
		})

		// ──── WebSocket ────
		r.Get("/ws", h.WSHub.HandleWebSocket)
	})

	return r
}
