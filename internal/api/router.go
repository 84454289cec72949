package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sam/code-clash/internal/api/handlers"
	"github.com/sam/code-clash/internal/api/middleware"
	"github.com/sam/code-clash/internal/config"
	"github.com/sam/code-clash/internal/repository"
	"github.com/sam/code-clash/internal/service"
	"github.com/sam/code-clash/internal/ws"
)

func NewRouter(services *service.Services, hub *ws.Hub, repos *repository.Repositories, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth)
	roomHandler := handlers.NewRoomHandler(services.Room)
	gameHandler := handlers.NewGameHandler(services.Game, cfg)
	submissionHandler := handlers.NewSubmissionHandler(services.Submission)
	questionHandler := handlers.NewQuestionHandler(repos.Question)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", roomHandler.Create)
				r.Get("/active", roomHandler.ListActive)
				r.Post("/join-by-code", roomHandler.JoinByCode)
				r.Get("/{idOrCode}", roomHandler.Get)
				r.Post("/{id}/join", roomHandler.Join)
				r.Post("/{id}/leave", roomHandler.Leave)
				r.Delete("/{id}", roomHandler.Delete)
				r.Post("/{id}/finish", roomHandler.Finish)
				r.Post("/{id}/rematch", roomHandler.Rematch)
				r.Get("/{id}/status", roomHandler.Status)
				r.Get("/{id}/game", gameHandler.Active)
			})

			r.Route("/games", func(r chi.Router) {
				r.Post("/start", gameHandler.Start)
				r.Post("/end", gameHandler.End)
				r.Post("/{id}/expire", gameHandler.Expire)
				r.Get("/{id}/results", gameHandler.Results)
			})

			r.Route("/submissions", func(r chi.Router) {
				r.Post("/", submissionHandler.Submit)
				r.Get("/", submissionHandler.List)
				r.Get("/leaderboard", submissionHandler.Leaderboard)
			})

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", questionHandler.GetAll)
				r.Get("/{id}", questionHandler.Get)
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
