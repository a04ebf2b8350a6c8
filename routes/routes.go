package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/courtside/bracket-engine/handlers"
	"github.com/courtside/bracket-engine/middleware"
)

func SetupRoutes(
	bracketHandler *handlers.BracketHandler,
	matchHandler *handlers.MatchHandler,
	wsHandler *handlers.WebSocketHandler,
	jwtSecret string,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Get("/ws/brackets/{configID}", wsHandler.ServeWs)

	router.Route("/divisions/{divisionID}", func(r chi.Router) {
		r.Get("/bracket", bracketHandler.GetBracketDataHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Post("/bracket-config", bracketHandler.GetOrCreateConfigHandler)
			r.Post("/bracket-snapshot", bracketHandler.ArchiveSnapshotHandler)
		})
	})

	router.Route("/bracket-configs/{configID}", func(r chi.Router) {
		// Read endpoints are public: spectators poll these.
		r.Get("/groups", bracketHandler.GetGroupsHandler)
		r.Get("/preliminary-matches", bracketHandler.GetPreliminaryMatchesHandler)
		r.Get("/matches", bracketHandler.GetMainBracketMatchesHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Put("/", bracketHandler.UpdateConfigHandler)
			r.Post("/groups", bracketHandler.AutoGenerateGroupsHandler)
			r.Post("/preliminary-matches", bracketHandler.GeneratePreliminaryMatchesHandler)
			r.Post("/main-bracket", bracketHandler.GenerateMainBracketHandler)
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Put("/result", matchHandler.UpdateMatchResultHandler)
			r.Put("/court", matchHandler.SetCourtLabelHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RolePlayer))

			r.Post("/score", matchHandler.SubmitPlayerScoreHandler)
		})
	})

	return router
}
