package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kswiatek/tile-league/handlers"
	"github.com/kswiatek/tile-league/middleware"
	"github.com/kswiatek/tile-league/models"
)

// SetupRoutes собирает таблицу маршрутов. Все мутирующие операции закрыты
// проверкой роли admin; чтение доступно любому аутентифицированному
// оператору либо публично.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	rosterHandler *handlers.RosterHandler,
	playerHandler *handlers.PlayerHandler,
	tableHandler *handlers.TableHandler,
	roundHandler *handlers.RoundHandler,
	draftHandler *handlers.DraftHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticator([]byte(jwtSecret))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/players", rosterHandler.ListTournamentPlayers)
		r.Get("/{tournamentID}/tables", tableHandler.ListByTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", tournamentHandler.Create)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatus)
			r.Post("/{tournamentID}/roster/sync", rosterHandler.SyncFromSheet)
			r.Post("/{tournamentID}/export", tournamentHandler.ExportRatings)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.List)
		r.Get("/{playerID}", playerHandler.Get)
	})

	router.Route("/roster", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)

		r.Post("/resolve", rosterHandler.Resolve)
		r.Post("/ensure", rosterHandler.Ensure)
	})

	router.Route("/tables", func(r chi.Router) {
		r.Get("/{tableID}", tableHandler.Get)
		r.Get("/{tableID}/rounds/{roundNr}", roundHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", tableHandler.Create)
			r.Delete("/{tableID}", tableHandler.Delete)
			r.Put("/{tableID}/rounds/winners", roundHandler.RecordWinners)
			r.Put("/{tableID}/rounds/detailed", roundHandler.RecordDetailed)
			r.Patch("/{tableID}/rounds/{roundNr}", roundHandler.Edit)
			r.Delete("/{tableID}/rounds/{roundNr}", roundHandler.Delete)

			r.Put("/{tableID}/draft", draftHandler.Save)
			r.Get("/{tableID}/draft", draftHandler.Load)
			r.Delete("/{tableID}/draft", draftHandler.Delete)
		})
	})
}
