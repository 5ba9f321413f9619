package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/stockdeck/stockdeck/internal/api/handler"
	"github.com/stockdeck/stockdeck/internal/api/middleware"
	"github.com/stockdeck/stockdeck/internal/config"
	"github.com/stockdeck/stockdeck/internal/favorites"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Config        *config.Config
	Authenticator middleware.Authenticator
	DBPinger      handler.DBPinger
	Favorites     favorites.Repository
	Market        handler.MarketGateway
	Aggregator    handler.Aggregator
	Topics        handler.TopicManager // nil when push is not configured
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	requireAuth := middleware.Auth(deps.Authenticator)
	requirePageAuth := middleware.PageAuth(deps.Authenticator)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Config.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	pages := handler.NewPagesHandler()
	r.Get("/login", pages.LoginPage)
	r.With(requirePageAuth).Get("/", pages.Index)

	authHandler := handler.NewAuthHandler(deps.Authenticator)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.Get("/api/auth/status", authHandler.Status)

	bootstrap := handler.NewBootstrapHandler(deps.Config)
	r.Get("/api/firebase-config-public", bootstrap.FirebaseConfig)

	favHandler := handler.NewFavoritesHandler(deps.Favorites)
	stocksHandler := handler.NewStocksHandler(deps.Market, deps.Aggregator)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/api/firebase-config", bootstrap.FirebaseConfig)
		r.Get("/api/vapid-public-key", bootstrap.VAPIDPublicKey)

		r.Get("/api/search-stocks", stocksHandler.Search)
		r.Get("/api/dashboard-favorites", stocksHandler.DashboardFavorites)
		r.Get("/api/major-indexes", stocksHandler.MajorIndexes)

		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favHandler.List)
			r.Post("/", favHandler.Add)
			r.Delete("/", favHandler.Remove)
		})

		if deps.Topics != nil {
			notifHandler := handler.NewNotificationsHandler(deps.Topics, deps.Config.AlertTopic)
			r.Post("/api/notifications/subscribe", notifHandler.Subscribe)
			r.Post("/api/notifications/unsubscribe", notifHandler.Unsubscribe)
		}
	})

	return r
}
