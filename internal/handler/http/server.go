package http

import (
	"Synctra-Backend/internal/analytics"
	"Synctra-Backend/internal/attribution"
	"Synctra-Backend/internal/deferred"
	"Synctra-Backend/internal/repository"
	"Synctra-Backend/internal/service"
	"net/http"

	"go.uber.org/zap"
)

// Server HTTP сервер движка резолвинга
type Server struct {
	redirectHandler  *RedirectHandler
	deferredHandler  *DeferredHandler
	wellKnownHandler *WellKnownHandler
	healthHandler    *HealthHandler
	log              *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	resolver *service.Resolver,
	contexts deferred.Store,
	recorder *analytics.Recorder,
	matcher *attribution.Matcher,
	log *zap.Logger,
) *Server {
	return &Server{
		redirectHandler:  NewRedirectHandler(resolver, log),
		deferredHandler:  NewDeferredHandler(contexts, recorder, matcher, log),
		wellKnownHandler: NewWellKnownHandler(storage, log),
		healthHandler:    NewHealthHandler(storage, log),
		log:              log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	// Post-install SDK callbacks
	mux.HandleFunc("/context/", s.deferredHandler.GetContext)
	mux.HandleFunc("/app-opened", s.deferredHandler.AppOpened)
	mux.HandleFunc("/track-web-continue", s.deferredHandler.TrackWebContinue)
	mux.HandleFunc("/install-status/", s.deferredHandler.InstallStatus)

	// Domain verification documents
	mux.HandleFunc("/.well-known/assetlinks.json", s.wellKnownHandler.AssetLinks)
	mux.HandleFunc("/.well-known/apple-app-site-association", s.wellKnownHandler.AppleAppSiteAssociation)
	mux.HandleFunc("/apple-app-site-association", s.wellKnownHandler.AppleAppSiteAssociation)

	// Redirect endpoint - должен быть последним
	mux.HandleFunc("/", s.redirectHandler.HandleRedirect)

	return mux
}
