package http

import (
	"Synctra-Backend/internal/repository"
	"Synctra-Backend/internal/service"
	"Synctra-Backend/pkg/useragent"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// reservedCodes пути, которые никогда не трактуются как короткие коды
var reservedCodes = map[string]bool{
	"favicon.ico":  true,
	"robots.txt":   true,
	"sitemap.xml":  true,
	"docs":         true,
	"redoc":        true,
	"openapi.json": true,
}

// reservedPrefixes системные префиксы
var reservedPrefixes = []string{
	"api/",
	"health",
	"ready",
	"metrics",
	"context/",
	"app-opened",
	"track-web-continue",
	"install-status/",
	".well-known/",
	"apple-app-site-association",
}

// RedirectHandler обработчик редиректов по коротким кодам
type RedirectHandler struct {
	resolver *service.Resolver
	log      *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(resolver *service.Resolver, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		log:      log,
	}
}

// HandleRedirect обрабатывает резолвинг короткого кода
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortCode := strings.TrimPrefix(r.URL.Path, "/")

	if shortCode == "" || isReservedPath(shortCode) {
		http.NotFound(w, r)
		return
	}

	meta := &service.RequestMeta{
		IPAddress: extractIPAddress(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Country:   extractCountry(r),
	}

	decision, err := h.resolver.Resolve(r.Context(), shortCode, meta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkExpired):
			h.log.Debug("link expired", zap.String("short_code", shortCode))
			http.Error(w, "Link expired", http.StatusGone)
		case errors.Is(err, repository.ErrLinkNotFound):
			h.log.Debug("short code not found", zap.String("short_code", shortCode))
			http.NotFound(w, r)
		default:
			h.log.Error("failed to resolve short code", zap.String("short_code", shortCode), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.log.Info("resolved short code",
		zap.String("short_code", shortCode),
		zap.String("decision", string(decision.Kind)),
		zap.String("platform", decision.Platform.Platform),
		zap.String("device_type", decision.Platform.DeviceType),
		zap.String("ip", meta.IPAddress))

	switch decision.Kind {
	case service.DecisionNativeAttempt:
		h.renderNativeAttempt(w, decision)
	case service.DecisionDeferred:
		h.renderDeferred(w, decision)
	default:
		http.Redirect(w, r, decision.DestinationURL, http.StatusFound)
	}
}

func (h *RedirectHandler) renderNativeAttempt(w http.ResponseWriter, decision *service.RedirectDecision) {
	data := &interstitialData{
		Title:          linkTitle(decision),
		Platform:       decision.Platform.Platform,
		AppSchemeURL:   decision.AppSchemeURL,
		IntentURL:      decision.IntentURL,
		FallbackURL:    decision.DestinationURL,
		DestinationURL: decision.DestinationURL,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := nativeAttemptTemplate.Execute(w, data); err != nil {
		h.log.Error("failed to render native attempt page", zap.Error(err))
	}
}

func (h *RedirectHandler) renderDeferred(w http.ResponseWriter, decision *service.RedirectDecision) {
	storeLabel := "Get it on Google Play"
	if decision.Platform.Platform == useragent.PlatformIOS {
		storeLabel = "Download on the App Store"
	}

	description := "For the best experience, download our app."
	if decision.Link != nil && decision.Link.Description != nil && *decision.Link.Description != "" {
		description = *decision.Link.Description
	}

	data := &interstitialData{
		Title:          linkTitle(decision),
		Description:    description,
		Platform:       decision.Platform.Platform,
		StoreURL:       decision.StoreURL,
		DestinationURL: decision.DestinationURL,
		TrackingID:     decision.TrackingID,
		StoreLabel:     storeLabel,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := deferredTemplate.Execute(w, data); err != nil {
		h.log.Error("failed to render deferred page", zap.Error(err))
	}
}

func linkTitle(decision *service.RedirectDecision) string {
	if decision.Link != nil && decision.Link.Title != nil && *decision.Link.Title != "" {
		return *decision.Link.Title
	}
	return "Opening app..."
}

func isReservedPath(shortCode string) bool {
	if reservedCodes[shortCode] {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(shortCode, prefix) {
			return true
		}
	}
	return false
}

// extractIPAddress извлекает IP адрес из запроса с учетом прокси
func extractIPAddress(r *http.Request) string {
	// Проверяем заголовки прокси в порядке приоритета
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For может содержать список IP через запятую
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	// Fallback к RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// extractCountry берет страну из заголовков edge-прокси, если они есть
func extractCountry(r *http.Request) *string {
	for _, header := range []string{"CF-IPCountry", "X-Geo-Country"} {
		if country := r.Header.Get(header); country != "" && country != "XX" {
			return &country
		}
	}
	return nil
}
