package http

import (
	"Synctra-Backend/internal/repository"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// WellKnownHandler отдает документы верификации домена для OS-уровневых
// App Links / Universal Links. Документы хранятся per-project и отдаются
// как есть, по хосту запроса.
type WellKnownHandler struct {
	storage repository.Storage
	log     *zap.Logger
}

// NewWellKnownHandler создает новый обработчик well-known документов
func NewWellKnownHandler(storage repository.Storage, log *zap.Logger) *WellKnownHandler {
	return &WellKnownHandler{
		storage: storage,
		log:     log,
	}
}

// AssetLinks обрабатывает GET /.well-known/assetlinks.json
func (h *WellKnownHandler) AssetLinks(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, func(assetLinks, _ *string) *string { return assetLinks })
}

// AppleAppSiteAssociation обрабатывает GET /.well-known/apple-app-site-association
// (и корневой fallback /apple-app-site-association)
func (h *WellKnownHandler) AppleAppSiteAssociation(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, func(_, appleDoc *string) *string { return appleDoc })
}

func (h *WellKnownHandler) serveDocument(w http.ResponseWriter, r *http.Request, pick func(assetLinks, appleDoc *string) *string) {
	host := requestHost(r)

	project, err := h.storage.GetProjectByHost(r.Context(), host)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to look up project by host", zap.String("host", host), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	document := pick(project.AssetLinksJSON, project.AppleAppSiteAssociation)
	if document == nil || *document == "" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(*document)); err != nil {
		h.log.Error("failed to write well-known document", zap.Error(err))
	}
}

// requestHost возвращает хост запроса без порта
func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}
