package http

import (
	"Synctra-Backend/internal/analytics"
	"Synctra-Backend/internal/attribution"
	"Synctra-Backend/internal/deferred"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeferredHandler обработчик post-install коллбеков SDK
type DeferredHandler struct {
	contexts deferred.Store
	recorder *analytics.Recorder
	matcher  *attribution.Matcher
	log      *zap.Logger
}

// NewDeferredHandler создает новый обработчик отложенных контекстов
func NewDeferredHandler(contexts deferred.Store, recorder *analytics.Recorder, matcher *attribution.Matcher, log *zap.Logger) *DeferredHandler {
	return &DeferredHandler{
		contexts: contexts,
		recorder: recorder,
		matcher:  matcher,
		log:      log,
	}
}

// appOpenedRequest тело POST /app-opened
type appOpenedRequest struct {
	TrackingID      string   `json:"tracking_id"`
	AppIdentifier   string   `json:"app_identifier,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	ProjectID       string   `json:"project_id,omitempty"`
	ConversionValue *float64 `json:"conversion_value,omitempty"`
}

type trackingRequest struct {
	TrackingID string `json:"tracking_id"`
}

// GetContext обрабатывает GET /context/{trackingId}: неразрушающее чтение
func (h *DeferredHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	trackingID := strings.TrimPrefix(r.URL.Path, "/context/")
	if trackingID == "" {
		http.NotFound(w, r)
		return
	}

	snapshot, err := h.contexts.Peek(r.Context(), trackingID)
	if err != nil {
		if errors.Is(err, deferred.ErrContextNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to peek deferred context", zap.String("tracking_id", trackingID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"success": true,
		"context": snapshot,
	})
}

// AppOpened обрабатывает POST /app-opened: потребляет контекст ровно один раз
// и помечает конверсию. Когда tracking id не пережил установку, откатывается
// к эвристическому матчеру.
func (h *DeferredHandler) AppOpened(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req appOpenedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.TrackingID != "" {
		h.consumeContext(w, r, &req)
		return
	}
	h.matchWithoutTracking(w, r, &req)
}

func (h *DeferredHandler) consumeContext(w http.ResponseWriter, r *http.Request, req *appOpenedRequest) {
	snapshot, err := h.contexts.Consume(r.Context(), req.TrackingID)
	if err != nil {
		if errors.Is(err, deferred.ErrContextNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to consume deferred context", zap.String("tracking_id", req.TrackingID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Конверсия помечается ровно один раз; повторный app-open не найдет
	// контекст и не дойдет до этой ветки
	if err := h.recorder.MarkConverted(r.Context(), snapshot.ClickID, req.ConversionValue); err != nil {
		h.log.Error("failed to mark click converted",
			zap.String("click_id", snapshot.ClickID.String()), zap.Error(err))
	}

	h.log.Info("deferred context consumed",
		zap.String("tracking_id", req.TrackingID),
		zap.String("short_code", snapshot.ShortCode),
		zap.String("app_identifier", req.AppIdentifier))

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"success":      true,
		"original_url": snapshot.DestinationURL,
		"utm_params":   snapshot.UTMParams,
		"link_data": map[string]interface{}{
			"short_code": snapshot.ShortCode,
			"platform":   snapshot.Platform,
		},
	})
}

// matchWithoutTracking fallback на вероятностную атрибуцию по слабой сигнатуре
func (h *DeferredHandler) matchWithoutTracking(w http.ResponseWriter, r *http.Request, req *appOpenedRequest) {
	sig := attribution.Signature{Platform: req.Platform}
	if req.ProjectID != "" {
		if projectID, err := uuid.Parse(req.ProjectID); err == nil {
			sig.ProjectID = &projectID
		}
	}

	click, err := h.matcher.Match(r.Context(), sig)
	if err != nil {
		if errors.Is(err, attribution.ErrNoMatch) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("attribution matching failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.recorder.MarkConverted(r.Context(), click.ID, req.ConversionValue); err != nil {
		h.log.Error("failed to mark matched click converted",
			zap.String("click_id", click.ID.String()), zap.Error(err))
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"success":  true,
		"matched":  true,
		"click_id": click.ID.String(),
	})
}

// TrackWebContinue обрабатывает POST /track-web-continue: пользователь выбрал
// web вместо установки. Контекст не потребляется и конверсией не считается.
func (h *DeferredHandler) TrackWebContinue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if snapshot, err := h.contexts.Peek(r.Context(), req.TrackingID); err == nil {
		h.log.Info("user continued on web",
			zap.String("tracking_id", req.TrackingID),
			zap.String("short_code", snapshot.ShortCode))
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{"success": true})
}

// InstallStatus обрабатывает GET /install-status/{trackingId}: polling со
// страницы ожидания
func (h *DeferredHandler) InstallStatus(w http.ResponseWriter, r *http.Request) {
	trackingID := strings.TrimPrefix(r.URL.Path, "/install-status/")
	if trackingID == "" {
		http.NotFound(w, r)
		return
	}

	snapshot, err := h.contexts.Peek(r.Context(), trackingID)
	if err != nil {
		if errors.Is(err, deferred.ErrContextNotFound) {
			writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
				"installed": false,
				"expired":   true,
			})
			return
		}
		h.log.Error("failed to check install status", zap.String("tracking_id", trackingID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Надежного сигнала установки нет; страница продолжает опрашивать,
	// пока контекст жив
	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"installed": false,
		"expired":   false,
		"context":   snapshot,
	})
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}
