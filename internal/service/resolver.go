package service

import (
	"Synctra-Backend/internal/analytics"
	"Synctra-Backend/internal/deferred"
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"Synctra-Backend/pkg/useragent"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackingParam несет tracking id в URL страницы магазина,
// чтобы он пережил переход через store
const TrackingParam = "synctra_tracking"

// DecisionKind стратегия ответа на запрос короткого кода
type DecisionKind string

const (
	// DecisionDirect обычный HTTP 302 на итоговый URL
	DecisionDirect DecisionKind = "direct"
	// DecisionNativeAttempt интерстициал с попыткой открыть приложение
	DecisionNativeAttempt DecisionKind = "native_attempt"
	// DecisionDeferred интерстициал установки с открытым отложенным контекстом
	DecisionDeferred DecisionKind = "deferred"
)

// RequestMeta сигналы входящего запроса
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
	Country   *string
}

// RedirectDecision результат резолвинга короткого кода
type RedirectDecision struct {
	Kind DecisionKind

	// DestinationURL итоговый web-адрес (fallback-precedence + UTM)
	DestinationURL string
	// AppSchemeURL попытка открытия iOS-приложения (custom scheme)
	AppSchemeURL string
	// IntentURL Android intent-URI с встроенным fallback
	IntentURL string
	// StoreURL адрес страницы установки (с tracking-параметром для deferred)
	StoreURL string
	// TrackingID идентификатор отложенного контекста (только deferred)
	TrackingID string

	Platform *useragent.PlatformInfo
	Link     *domain.Link
	Project  *domain.Project
	ClickID  uuid.UUID
}

// Resolver принимает решение о редиректе: классифицирует запрос, выбирает
// стратегию, пишет клик (fire-and-forget) и при необходимости открывает
// отложенный контекст.
type Resolver struct {
	accessor *LinkAccessor
	storage  repository.Storage
	contexts deferred.Store
	recorder *analytics.Recorder
	parser   *useragent.Parser
	log      *zap.Logger
	now      func() time.Time
}

// NewResolver создает резолвер редиректов
func NewResolver(
	accessor *LinkAccessor,
	storage repository.Storage,
	contexts deferred.Store,
	recorder *analytics.Recorder,
	parser *useragent.Parser,
	log *zap.Logger,
) *Resolver {
	return &Resolver{
		accessor: accessor,
		storage:  storage,
		contexts: contexts,
		recorder: recorder,
		parser:   parser,
		log:      log,
		now:      time.Now,
	}
}

// Resolve выполняет полный цикл обработки короткого кода: классификация,
// доступ к ссылке, решение, запись клика, условное создание отложенного
// контекста.
func (r *Resolver) Resolve(ctx context.Context, shortCode string, meta *RequestMeta) (*RedirectDecision, error) {
	info := r.parser.Classify(meta.UserAgent)

	link, err := r.accessor.Resolve(ctx, shortCode)
	if err != nil {
		if err == repository.ErrLinkNotFound {
			// Код может оказаться отдельным реферальным кодом
			return r.resolveReferral(ctx, shortCode, info, meta)
		}
		return nil, err
	}

	var project *domain.Project
	if p, perr := r.accessor.Project(ctx, link.ProjectID); perr == nil {
		project = p
	} else {
		r.log.Warn("project lookup failed, resolving with link-level config only",
			zap.String("short_code", shortCode), zap.Error(perr))
	}

	decision := r.decide(ctx, link, project, info, meta)

	// Запись клика не блокирует и не откатывает редирект
	click := r.buildClick(decision, info, meta)
	decision.ClickID = click.ID
	if decision.Kind == DecisionDeferred {
		// Контекст ссылается на клик, поэтому id генерируется до записи
		trackingID, derr := r.openDeferredContext(ctx, link, decision, info, meta, click.ID)
		if derr != nil {
			// Без контекста deferred-страница бессмысленна, откатываемся
			// к нативной попытке с web-fallback
			r.log.Error("failed to open deferred context, downgrading to native attempt",
				zap.String("short_code", shortCode), zap.Error(derr))
			decision.Kind = DecisionNativeAttempt
			click.NativeAttemptFailed = false
		} else {
			decision.TrackingID = trackingID
			decision.StoreURL = AppendParams(decision.StoreURL, map[string]string{TrackingParam: trackingID})
		}
	}
	if err := r.recorder.Record(click); err != nil {
		r.log.Warn("click recording failed, redirect proceeds", zap.Error(err))
	}

	return decision, nil
}

// decide реализует таблицу решений Direct / Native-Attempt / Deferred-Candidate
func (r *Resolver) decide(_ context.Context, link *domain.Link, project *domain.Project, info *useragent.PlatformInfo, meta *RequestMeta) *RedirectDecision {
	decision := &RedirectDecision{
		Kind:     DecisionDirect,
		Platform: info,
		Link:     link,
		Project:  project,
	}

	utm := link.UTMParams()
	decision.DestinationURL = AppendParams(platformFallbackURL(link, project, info.Platform), utm)

	if !info.IsMobile() {
		return decision
	}

	androidPackage := firstNonEmpty(link.AndroidPackage, strPtr(projectAndroidPackage(project)))
	iosBundle := firstNonEmpty(link.IOSBundleID, strPtr(projectIOSBundle(project)))

	var appConfigured bool
	switch info.Platform {
	case useragent.PlatformAndroid:
		appConfigured = androidPackage != ""
	case useragent.PlatformIOS:
		appConfigured = iosBundle != ""
	}
	if !appConfigured {
		// Мобильный запрос без нативных идентификаторов — обычный редирект
		return decision
	}

	// Попытка открытия приложения строится поверх исходного URL с UTM:
	// именно его должно получить приложение
	appDestination := AppendParams(link.OriginalURL, utm)
	switch info.Platform {
	case useragent.PlatformAndroid:
		decision.IntentURL = buildIntentURL(appDestination, androidPackage, decision.DestinationURL)
	case useragent.PlatformIOS:
		customScheme := ""
		if project != nil && project.CustomScheme != nil {
			customScheme = *project.CustomScheme
		}
		decision.AppSchemeURL = buildSchemeURL(customScheme, iosBundle, appDestination)
	}
	decision.StoreURL = r.storeURL(link, project, info.Platform)

	if r.isAppInstalled(meta.UserAgent, androidPackage, iosBundle) {
		decision.Kind = DecisionNativeAttempt
	} else {
		// Отрицательный сигнал означает "неизвестно" — предпочитаем
		// показать установку (deferred), а не потерять контекст
		decision.Kind = DecisionDeferred
	}
	return decision
}

// resolveReferral обрабатывает короткий код, совпавший с реферальным кодом.
// Tracking id здесь не переживает установку (нет app-side storage), поэтому
// мобильные клики помечаются для эвристического матчера.
func (r *Resolver) resolveReferral(ctx context.Context, code string, info *useragent.PlatformInfo, meta *RequestMeta) (*RedirectDecision, error) {
	referral, err := r.storage.GetReferralCode(ctx, code)
	if err != nil {
		return nil, repository.ErrLinkNotFound
	}

	project, err := r.accessor.Project(ctx, referral.ProjectID)
	if err != nil {
		return nil, repository.ErrLinkNotFound
	}

	base := referralDestination(project, info.Platform)
	if base == "" {
		// Проекту некуда вести реферальный трафик
		return nil, repository.ErrLinkNotFound
	}
	decision := &RedirectDecision{
		Kind:           DecisionDirect,
		DestinationURL: AppendParams(base, map[string]string{"referral_code": referral.Code}),
		Platform:       info,
		Project:        project,
	}

	click := &domain.ClickEvent{
		ID:             uuid.New(),
		ReferralCodeID: &referral.ID,
		ProjectID:      &referral.ProjectID,
	}
	fillClickMeta(click, info, meta)
	if info.IsMobile() && (projectAndroidPackage(project) != "" || projectIOSBundle(project) != "") {
		click.NativeAttemptFailed = true
	}
	decision.ClickID = click.ID
	if err := r.recorder.Record(click); err != nil {
		r.log.Warn("referral click recording failed, redirect proceeds", zap.Error(err))
	}

	return decision, nil
}

// isAppInstalled эвристика "установлено ли приложение". Заведомо ненадежна:
// ни один request-time сигнал не доказывает состояние установки. Имя пакета
// в UA или маркер web-view — слабый положительный сигнал; отрицательный
// результат трактуется как "неизвестно, считаем не установленным".
func (r *Resolver) isAppInstalled(userAgent, androidPackage, iosBundle string) bool {
	ua := strings.ToLower(userAgent)

	if androidPackage != "" && strings.Contains(ua, strings.ToLower(androidPackage)) {
		return true
	}
	if iosBundle != "" && strings.Contains(ua, strings.ToLower(iosBundle)) {
		return true
	}

	// Частые маркеры встроенного web-view
	for _, pattern := range []string{" wv", "mobile app", "in-app"} {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// storeURL строит адрес страницы установки: платформенный fallback,
// иначе синтезированная страница магазина
func (r *Resolver) storeURL(link *domain.Link, project *domain.Project, platform string) string {
	switch platform {
	case useragent.PlatformAndroid:
		base := firstNonEmpty(link.AndroidFallbackURL)
		if base == "" && project != nil {
			base = firstNonEmpty(project.AndroidFallbackURL)
		}
		if base != "" {
			return base
		}
		pkg := firstNonEmpty(link.AndroidPackage, strPtr(projectAndroidPackage(project)))
		return "https://play.google.com/store/apps/details?id=" + pkg
	case useragent.PlatformIOS:
		base := firstNonEmpty(link.IOSFallbackURL)
		if base == "" && project != nil {
			base = firstNonEmpty(project.IOSFallbackURL)
		}
		if base != "" {
			return base
		}
		storeID := ""
		if project != nil {
			storeID = firstNonEmpty(project.IOSAppStoreID)
		}
		if storeID == "" {
			storeID = firstNonEmpty(link.IOSBundleID, strPtr(projectIOSBundle(project)))
		}
		return "https://apps.apple.com/app/id" + storeID
	}
	return link.OriginalURL
}

// openDeferredContext пишет снимок клика в эфемерное хранилище
func (r *Resolver) openDeferredContext(ctx context.Context, link *domain.Link, decision *RedirectDecision, info *useragent.PlatformInfo, meta *RequestMeta, clickID uuid.UUID) (string, error) {
	snapshot := &deferred.Context{
		LinkID:         link.ID,
		ShortCode:      link.ShortCode,
		DestinationURL: AppendParams(link.OriginalURL, link.UTMParams()),
		ClickID:        clickID,
		ProjectID:      link.ProjectID,
		Platform:       info.Platform,
		DeviceType:     info.DeviceType,
		Country:        meta.Country,
		UTMParams:      link.UTMParams(),
		CreatedAt:      r.now().UTC(),
	}
	return r.contexts.Create(ctx, snapshot)
}

func (r *Resolver) buildClick(decision *RedirectDecision, info *useragent.PlatformInfo, meta *RequestMeta) *domain.ClickEvent {
	click := &domain.ClickEvent{
		ID:                  uuid.New(),
		NativeAttemptFailed: decision.Kind == DecisionDeferred,
	}
	if decision.Link != nil {
		click.LinkID = &decision.Link.ID
		click.ProjectID = &decision.Link.ProjectID
	}
	fillClickMeta(click, info, meta)
	return click
}

func fillClickMeta(click *domain.ClickEvent, info *useragent.PlatformInfo, meta *RequestMeta) {
	if meta.IPAddress != "" {
		click.IPAddress = strPtr(meta.IPAddress)
	}
	if meta.UserAgent != "" {
		click.UserAgent = strPtr(meta.UserAgent)
	}
	if meta.Referer != "" {
		click.Referer = strPtr(meta.Referer)
	}
	click.Country = meta.Country
	click.Platform = strPtr(info.Platform)
	click.DeviceType = strPtr(info.DeviceType)
	click.Browser = strPtr(info.Browser)
	click.OS = strPtr(info.OS)
}

// --- helpers ---

func strPtr(s string) *string {
	return &s
}

// firstNonEmpty возвращает первое непустое значение
func firstNonEmpty(values ...*string) string {
	for _, value := range values {
		if value != nil && *value != "" {
			return *value
		}
	}
	return ""
}

func projectAndroidPackage(project *domain.Project) string {
	if project == nil {
		return ""
	}
	return firstNonEmpty(project.AndroidPackage)
}

func projectIOSBundle(project *domain.Project) string {
	if project == nil {
		return ""
	}
	return firstNonEmpty(project.IOSBundleID)
}

func referralDestination(project *domain.Project, platform string) string {
	switch platform {
	case useragent.PlatformAndroid:
		if url := firstNonEmpty(project.AndroidFallbackURL); url != "" {
			return url
		}
	case useragent.PlatformIOS:
		if url := firstNonEmpty(project.IOSFallbackURL); url != "" {
			return url
		}
	default:
		if url := firstNonEmpty(project.DesktopFallbackURL); url != "" {
			return url
		}
	}
	return firstNonEmpty(project.AppURL)
}
