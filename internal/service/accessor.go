package service

import (
	"Synctra-Backend/internal/config"
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	linkKeyPrefix    = "link:"
	projectKeyPrefix = "project:"
)

// LinkAccessor read-through кэш над долговременным реестром ссылок.
// Попадание в кэш все равно валидируется по expiry на момент чтения:
// часы ушли вперед с момента наполнения. Записи не инвалидируются
// management-записями; staleness в пределах TTL — принятый компромисс.
type LinkAccessor struct {
	storage       repository.Storage
	cache         *ristretto.Cache
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	log           *zap.Logger

	// now подменяется в тестах
	now func() time.Time
}

// NewLinkAccessor создает accessor с ristretto-кэшем
func NewLinkAccessor(storage repository.Storage, cacheCfg *config.LinkCache, resolverCfg *config.Resolver, log *zap.Logger) (*LinkAccessor, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cacheCfg.CounterSize),
		MaxCost:     int64(cacheCfg.MaxSizeMB) * 1024 * 1024,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize link cache: %w", err)
	}

	return &LinkAccessor{
		storage:       storage,
		cache:         cache,
		cacheTTL:      cacheCfg.TTL,
		lookupTimeout: resolverCfg.LookupTimeout,
		log:           log,
		now:           time.Now,
	}, nil
}

// SetClock подменяет источник времени (для тестов)
func (a *LinkAccessor) SetClock(now func() time.Time) {
	a.now = now
}

// Resolve возвращает активную, не истекшую ссылку по короткому коду.
// Медленный lookup не должен вешать пользовательский редирект: запрос к
// хранилищу ограничен коротким таймаутом и fail-closed в not-found.
func (a *LinkAccessor) Resolve(ctx context.Context, shortCode string) (*domain.Link, error) {
	if cached, found := a.cache.Get(linkKeyPrefix + shortCode); found {
		link := cached.(*domain.Link)
		if !link.IsActive {
			return nil, repository.ErrLinkNotFound
		}
		if link.IsExpired(a.now()) {
			return nil, repository.ErrLinkExpired
		}
		return link, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	link, err := a.storage.GetLinkByShortCode(lookupCtx, shortCode)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			a.log.Warn("link lookup timed out, failing closed",
				zap.String("short_code", shortCode),
				zap.Duration("timeout", a.lookupTimeout))
			return nil, repository.ErrLinkNotFound
		}
		return nil, err
	}

	a.cache.SetWithTTL(linkKeyPrefix+shortCode, link, 1, a.cacheTTL)
	return link, nil
}

// Project возвращает конфигурацию проекта (с тем же кэшированием)
func (a *LinkAccessor) Project(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	key := projectKeyPrefix + id.String()
	if cached, found := a.cache.Get(key); found {
		return cached.(*domain.Project), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	project, err := a.storage.GetProjectByID(lookupCtx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			a.log.Warn("project lookup timed out, failing closed", zap.String("project_id", id.String()))
			return nil, repository.ErrProjectNotFound
		}
		return nil, err
	}

	a.cache.SetWithTTL(key, project, 1, a.cacheTTL)
	return project, nil
}

// Close останавливает кэш
func (a *LinkAccessor) Close() {
	a.cache.Close()
}
