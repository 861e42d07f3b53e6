package postgres

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Link Methods ---

// GetLinkByShortCode получает активную ссылку по короткому коду
func (s *PostgresStorage) GetLinkByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("short_code = ? AND is_active = ?", shortCode, true).First(&link).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("short_code", shortCode), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	// Проверяем срок действия ссылки
	if link.IsExpired(time.Now()) {
		return nil, repository.ErrLinkExpired
	}

	return &link, nil
}

// --- Project Methods ---

// GetProjectByID получает проект по идентификатору
func (s *PostgresStorage) GetProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrProjectNotFound
	}
	if err != nil {
		s.log.Error("failed to get project", zap.String("project_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// GetProjectByHost получает проект по кастомному домену запроса
func (s *PostgresStorage) GetProjectByHost(ctx context.Context, host string) (*domain.Project, error) {
	var project domain.Project

	err := s.db.WithContext(ctx).Where("custom_domain = ?", host).First(&project).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrProjectNotFound
	}
	if err != nil {
		s.log.Error("failed to get project by host", zap.String("host", host), zap.Error(err))
		return nil, fmt.Errorf("failed to get project by host: %w", err)
	}

	return &project, nil
}

// --- Referral Code Methods ---

// GetReferralCode получает реферальный код по значению кода
func (s *PostgresStorage) GetReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	var referral domain.ReferralCode

	err := s.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&referral).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrReferralNotFound
	}
	if err != nil {
		s.log.Error("failed to get referral code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}

	if !referral.IsUsable(time.Now()) {
		return nil, repository.ErrReferralNotFound
	}

	return &referral, nil
}

// --- Click Methods ---

// SaveClick сохраняет событие клика
func (s *PostgresStorage) SaveClick(ctx context.Context, click *domain.ClickEvent) error {
	if err := s.db.WithContext(ctx).Create(click).Error; err != nil {
		s.log.Error("failed to save click", zap.String("click_id", click.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to save click: %w", err)
	}

	s.log.Debug("saved click event",
		zap.String("click_id", click.ID.String()),
		zap.String("platform", click.GetPlatform()))
	return nil
}

// MarkClickConverted идемпотентно помечает клик как конверсию.
// Условный UPDATE: повторный вызов не находит строк и становится no-op.
func (s *PostgresStorage) MarkClickConverted(ctx context.Context, clickID uuid.UUID, value *float64) (bool, error) {
	updates := map[string]interface{}{"converted": true}
	if value != nil {
		updates["conversion_value"] = *value
	}

	result := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).
		Where("id = ? AND converted = ?", clickID, false).
		Updates(updates)
	if result.Error != nil {
		s.log.Error("failed to mark click converted", zap.String("click_id", clickID.String()), zap.Error(result.Error))
		return false, fmt.Errorf("failed to mark click converted: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Либо клик не существует, либо уже конвертирован
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).Where("id = ?", clickID).Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to check click existence: %w", err)
		}
		if count == 0 {
			return false, repository.ErrClickNotFound
		}
		return false, nil
	}

	s.log.Info("click marked as converted", zap.String("click_id", clickID.String()))
	return true, nil
}

// ListUnconvertedClicks возвращает кандидатов для эвристической атрибуции
func (s *PostgresStorage) ListUnconvertedClicks(ctx context.Context, platform string, projectID *uuid.UUID, since time.Time, limit int) ([]*domain.ClickEvent, error) {
	query := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).
		Where("converted = ? AND native_attempt_failed = ?", false, true).
		Where("platform = ?", platform).
		Where("clicked_at > ?", since)

	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	var clicks []*domain.ClickEvent
	err := query.Order("clicked_at DESC").Limit(limit).Find(&clicks).Error
	if err != nil {
		s.log.Error("failed to list unconverted clicks", zap.String("platform", platform), zap.Error(err))
		return nil, fmt.Errorf("failed to list unconverted clicks: %w", err)
	}

	return clicks, nil
}
