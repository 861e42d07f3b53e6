package database

import (
	"Synctra-Backend/internal/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate выполняет автоматические миграции для всех доменных моделей
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	// Порядок миграций важен из-за внешних ключей
	models := []interface{}{
		&domain.Project{},      // Сначала проекты
		&domain.Link{},         // Ссылки (зависят от проектов)
		&domain.ReferralCode{}, // Реферальные коды (зависят от проектов)
		&domain.ClickEvent{},   // Клики (зависят от ссылок)
	}

	for i, model := range models {
		modelName := fmt.Sprintf("%T", model)
		log.Info("migrating model",
			zap.String("model", modelName),
			zap.Int("step", i+1),
			zap.Int("total", len(models)))

		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
	}

	log.Info("database auto-migration completed successfully", zap.Int("migrated_models", len(models)))
	return nil
}

// SeedData заполняет базу данных демонстрационными данными
func SeedData(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database seeding")

	// Проверяем, есть ли уже данные
	var count int64
	db.Model(&domain.Project{}).Count(&count)
	if count > 0 {
		log.Info("projects already exist, skipping seeding", zap.Int64("existing_count", count))
		return nil
	}

	project := domain.Project{
		ID:                      uuid.New(),
		ProjectID:               "demo_2025",
		Name:                    "Demo Project",
		CustomDomain:            toStr("links.example.com"),
		AndroidPackage:          toStr("com.example.demo"),
		IOSBundleID:             toStr("com.example.demo.ios"),
		IOSAppStoreID:           toStr("123456789"),
		CustomScheme:            toStr("demoapp://"),
		AppURL:                  toStr("https://example.com/app"),
		AndroidFallbackURL:      toStr("https://play.google.com/store/apps/details?id=com.example.demo"),
		IOSFallbackURL:          toStr("https://apps.apple.com/app/id123456789"),
		AssetLinksJSON:          toStr(`[{"relation":["delegate_permission/common.handle_all_urls"],"target":{"namespace":"android_app","package_name":"com.example.demo","sha256_cert_fingerprints":["00:00"]}}]`),
		AppleAppSiteAssociation: toStr(`{"applinks":{"apps":[],"details":[{"appID":"TEAM.com.example.demo.ios","paths":["*"]}]}}`),
	}

	if err := db.Create(&project).Error; err != nil {
		log.Error("failed to seed project", zap.Error(err))
		return fmt.Errorf("failed to seed project: %w", err)
	}

	expires := time.Now().AddDate(1, 0, 0)
	links := []domain.Link{
		{
			ID:                 uuid.New(),
			ProjectID:          project.ID,
			ShortCode:          "demo01",
			OriginalURL:        "https://example.com/welcome",
			Title:              toStr("Welcome"),
			AndroidPackage:     project.AndroidPackage,
			AndroidFallbackURL: project.AndroidFallbackURL,
			IOSBundleID:        project.IOSBundleID,
			IOSFallbackURL:     project.IOSFallbackURL,
			UTMSource:          toStr("seed"),
			UTMCampaign:        toStr("demo"),
			LinkType:           domain.LinkTypeStandard,
			ExpiresAt:          &expires,
			IsActive:           true,
		},
	}

	if err := db.Create(&links).Error; err != nil {
		log.Error("failed to seed links", zap.Error(err))
		return fmt.Errorf("failed to seed links: %w", err)
	}

	log.Info("database seeding completed", zap.Int("links", len(links)))
	return nil
}

func toStr(val string) *string {
	return &val
}
