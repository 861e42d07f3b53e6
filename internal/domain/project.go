package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project представляет конфигурацию приложения, владеющего ссылками.
// Движок резолвинга читает проект, но никогда не изменяет его.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ProjectID string    `gorm:"column:project_id;size:100;uniqueIndex;not null" json:"project_id"`
	Name      string    `gorm:"column:name;size:255;not null" json:"name"`

	CustomDomain *string `gorm:"column:custom_domain;size:255;index" json:"custom_domain,omitempty"`

	// Глобальная конфигурация приложения
	AndroidPackage     *string `gorm:"column:android_package;size:255" json:"android_package,omitempty"`
	IOSBundleID        *string `gorm:"column:ios_bundle_id;size:255" json:"ios_bundle_id,omitempty"`
	IOSAppStoreID      *string `gorm:"column:ios_app_store_id;size:50" json:"ios_app_store_id,omitempty"`
	CustomScheme       *string `gorm:"column:custom_scheme;size:100" json:"custom_scheme,omitempty"`
	AppURL             *string `gorm:"column:app_url;size:500" json:"app_url,omitempty"`
	AndroidFallbackURL *string `gorm:"column:android_fallback_url;size:500" json:"android_fallback_url,omitempty"`
	IOSFallbackURL     *string `gorm:"column:ios_fallback_url;size:500" json:"ios_fallback_url,omitempty"`
	DesktopFallbackURL *string `gorm:"column:desktop_fallback_url;size:500" json:"desktop_fallback_url,omitempty"`

	// Документы верификации домена, отдаются как есть по /.well-known/
	AssetLinksJSON          *string `gorm:"column:assetlinks_json;type:jsonb" json:"assetlinks_json,omitempty"`
	AppleAppSiteAssociation *string `gorm:"column:apple_app_site_association;type:jsonb" json:"apple_app_site_association,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName возвращает название таблицы для GORM
func (Project) TableName() string {
	return "projects"
}
