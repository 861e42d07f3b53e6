package domain

import (
	"time"

	"github.com/google/uuid"
)

// Link types.
const (
	LinkTypeStandard = "standard"
	LinkTypeReferral = "referral"
)

// Link представляет динамическую ссылку с платформо-зависимой конфигурацией
type Link struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_link_project" json:"project_id"`
	ShortCode string    `gorm:"column:short_code;size:20;uniqueIndex:idx_link_short_code;not null" json:"short_code"`

	OriginalURL string  `gorm:"column:original_url;type:text;not null" json:"original_url"`
	Title       *string `gorm:"column:title;size:255" json:"title,omitempty"`
	Description *string `gorm:"column:description;type:text" json:"description,omitempty"`

	// Deeplink configuration (link-level overrides; project supplies defaults)
	AndroidPackage     *string `gorm:"column:android_package;size:255" json:"android_package,omitempty"`
	AndroidFallbackURL *string `gorm:"column:android_fallback_url;type:text" json:"android_fallback_url,omitempty"`
	IOSBundleID        *string `gorm:"column:ios_bundle_id;size:255" json:"ios_bundle_id,omitempty"`
	IOSFallbackURL     *string `gorm:"column:ios_fallback_url;type:text" json:"ios_fallback_url,omitempty"`
	DesktopFallbackURL *string `gorm:"column:desktop_fallback_url;type:text" json:"desktop_fallback_url,omitempty"`

	// UTM parameters appended to the destination at resolution time
	UTMSource   *string `gorm:"column:utm_source;size:100" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"column:utm_medium;size:100" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"column:utm_campaign;size:100" json:"utm_campaign,omitempty"`
	UTMTerm     *string `gorm:"column:utm_term;size:100" json:"utm_term,omitempty"`
	UTMContent  *string `gorm:"column:utm_content;size:100" json:"utm_content,omitempty"`

	LinkType  string     `gorm:"column:link_type;size:50;default:standard" json:"link_type"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "dynamic_links"
}

// IsExpired проверяет срок действия ссылки относительно переданного момента
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// UTMParams собирает непустые UTM-параметры ссылки
func (l *Link) UTMParams() map[string]string {
	params := make(map[string]string, 5)
	set := func(key string, value *string) {
		if value != nil && *value != "" {
			params[key] = *value
		}
	}
	set("utm_source", l.UTMSource)
	set("utm_medium", l.UTMMedium)
	set("utm_campaign", l.UTMCampaign)
	set("utm_term", l.UTMTerm)
	set("utm_content", l.UTMContent)
	return params
}
