package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClickEvent представляет клик по короткой ссылке
type ClickEvent struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	LinkID         *uuid.UUID `gorm:"type:uuid;column:link_id;index:idx_click_link" json:"link_id,omitempty"`
	ReferralCodeID *uuid.UUID `gorm:"type:uuid;column:referral_code_id;index" json:"referral_code_id,omitempty"`
	ProjectID      *uuid.UUID `gorm:"type:uuid;column:project_id;index" json:"project_id,omitempty"`

	// Информация о запросе
	IPAddress *string `gorm:"column:ip_address;type:inet" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer   *string `gorm:"column:referer;size:500" json:"referer,omitempty"`

	// Геолокация
	Country *string `gorm:"column:country;size:2" json:"country,omitempty"`
	Region  *string `gorm:"column:region;size:100" json:"region,omitempty"`
	City    *string `gorm:"column:city;size:100" json:"city,omitempty"`

	// Детекция платформы
	Platform   *string `gorm:"column:platform;size:50;index:idx_click_platform" json:"platform,omitempty"`
	DeviceType *string `gorm:"column:device_type;size:50" json:"device_type,omitempty"`
	Browser    *string `gorm:"column:browser;size:100" json:"browser,omitempty"`
	OS         *string `gorm:"column:os;size:100" json:"os,omitempty"`

	// Tracking конверсии: converted выставляется ровно один раз,
	// либо при consume отложенного контекста, либо эвристическим матчером
	Converted       bool     `gorm:"column:converted;not null;default:false" json:"converted"`
	ConversionValue *float64 `gorm:"column:conversion_value;type:decimal(10,2)" json:"conversion_value,omitempty"`

	// true, когда резолвер решил, что приложение не установлено,
	// и открыл отложенный контекст вместо прямой передачи в приложение
	NativeAttemptFailed bool `gorm:"column:native_attempt_failed;not null;default:false" json:"native_attempt_failed"`

	ClickedAt time.Time `gorm:"column:clicked_at;autoCreateTime;index:idx_click_date" json:"clicked_at"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (ClickEvent) TableName() string {
	return "link_clicks"
}

// GetPlatform возвращает платформу клика
func (c *ClickEvent) GetPlatform() string {
	if c.Platform != nil {
		return *c.Platform
	}
	return "unknown"
}
