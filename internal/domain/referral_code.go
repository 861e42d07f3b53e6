package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralCode представляет отдельный реферальный код проекта.
// Короткий код, не совпавший ни с одной ссылкой, может совпасть с ним.
type ReferralCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;column:project_id;not null;index:idx_referral_project" json:"project_id"`
	Code      string    `gorm:"column:code;size:50;uniqueIndex:idx_referral_code;not null" json:"code"`

	MaxUses     *int `gorm:"column:max_uses" json:"max_uses,omitempty"`
	CurrentUses int  `gorm:"column:current_uses;not null;default:0" json:"current_uses"`

	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (ReferralCode) TableName() string {
	return "referral_codes"
}

// IsUsable проверяет, что код активен, не истек и не исчерпал лимит использований
func (r *ReferralCode) IsUsable(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return false
	}
	if r.MaxUses != nil && r.CurrentUses >= *r.MaxUses {
		return false
	}
	return true
}
