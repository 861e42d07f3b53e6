package repository

import (
	"Synctra-Backend/internal/domain"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLinkNotFound     = errors.New("link not found")
	ErrLinkExpired      = errors.New("link expired")
	ErrProjectNotFound  = errors.New("project not found")
	ErrReferralNotFound = errors.New("referral code not found")
	ErrClickNotFound    = errors.New("click not found")
)

// Storage описывает доступ движка резолвинга к долговременному хранилищу.
// Ссылки, проекты и реферальные коды read-only; движок пишет только клики.
type Storage interface {
	// Link methods (read-only)
	GetLinkByShortCode(ctx context.Context, shortCode string) (*domain.Link, error)

	// Project methods (read-only)
	GetProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetProjectByHost(ctx context.Context, host string) (*domain.Project, error)

	// Referral code methods (read-only)
	GetReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error)

	// Click methods
	SaveClick(ctx context.Context, click *domain.ClickEvent) error
	// MarkClickConverted идемпотентно выставляет converted=true.
	// Возвращает true, если флаг был переключен этим вызовом.
	MarkClickConverted(ctx context.Context, clickID uuid.UUID, value *float64) (bool, error)
	// ListUnconvertedClicks возвращает неконвертированные клики с неудавшейся
	// нативной передачей для платформы (и опционально проекта), не старше since,
	// от новых к старым.
	ListUnconvertedClicks(ctx context.Context, platform string, projectID *uuid.UUID, since time.Time, limit int) ([]*domain.ClickEvent, error)
}
