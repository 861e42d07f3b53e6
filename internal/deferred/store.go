package deferred

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrContextNotFound возвращается, когда контекст отсутствует, истек
// или уже был потреблен.
var ErrContextNotFound = errors.New("deferred context not found")

// Context снимок клика, переживающий установку приложения.
// Создается резолвером, читается ровно один раз post-install коллбеком.
type Context struct {
	LinkID    uuid.UUID `json:"link_id"`
	ShortCode string    `json:"short_code"`
	// DestinationURL — итоговый URL назначения с уже добавленными UTM
	DestinationURL string            `json:"original_url"`
	ClickID        uuid.UUID         `json:"click_id"`
	ProjectID      uuid.UUID         `json:"project_id"`
	Platform       string            `json:"platform"`
	DeviceType     string            `json:"device_type"`
	Country        *string           `json:"country,omitempty"`
	UTMParams      map[string]string `json:"utm_params,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Store хранит отложенные контексты под случайным tracking-идентификатором.
// Единственный жесткий инвариант — at-most-once у Consume: при конкурентных
// вызовах снимок получает ровно один вызывающий.
type Store interface {
	// Create генерирует свежий tracking id и записывает снимок с TTL
	Create(ctx context.Context, snapshot *Context) (string, error)
	// Peek неразрушающее чтение (для polling/status)
	Peek(ctx context.Context, trackingID string) (*Context, error)
	// Consume атомарное чтение-с-удалением
	Consume(ctx context.Context, trackingID string) (*Context, error)
}
