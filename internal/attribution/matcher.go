package attribution

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoMatch возвращается, когда ни один недавний клик не подошел под сигнатуру
var ErrNoMatch = errors.New("no matching click event")

// Signature слабая сигнатура устройства: заявленная платформа и,
// опционально, проект. Ничего детерминированного в ней нет.
type Signature struct {
	Platform  string
	ProjectID *uuid.UUID
}

// Matcher коррелирует post-install сигнал с недавним кликом, когда tracking id
// не пережил установку (store в браузере, без app-side storage). Механизм
// заведомо вероятностный: побеждает самый свежий подходящий клик, ложные
// срабатывания в обе стороны ожидаемы и допустимы. Окно давности ограничивает
// стоимость скана и риск ложных совпадений.
type Matcher struct {
	storage   repository.Storage
	window    time.Duration
	scanLimit int
	log       *zap.Logger
	now       func() time.Time
}

// NewMatcher создает матчер с явным окном давности
func NewMatcher(storage repository.Storage, window time.Duration, scanLimit int, log *zap.Logger) *Matcher {
	return &Matcher{
		storage:   storage,
		window:    window,
		scanLimit: scanLimit,
		log:       log,
		now:       time.Now,
	}
}

// SetClock подменяет источник времени (для тестов)
func (m *Matcher) SetClock(now func() time.Time) {
	m.now = now
}

// Match сканирует недавние неконвертированные клики с неудавшейся нативной
// передачей для той же платформы (и проекта, если задан), от новых к старым,
// и возвращает первый подходящий.
func (m *Matcher) Match(ctx context.Context, sig Signature) (*domain.ClickEvent, error) {
	if sig.Platform == "" {
		return nil, ErrNoMatch
	}

	since := m.now().Add(-m.window)
	clicks, err := m.storage.ListUnconvertedClicks(ctx, sig.Platform, sig.ProjectID, since, m.scanLimit)
	if err != nil {
		return nil, err
	}
	if len(clicks) == 0 {
		return nil, ErrNoMatch
	}

	match := clicks[0]
	m.log.Info("attributed post-install signal to click (heuristic)",
		zap.String("click_id", match.ID.String()),
		zap.String("platform", sig.Platform),
		zap.Duration("window", m.window))
	return match, nil
}
