package memory

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStorage потокобезопасная in-memory реализация Storage для тестов и локальных запусков
type MemStorage struct {
	mu              sync.RWMutex
	linksByCode     map[string]*domain.Link
	projectsByID    map[uuid.UUID]*domain.Project
	referralsByCode map[string]*domain.ReferralCode
	clicks          map[uuid.UUID]*domain.ClickEvent

	// now подменяется в тестах для детерминированной проверки expiry
	now func() time.Time
}

func New() *MemStorage {
	return &MemStorage{
		linksByCode:     make(map[string]*domain.Link),
		projectsByID:    make(map[uuid.UUID]*domain.Project),
		referralsByCode: make(map[string]*domain.ReferralCode),
		clicks:          make(map[uuid.UUID]*domain.ClickEvent),
		now:             time.Now,
	}
}

// SetClock подменяет источник времени (для тестов)
func (s *MemStorage) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- Seed helpers (хранилище read-only для движка, данные заводятся напрямую) ---

func (s *MemStorage) AddLink(link *domain.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linksByCode[link.ShortCode] = link
}

func (s *MemStorage) AddProject(project *domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectsByID[project.ID] = project
}

func (s *MemStorage) AddReferralCode(code *domain.ReferralCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referralsByCode[code.Code] = code
}

// GetClick возвращает записанный клик (для проверок в тестах)
func (s *MemStorage) GetClick(id uuid.UUID) (*domain.ClickEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	click, ok := s.clicks[id]
	return click, ok
}

// --- Link Methods ---

func (s *MemStorage) GetLinkByShortCode(_ context.Context, shortCode string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.linksByCode[shortCode]
	if !ok || !link.IsActive {
		return nil, repository.ErrLinkNotFound
	}
	if link.IsExpired(s.now()) {
		return nil, repository.ErrLinkExpired
	}
	return link, nil
}

// --- Project Methods ---

func (s *MemStorage) GetProjectByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projectsByID[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	return project, nil
}

func (s *MemStorage) GetProjectByHost(_ context.Context, host string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, project := range s.projectsByID {
		if project.CustomDomain != nil && *project.CustomDomain == host {
			return project, nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

// --- Referral Code Methods ---

func (s *MemStorage) GetReferralCode(_ context.Context, code string) (*domain.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	referral, ok := s.referralsByCode[code]
	if !ok || !referral.IsUsable(s.now()) {
		return nil, repository.ErrReferralNotFound
	}
	return referral, nil
}

// --- Click Methods ---

func (s *MemStorage) SaveClick(_ context.Context, click *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if click.ClickedAt.IsZero() {
		click.ClickedAt = s.now()
	}
	s.clicks[click.ID] = click
	return nil
}

func (s *MemStorage) MarkClickConverted(_ context.Context, clickID uuid.UUID, value *float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	click, ok := s.clicks[clickID]
	if !ok {
		return false, repository.ErrClickNotFound
	}
	if click.Converted {
		return false, nil
	}

	click.Converted = true
	if value != nil {
		click.ConversionValue = value
	}
	return true, nil
}

func (s *MemStorage) ListUnconvertedClicks(_ context.Context, platform string, projectID *uuid.UUID, since time.Time, limit int) ([]*domain.ClickEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.ClickEvent
	for _, click := range s.clicks {
		if click.Converted || !click.NativeAttemptFailed {
			continue
		}
		if click.GetPlatform() != platform {
			continue
		}
		if !click.ClickedAt.After(since) {
			continue
		}
		if projectID != nil && (click.ProjectID == nil || *click.ProjectID != *projectID) {
			continue
		}
		matched = append(matched, click)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ClickedAt.After(matched[j].ClickedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
