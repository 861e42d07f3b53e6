package memory

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestGetLinkByShortCode(t *testing.T) {
	storage := New()
	ctx := context.Background()

	link := &domain.Link{
		ID:          uuid.New(),
		ProjectID:   uuid.New(),
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
		IsActive:    true,
	}
	storage.AddLink(link)

	got, err := storage.GetLinkByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	_, err = storage.GetLinkByShortCode(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestGetLinkByShortCodeInactive(t *testing.T) {
	storage := New()

	storage.AddLink(&domain.Link{
		ID:        uuid.New(),
		ShortCode: "off",
		IsActive:  false,
	})

	_, err := storage.GetLinkByShortCode(context.Background(), "off")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestGetLinkByShortCodeExpired(t *testing.T) {
	storage := New()

	current := time.Now()
	storage.SetClock(func() time.Time { return current })

	expiresAt := current.Add(time.Minute)
	storage.AddLink(&domain.Link{
		ID:        uuid.New(),
		ShortCode: "soon",
		IsActive:  true,
		ExpiresAt: &expiresAt,
	})

	_, err := storage.GetLinkByShortCode(context.Background(), "soon")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = storage.GetLinkByShortCode(context.Background(), "soon")
	assert.ErrorIs(t, err, repository.ErrLinkExpired)
}

func TestGetProjectByHost(t *testing.T) {
	storage := New()
	ctx := context.Background()

	project := &domain.Project{
		ID:           uuid.New(),
		ProjectID:    "demo",
		CustomDomain: strPtr("links.example.com"),
	}
	storage.AddProject(project)

	got, err := storage.GetProjectByHost(ctx, "links.example.com")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)

	_, err = storage.GetProjectByHost(ctx, "other.example.com")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)
}

func TestGetReferralCodeUsability(t *testing.T) {
	storage := New()
	ctx := context.Background()

	maxUses := 2
	storage.AddReferralCode(&domain.ReferralCode{
		ID:          uuid.New(),
		ProjectID:   uuid.New(),
		Code:        "drained",
		IsActive:    true,
		MaxUses:     &maxUses,
		CurrentUses: 2,
	})
	storage.AddReferralCode(&domain.ReferralCode{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Code:      "fresh",
		IsActive:  true,
	})

	_, err := storage.GetReferralCode(ctx, "drained")
	assert.ErrorIs(t, err, repository.ErrReferralNotFound)

	got, err := storage.GetReferralCode(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Code)
}

func TestMarkClickConvertedIdempotent(t *testing.T) {
	storage := New()
	ctx := context.Background()

	click := &domain.ClickEvent{ID: uuid.New()}
	require.NoError(t, storage.SaveClick(ctx, click))

	value := 9.99
	flipped, err := storage.MarkClickConverted(ctx, click.ID, &value)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Повторный вызов — no-op, значение первого вызова сохраняется
	other := 100.0
	flipped, err = storage.MarkClickConverted(ctx, click.ID, &other)
	require.NoError(t, err)
	assert.False(t, flipped)

	got, ok := storage.GetClick(click.ID)
	require.True(t, ok)
	assert.True(t, got.Converted)
	assert.Equal(t, 9.99, *got.ConversionValue)
}

func TestMarkClickConvertedUnknownClick(t *testing.T) {
	storage := New()

	_, err := storage.MarkClickConverted(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, repository.ErrClickNotFound)
}

func TestListUnconvertedClicks(t *testing.T) {
	storage := New()
	ctx := context.Background()

	base := time.Now()
	projectA := uuid.New()
	projectB := uuid.New()
	android := strPtr("android")

	addClick := func(clickedAt time.Time, projectID uuid.UUID, failed, converted bool) uuid.UUID {
		click := &domain.ClickEvent{
			ID:                  uuid.New(),
			ProjectID:           &projectID,
			Platform:            android,
			NativeAttemptFailed: failed,
			Converted:           converted,
			ClickedAt:           clickedAt,
		}
		require.NoError(t, storage.SaveClick(ctx, click))
		return click.ID
	}

	oldest := addClick(base.Add(-40*time.Minute), projectA, true, false) // за окном
	middle := addClick(base.Add(-10*time.Minute), projectA, true, false)
	newest := addClick(base.Add(-time.Minute), projectA, true, false)
	addClick(base.Add(-2*time.Minute), projectA, false, false) // нативная передача удалась
	addClick(base.Add(-3*time.Minute), projectA, true, true)   // уже сконвертирован
	foreign := addClick(base.Add(-4*time.Minute), projectB, true, false)

	since := base.Add(-30 * time.Minute)

	clicks, err := storage.ListUnconvertedClicks(ctx, "android", &projectA, since, 100)
	require.NoError(t, err)
	require.Len(t, clicks, 2)

	// От новых к старым
	assert.Equal(t, newest, clicks[0].ID)
	assert.Equal(t, middle, clicks[1].ID)
	for _, click := range clicks {
		assert.NotEqual(t, oldest, click.ID)
		assert.NotEqual(t, foreign, click.ID)
	}

	// Без фильтра по проекту виден и чужой клик
	clicks, err = storage.ListUnconvertedClicks(ctx, "android", nil, since, 100)
	require.NoError(t, err)
	assert.Len(t, clicks, 3)

	// Лимит обрезает хвост, порядок сохраняется
	clicks, err = storage.ListUnconvertedClicks(ctx, "android", nil, since, 1)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	assert.Equal(t, newest, clicks[0].ID)
}
