package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"github.com/mnemolab/revise/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConflictStore struct {
	items       map[uuid.UUID]*domain.ConflictQueueItem
	resolutions []domain.ContradictionResolution
}

func newMockConflictStore() *mockConflictStore {
	return &mockConflictStore{items: make(map[uuid.UUID]*domain.ConflictQueueItem)}
}

func (m *mockConflictStore) Insert(ctx context.Context, item *domain.ConflictQueueItem) error {
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockConflictStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.ConflictQueueItem, error) {
	item, ok := m.items[id]
	if !ok || item.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *mockConflictStore) pending(tenantID uuid.UUID) []domain.ConflictQueueItem {
	var out []domain.ConflictQueueItem
	for _, item := range m.items {
		if item.TenantID == tenantID && item.Status == domain.StatusPending {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *mockConflictStore) ListPending(ctx context.Context, tenantID uuid.UUID) ([]domain.ConflictQueueItem, error) {
	return m.pending(tenantID), nil
}

func (m *mockConflictStore) CountPending(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return len(m.pending(tenantID)), nil
}

func (m *mockConflictStore) OldestPending(ctx context.Context, tenantID uuid.UUID) (*domain.ConflictQueueItem, error) {
	pending := m.pending(tenantID)
	if len(pending) == 0 {
		return nil, store.ErrNotFound
	}
	return &pending[0], nil
}

func (m *mockConflictStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.QueueItemStatus) error {
	item, ok := m.items[id]
	if !ok || item.Status != domain.StatusPending {
		return store.ErrNotFound
	}
	item.Status = status
	return nil
}

func (m *mockConflictStore) CreateResolution(ctx context.Context, r *domain.ContradictionResolution) error {
	m.resolutions = append(m.resolutions, *r)
	return nil
}

func (m *mockConflictStore) CountResolvedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	count := 0
	for _, r := range m.resolutions {
		item, ok := m.items[r.ItemID]
		if ok && item.TenantID == tenantID && !r.ResolvedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func newQueueService(cs *mockConflictStore) *QueueService {
	return NewQueueService(DefaultQueueConfig(), cs, zap.NewNop())
}

func testItem(tenantID uuid.UUID) *domain.ConflictQueueItem {
	return &domain.ConflictQueueItem{
		TenantID:     tenantID,
		NodeID:       uuid.New(),
		NewContent:   "Sarah moved to Seattle",
		ConflictType: domain.ConflictAmbiguous,
		FoundByTier:  domain.TierPattern,
		Confidence:   0.55,
	}
}

func TestEnqueue_FillsFields(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	item := testItem(tenantID)
	evicted, err := svc.Enqueue(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, evicted)
	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, domain.StatusPending, item.Status)
	assert.Equal(t, item.CreatedAt.Add(14*24*time.Hour), item.ExpiresAt)
}

func TestEnqueue_EvictsOldestAtCapacity(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	// Fill to capacity with strictly increasing creation times.
	base := time.Now().Add(-time.Hour)
	var firstID uuid.UUID
	for i := 0; i < 20; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return created }
		item := testItem(tenantID)
		_, err := svc.Enqueue(context.Background(), item)
		require.NoError(t, err)
		if i == 0 {
			firstID = item.ID
		}
	}
	svc.now = time.Now

	item := testItem(tenantID)
	evicted, err := svc.Enqueue(context.Background(), item)
	require.NoError(t, err)

	require.Len(t, evicted, 1)
	assert.Equal(t, firstID, evicted[0].ItemID)
	assert.Equal(t, domain.ResolvedByAuto, evicted[0].ResolvedBy)
	assert.Equal(t, domain.ChoiceKeepBoth, evicted[0].Choice)
	assert.Equal(t, domain.StatusAutoResolved, cs.items[firstID].Status)

	count, _ := cs.CountPending(context.Background(), tenantID)
	assert.Equal(t, 20, count)
}

func TestResolve(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	item := testItem(tenantID)
	_, err := svc.Enqueue(context.Background(), item)
	require.NoError(t, err)

	res, err := svc.Resolve(context.Background(), tenantID, item.ID, domain.ChoiceNewIsCurrent, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedByUser, res.ResolvedBy)
	assert.Equal(t, domain.ChoiceNewIsCurrent, res.Choice)
	assert.Equal(t, domain.StatusResolved, cs.items[item.ID].Status)

	// Resolved items are immutable.
	_, err = svc.Resolve(context.Background(), tenantID, item.ID, domain.ChoiceKeepBoth, "")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// Missing items surface the store sentinel.
	_, err = svc.Resolve(context.Background(), tenantID, uuid.New(), domain.ChoiceKeepBoth, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolve_MergeRequiresContent(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	item := testItem(tenantID)
	_, err := svc.Enqueue(context.Background(), item)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), tenantID, item.ID, domain.ChoiceMerge, "")
	require.Error(t, err)

	res, err := svc.Resolve(context.Background(), tenantID, item.ID, domain.ChoiceMerge, "Sarah lived in Portland until 2026, now Seattle")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MergedContent)
}

func TestProcessExpired(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	// One expired, one fresh.
	old := time.Now().Add(-15 * 24 * time.Hour)
	svc.now = func() time.Time { return old }
	expired := testItem(tenantID)
	_, err := svc.Enqueue(context.Background(), expired)
	require.NoError(t, err)

	svc.now = time.Now
	fresh := testItem(tenantID)
	_, err = svc.Enqueue(context.Background(), fresh)
	require.NoError(t, err)

	resolved, err := svc.ProcessExpired(context.Background(), tenantID)
	require.NoError(t, err)

	require.Len(t, resolved, 1)
	assert.Equal(t, expired.ID, resolved[0].ItemID)
	assert.Equal(t, domain.ResolvedByTimeout, resolved[0].ResolvedBy)
	assert.Equal(t, domain.ChoiceKeepBoth, resolved[0].Choice)
	assert.Equal(t, domain.StatusAutoResolved, cs.items[expired.ID].Status)
	assert.Equal(t, domain.StatusPending, cs.items[fresh.ID].Status)
}

func TestSuggestResolution(t *testing.T) {
	svc := newQueueService(newMockConflictStore())

	tests := []struct {
		confidence float64
		want       *domain.ResolutionChoice
	}{
		{0.9, choicePtr(domain.ChoiceNewIsCurrent)},
		{0.7, choicePtr(domain.ChoiceNewIsCurrent)},
		{0.55, nil},
		{0.4, nil},
		{0.39, choicePtr(domain.ChoiceKeepBoth)},
		{0.1, choicePtr(domain.ChoiceKeepBoth)},
	}
	for _, tt := range tests {
		got := svc.SuggestResolution(tt.confidence)
		if tt.want == nil {
			assert.Nil(t, got, "confidence %v", tt.confidence)
		} else {
			require.NotNil(t, got, "confidence %v", tt.confidence)
			assert.Equal(t, *tt.want, *got, "confidence %v", tt.confidence)
		}
	}
}

func choicePtr(c domain.ResolutionChoice) *domain.ResolutionChoice { return &c }

func TestQueueStatus(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	status, err := svc.Status(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.PendingCount)
	assert.False(t, status.AtCapacity)
	assert.Nil(t, status.OldestPendingAt)

	first := testItem(tenantID)
	_, err = svc.Enqueue(context.Background(), first)
	require.NoError(t, err)
	second := testItem(tenantID)
	_, err = svc.Enqueue(context.Background(), second)
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.PendingCount)
	require.NotNil(t, status.OldestPendingAt)
	require.NotNil(t, status.NextAutoResolveAt)
}

func TestShouldPrompt(t *testing.T) {
	cs := newMockConflictStore()
	svc := newQueueService(cs)
	tenantID := uuid.New()

	today := time.Now().Weekday()
	otherDay := (today + 1) % 7

	// Empty queue never prompts, even on the right day.
	due, err := svc.ShouldPrompt(context.Background(), tenantID, today)
	require.NoError(t, err)
	assert.False(t, due)

	_, err = svc.Enqueue(context.Background(), testItem(tenantID))
	require.NoError(t, err)

	due, err = svc.ShouldPrompt(context.Background(), tenantID, today)
	require.NoError(t, err)
	assert.True(t, due)

	due, err = svc.ShouldPrompt(context.Background(), tenantID, otherDay)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(store.ErrNotFound))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}
