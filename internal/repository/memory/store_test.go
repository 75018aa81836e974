package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txID(s string) *string { return &s }

func TestSubscriberRepository_UnknownIsInactive(t *testing.T) {
	repo := NewSubscriberRepository()

	sub, err := repo.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusInactive, sub.Status)
	assert.Nil(t, sub.ExpiresAt)
	assert.Equal(t, int64(999), sub.ID)
}

func TestSubscriberRepository_ActivateReplacesExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	require.NoError(t, repo.Activate(ctx, 1, first))
	require.NoError(t, repo.Activate(ctx, 1, second))

	sub, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.True(t, second.Equal(*sub.ExpiresAt))
}

func TestSubscriberRepository_DeactivateClearsExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()

	require.NoError(t, repo.Activate(ctx, 5, time.Now().Add(time.Hour)))
	require.NoError(t, repo.Deactivate(ctx, 5))

	sub, err := repo.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusInactive, sub.Status)
	assert.Nil(t, sub.ExpiresAt)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSubscriberRepository_DeactivateExpiredChecksExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Activate(ctx, 1, asOf.Add(-time.Second)))
	require.NoError(t, repo.Activate(ctx, 2, asOf.Add(time.Hour)))

	expired, err := repo.DeactivateExpired(ctx, 1, asOf)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = repo.DeactivateExpired(ctx, 2, asOf)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.DeactivateExpired(ctx, 1, asOf)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.DeactivateExpired(ctx, 77, asOf)
	require.NoError(t, err)
	assert.False(t, expired)

	gone, _ := repo.Get(ctx, 1)
	assert.Equal(t, domain.SubscriptionStatusInactive, gone.Status)
	assert.Nil(t, gone.ExpiresAt)
	kept, _ := repo.Get(ctx, 2)
	assert.True(t, kept.IsActive())
}

func TestSubscriberRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.Activate(ctx, 3, exp))

	sub, _ := repo.Get(ctx, 3)
	*sub.ExpiresAt = time.Time{}

	again, _ := repo.Get(ctx, 3)
	assert.True(t, exp.Equal(*again.ExpiresAt))
}

func TestSubscriberRepository_ListActiveSorted(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()
	exp := time.Now().Add(time.Hour)
	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, repo.Activate(ctx, id, exp))
	}
	require.NoError(t, repo.Deactivate(ctx, 40))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{active[0].ID, active[1].ID, active[2].ID})
}

func TestSubscriberRepository_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = repo.Activate(ctx, 1, exp)
			} else {
				_ = repo.Deactivate(ctx, 1)
			}
		}(i)
	}
	wg.Wait()

	sub, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	if sub.Status == domain.SubscriptionStatusActive {
		assert.NotNil(t, sub.ExpiresAt)
	} else {
		assert.Nil(t, sub.ExpiresAt)
	}
}

func TestChargeRepository_RecordAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewChargeRepository()

	a, err := repo.Record(ctx, domain.ChargeRecord{SubscriberID: 1, ExternalTxID: txID("tx1")})
	require.NoError(t, err)
	b, err := repo.Record(ctx, domain.ChargeRecord{SubscriberID: 1})
	require.NoError(t, err)

	assert.Less(t, a.ID, b.ID)
	assert.Equal(t, domain.ChargeStatusPending, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Nil(t, b.ExternalTxID)
}

func TestChargeRepository_UpdateStatusTouchesLatestOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewChargeRepository()

	_, _ = repo.Record(ctx, domain.ChargeRecord{SubscriberID: 1, ExternalTxID: txID("dup")})
	_, _ = repo.Record(ctx, domain.ChargeRecord{SubscriberID: 2, ExternalTxID: txID("dup")})

	ok, err := repo.UpdateStatus(ctx, "dup", "paid")
	require.NoError(t, err)
	assert.True(t, ok)

	first, _ := repo.ListBySubscriber(ctx, 1, 0)
	second, _ := repo.ListBySubscriber(ctx, 2, 0)
	assert.Equal(t, domain.ChargeStatusPending, first[0].Status)
	assert.Equal(t, "paid", second[0].Status)

	id, found, err := repo.FindSubscriberByExternalTxID(ctx, "dup")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), id)
}

func TestChargeRepository_UnknownTxID(t *testing.T) {
	ctx := context.Background()
	repo := NewChargeRepository()
	_, _ = repo.Record(ctx, domain.ChargeRecord{SubscriberID: 1})

	ok, err := repo.UpdateStatus(ctx, "missing", "paid")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateStatus(ctx, "", "paid")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := repo.FindSubscriberByExternalTxID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestChargeRepository_ListBySubscriberNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewChargeRepository()
	for i := 0; i < 4; i++ {
		_, _ = repo.Record(ctx, domain.ChargeRecord{SubscriberID: 9})
	}
	_, _ = repo.Record(ctx, domain.ChargeRecord{SubscriberID: 8})

	recs, err := repo.ListBySubscriber(ctx, 9, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(4), recs[0].ID)
	assert.Equal(t, int64(3), recs[1].ID)
}

func TestNotificationMarker_MarkOnce(t *testing.T) {
	ctx := context.Background()
	m := NewNotificationMarker(time.Hour)
	now := time.Now()
	m.now = func() time.Time { return now }

	first, err := m.MarkOnce(ctx, "tx1")
	require.NoError(t, err)
	second, _ := m.MarkOnce(ctx, "tx1")
	other, _ := m.MarkOnce(ctx, "tx2")

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)

	now = now.Add(2 * time.Hour)
	again, _ := m.MarkOnce(ctx, "tx1")
	assert.True(t, again)
}

func TestNotificationMarker_Release(t *testing.T) {
	ctx := context.Background()
	m := NewNotificationMarker(time.Hour)

	first, _ := m.MarkOnce(ctx, "tx1")
	require.NoError(t, m.Release(ctx, "tx1"))
	again, _ := m.MarkOnce(ctx, "tx1")
	blocked, _ := m.MarkOnce(ctx, "tx1")

	assert.True(t, first)
	assert.True(t, again)
	assert.False(t, blocked)
	require.NoError(t, m.Release(ctx, "never-marked"))
}

func TestNotificationMarker_PrunesExpiredMarks(t *testing.T) {
	ctx := context.Background()
	m := NewNotificationMarker(time.Hour)
	now := time.Now()
	m.now = func() time.Time { return now }

	for i := 0; i < minPruneSize-1; i++ {
		_, _ = m.MarkOnce(ctx, fmt.Sprintf("old-%d", i))
	}
	require.Len(t, m.marked, minPruneSize-1)

	now = now.Add(2 * time.Hour)
	fresh, _ := m.MarkOnce(ctx, "fresh")

	assert.True(t, fresh)
	assert.Len(t, m.marked, 1)
	assert.Contains(t, m.marked, "fresh")
	assert.Equal(t, minPruneSize, m.pruneAt)
}

func TestNotificationMarker_PruneKeepsLiveMarks(t *testing.T) {
	ctx := context.Background()
	m := NewNotificationMarker(time.Hour)

	for i := 0; i < minPruneSize; i++ {
		_, _ = m.MarkOnce(ctx, fmt.Sprintf("tx-%d", i))
	}

	assert.Len(t, m.marked, minPruneSize)
	assert.Equal(t, 2*minPruneSize, m.pruneAt)
	dup, _ := m.MarkOnce(ctx, "tx-0")
	assert.False(t, dup)
}
