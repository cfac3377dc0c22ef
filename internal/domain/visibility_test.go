package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"duochat/internal/domain"
)

func msgAt(id int64, at time.Time) *domain.Message {
	return &domain.Message{ID: id, CreatedAt: at}
}

func TestVisibleAfter(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []*domain.Message{
		msgAt(1, base),
		msgAt(2, base.Add(time.Minute)),
		msgAt(3, base.Add(2*time.Minute)),
	}

	t.Run("NoWatermark", func(t *testing.T) {
		visible := domain.VisibleAfter(msgs, nil)
		assert.Len(t, visible, 3)
	})

	t.Run("WatermarkInMiddle", func(t *testing.T) {
		wm := base.Add(time.Minute)
		visible := domain.VisibleAfter(msgs, &wm)
		assert.Len(t, visible, 1)
		assert.Equal(t, int64(3), visible[0].ID)
	})

	t.Run("WatermarkEqualToTimestampExcludes", func(t *testing.T) {
		// A message created exactly at the watermark is not newer than it.
		wm := base.Add(2 * time.Minute)
		visible := domain.VisibleAfter(msgs, &wm)
		assert.Empty(t, visible)
	})

	t.Run("WatermarkBeforeAll", func(t *testing.T) {
		wm := base.Add(-time.Hour)
		visible := domain.VisibleAfter(msgs, &wm)
		assert.Len(t, visible, 3)
	})

	t.Run("SubSecondPrecision", func(t *testing.T) {
		wm := base.Add(-time.Millisecond)
		visible := domain.VisibleAfter(msgs, &wm)
		assert.Len(t, visible, 3)

		wm = base.Add(time.Millisecond)
		visible = domain.VisibleAfter(msgs, &wm)
		assert.Len(t, visible, 2)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		wm := base
		assert.Empty(t, domain.VisibleAfter(nil, &wm))
		assert.Empty(t, domain.VisibleAfter(nil, nil))
	})
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "3:7", domain.PairKey(3, 7))
	assert.Equal(t, "3:7", domain.PairKey(7, 3))
	assert.NotEqual(t, domain.PairKey(1, 23), domain.PairKey(12, 3))
}

func TestMessageOwnedBy(t *testing.T) {
	m := &domain.Message{ID: 7, SenderID: 42}
	assert.True(t, m.OwnedBy(42))
	assert.False(t, m.OwnedBy(43))
}
