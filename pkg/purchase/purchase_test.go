package purchase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/replykit/pkg/purchase"
)

func TestRecord_DedupKey(t *testing.T) {
	t.Parallel()

	withSession := purchase.Record{ID: "rec-1", SessionID: "cs_123"}
	assert.Equal(t, "cs_123", withSession.DedupKey())

	withoutSession := purchase.Record{ID: "rec-2"}
	assert.Equal(t, "rec-2", withoutSession.DedupKey())
}

func TestRecord_EffectiveTime(t *testing.T) {
	t.Parallel()

	purchased := time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	created := time.Date(2026, time.January, 6, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, purchased, purchase.Record{PurchasedAt: purchased, CreatedAt: created}.EffectiveTime())
	assert.Equal(t, created, purchase.Record{CreatedAt: created}.EffectiveTime())
}

func TestDedup(t *testing.T) {
	t.Parallel()

	t.Run("first occurrence wins", func(t *testing.T) {
		t.Parallel()
		records := []purchase.Record{
			{ID: "a", SessionID: "cs_1", ItemID: "topics_pack"},
			{ID: "b", SessionID: "cs_1", ItemID: "stale_copy"},
			{ID: "c", SessionID: "cs_2"},
		}

		out := purchase.Dedup(records)

		assert.Len(t, out, 2)
		assert.Equal(t, "a", out[0].ID)
		assert.Equal(t, "topics_pack", out[0].ItemID)
		assert.Equal(t, "c", out[1].ID)
	})

	t.Run("records without session ids dedup by record id", func(t *testing.T) {
		t.Parallel()
		records := []purchase.Record{
			{ID: "a"},
			{ID: "a"},
			{ID: "b"},
		}

		out := purchase.Dedup(records)
		assert.Len(t, out, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, purchase.Dedup(nil))
	})
}

func TestSortByTimeDesc(t *testing.T) {
	t.Parallel()

	old := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	records := []purchase.Record{
		{ID: "mid", PurchasedAt: mid},
		{ID: "recent", CreatedAt: recent}, // falls back to CreatedAt
		{ID: "old", PurchasedAt: old},
	}

	purchase.SortByTimeDesc(records)

	assert.Equal(t, "recent", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	assert.Equal(t, "old", records[2].ID)
}
