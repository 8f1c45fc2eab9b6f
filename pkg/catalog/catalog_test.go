package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/replykit/pkg/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.Config{
		FirstMessagePriceID:   "price_first",
		ToneShiftPriceID:      "price_tone",
		InvitationPriceID:     "price_invite",
		TopicsPriceID:         "price_topics",
		PremiumMonthlyPriceID: "price_premium",
	})
}

func TestCatalog_ItemForPrice(t *testing.T) {
	t.Parallel()

	c := testCatalog()

	t.Run("exact price id resolves", func(t *testing.T) {
		t.Parallel()
		item, ok := c.ItemForPrice("price_topics")
		require.True(t, ok)
		assert.Equal(t, "topics_pack", item.ID)
		assert.EqualValues(t, 2500, item.Amount)
		assert.Equal(t, "jpy", item.Currency)
	})

	t.Run("unknown price id does not resolve", func(t *testing.T) {
		t.Parallel()
		_, ok := c.ItemForPrice("price_something_else")
		assert.False(t, ok)
	})

	t.Run("empty price id does not resolve", func(t *testing.T) {
		t.Parallel()
		_, ok := c.ItemForPrice("")
		assert.False(t, ok)
	})

	t.Run("plan price is not an item", func(t *testing.T) {
		t.Parallel()
		_, ok := c.ItemForPrice("price_premium")
		assert.False(t, ok)
	})
}

func TestCatalog_ItemByID(t *testing.T) {
	t.Parallel()

	c := testCatalog()

	item, ok := c.ItemByID("first_message_pack")
	require.True(t, ok)
	assert.Equal(t, "price_first", item.PriceID)

	_, ok = c.ItemByID("nonexistent_pack")
	assert.False(t, ok)
}

func TestCatalog_PlanByID(t *testing.T) {
	t.Parallel()

	c := testCatalog()

	plan, ok := c.PlanByID(catalog.PlanPremiumMonthly)
	require.True(t, ok)
	assert.Equal(t, "price_premium", plan.PriceID)
	assert.EqualValues(t, 1980, plan.Amount)

	_, ok = c.PlanByID("premium_yearly")
	assert.False(t, ok)
}

func TestCatalog_Items(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	items := c.Items()
	assert.Len(t, items, 4)

	// The returned slice is a copy; mutating it must not affect the catalog.
	items[0].ID = "mutated"
	fresh, ok := c.ItemByID("first_message_pack")
	require.True(t, ok)
	assert.Equal(t, "first_message_pack", fresh.ID)
}
