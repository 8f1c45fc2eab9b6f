package catalog

// Item is a one-off purchasable template pack.
type Item struct {
	ID       string // Stable internal identifier stored in entitlements.
	Name     string // Display name used in notifications and history.
	PriceID  string // Payment processor price identifier.
	Amount   int64  // Price in the smallest currency unit.
	Currency string
}

// Plan is a recurring subscription offering.
type Plan struct {
	ID       string
	Name     string
	PriceID  string
	Amount   int64
	Currency string
}

// Catalog is the static table of purchasable items and plans.
// Price ids come from configuration; the item and plan ids are part of the
// durable data model and must not change once purchases reference them.
type Catalog struct {
	items []Item
	plans []Plan
}

// Config carries the processor price ids for the static catalog.
type Config struct {
	FirstMessagePriceID   string `env:"PRICE_ID_FIRST_MESSAGE_PACK,required"`
	ToneShiftPriceID      string `env:"PRICE_ID_TONE_SHIFT_PACK,required"`
	InvitationPriceID     string `env:"PRICE_ID_INVITATION_PACK,required"`
	TopicsPriceID         string `env:"PRICE_ID_TOPICS_PACK,required"`
	PremiumMonthlyPriceID string `env:"PRICE_ID_PREMIUM_MONTHLY,required"`
}

// PlanPremiumMonthly is the only recurring plan on offer.
const PlanPremiumMonthly = "premium_monthly"

// New builds the catalog from configured price ids.
func New(cfg Config) *Catalog {
	return &Catalog{
		items: []Item{
			{ID: "first_message_pack", Name: "First Message Pack", PriceID: cfg.FirstMessagePriceID, Amount: 2500, Currency: "jpy"},
			{ID: "tone_shift_pack", Name: "Tone Shift Pack", PriceID: cfg.ToneShiftPriceID, Amount: 2500, Currency: "jpy"},
			{ID: "invitation_pack", Name: "Invitation Pack", PriceID: cfg.InvitationPriceID, Amount: 2500, Currency: "jpy"},
			{ID: "topics_pack", Name: "Conversation Topics Pack", PriceID: cfg.TopicsPriceID, Amount: 2500, Currency: "jpy"},
		},
		plans: []Plan{
			{ID: PlanPremiumMonthly, Name: "Premium Monthly", PriceID: cfg.PremiumMonthlyPriceID, Amount: 1980, Currency: "jpy"},
		},
	}
}

// Items returns all purchasable items.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// ItemByID returns the item with the given internal id.
func (c *Catalog) ItemByID(id string) (Item, bool) {
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// ItemForPrice resolves a processor price id to an item.
// Resolution is exact lookup only; an unknown price id reports not found and
// the caller decides how to degrade.
func (c *Catalog) ItemForPrice(priceID string) (Item, bool) {
	if priceID == "" {
		return Item{}, false
	}
	for _, it := range c.items {
		if it.PriceID == priceID {
			return it, true
		}
	}
	return Item{}, false
}

// PlanByID returns the plan with the given internal id.
func (c *Catalog) PlanByID(id string) (Plan, bool) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
