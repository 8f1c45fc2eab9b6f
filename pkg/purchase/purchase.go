package purchase

import (
	"slices"
	"time"
)

// Type distinguishes one-off item purchases from subscription confirmations.
type Type string

const (
	TypeItem         Type = "item"
	TypeSubscription Type = "subscription"
)

// Record is one row in the append-only purchase ledger.
// Exactly one record exists per completed checkout session; the processor
// session id is the idempotency key.
type Record struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	SessionID   string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Type        Type      `bson:"type" json:"type"`
	ItemID      string    `bson:"item_id,omitempty" json:"item_id,omitempty"`
	ItemName    string    `bson:"item_name,omitempty" json:"item_name,omitempty"`
	Amount      int64     `bson:"amount,omitempty" json:"amount,omitempty"`
	Currency    string    `bson:"currency,omitempty" json:"currency,omitempty"`
	Status      string    `bson:"status,omitempty" json:"status,omitempty"`
	PurchasedAt time.Time `bson:"purchased_at,omitempty" json:"purchased_at,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// DedupKey is the identity used for read-side deduplication: the processor
// session id when present, the record id otherwise.
func (r Record) DedupKey() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.ID
}

// EffectiveTime is the ordering timestamp: purchase time when recorded,
// creation time otherwise.
func (r Record) EffectiveTime() time.Time {
	if !r.PurchasedAt.IsZero() {
		return r.PurchasedAt
	}
	return r.CreatedAt
}

// Dedup removes duplicate records by DedupKey, first occurrence wins.
// Input order is preserved for the survivors.
func Dedup(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := r.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SortByTimeDesc orders records newest first by EffectiveTime.
// The sort is stable so same-timestamp records keep their input order.
func SortByTimeDesc(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return b.EffectiveTime().Compare(a.EffectiveTime())
	})
}
