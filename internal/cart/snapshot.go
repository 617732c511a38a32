package cart

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a detached, order-stable copy of a cart. Nothing in it aliases
// stored state, so later cart mutations never reach a snapshot already
// handed out.
type Snapshot struct {
	OwnerID uuid.UUID
	Items   []SnapshotItem
	TakenAt time.Time
}

// SnapshotItem is one priced cart line.
type SnapshotItem struct {
	ProductID      uuid.UUID
	Title          string
	ImageRef       *string
	UnitPriceCents int
	Quantity       int
	AvailableStock *int

	addedUnitPriceCents int
}

// Len is the number of distinct lines.
func (s Snapshot) Len() int {
	return len(s.Items)
}

// IsEmpty reports whether the cart has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// TotalCents sums unit price times quantity over every line.
func (s Snapshot) TotalCents() int {
	total := 0
	for _, item := range s.Items {
		total += item.LineTotalCents()
	}
	return total
}

// LineTotalCents returns unit price times quantity.
func (i SnapshotItem) LineTotalCents() int {
	return i.UnitPriceCents * i.Quantity
}

// Clone returns a deep copy, including pointer fields.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		OwnerID: s.OwnerID,
		TakenAt: s.TakenAt,
	}
	if s.Items == nil {
		return out
	}
	out.Items = make([]SnapshotItem, len(s.Items))
	for i, item := range s.Items {
		out.Items[i] = item.clone()
	}
	return out
}

func (i SnapshotItem) clone() SnapshotItem {
	c := i
	if i.ImageRef != nil {
		ref := *i.ImageRef
		c.ImageRef = &ref
	}
	if i.AvailableStock != nil {
		stock := *i.AvailableStock
		c.AvailableStock = &stock
	}
	return c
}
