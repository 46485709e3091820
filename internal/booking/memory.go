package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is the in-process reference store. Projections (item name,
// owner, booker name) are taken from the booking as given to Create.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	bookings map[int64]Booking
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings: make(map[int64]Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = r.now()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = *b
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrAlreadyDecided
	}
	b.Status = to
	b.UpdatedAt = r.now()
	r.bookings[id] = b
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) (*Page, error) {
	if filter.BookerID == 0 && filter.OwnerID == 0 {
		return nil, fmt.Errorf("list bookings: filter has no booker or owner scope")
	}

	matched := r.collect(func(b *Booking) bool { return matches(filter, b) })
	sortByStart(matched, false)

	page := normalizePage(filter)
	page.Total = len(matched)

	lo := page.Index * page.Size
	if lo < len(matched) {
		hi := lo + page.Size
		if hi > len(matched) {
			hi = len(matched)
		}
		page.Items = matched[lo:hi]
	}
	return page, nil
}

func (r *MemoryRepository) FindRentalWindow(ctx context.Context, itemID int64, now time.Time) ([]*Booking, []*Booking, error) {
	last := r.collect(func(b *Booking) bool {
		return b.ItemID == itemID && b.End.Before(now)
	})
	sortByStart(last, false)

	next := r.collect(func(b *Booking) bool {
		return b.ItemID == itemID && b.Status == StatusApproved && b.Start.After(now)
	})
	sortByStart(next, true)

	return last, next, nil
}

func (r *MemoryRepository) FindByItemAndBooker(ctx context.Context, itemID, bookerID int64) ([]*Booking, error) {
	result := r.collect(func(b *Booking) bool {
		return b.ItemID == itemID && b.BookerID == bookerID
	})
	sortByStart(result, false)
	return result, nil
}

func (r *MemoryRepository) HasOverlap(ctx context.Context, itemID int64, start, end time.Time) (bool, error) {
	overlapping := r.collect(func(b *Booking) bool {
		return b.ItemID == itemID &&
			b.Status != StatusRejected &&
			b.Start.Before(end) &&
			b.End.After(start)
	})
	return len(overlapping) > 0, nil
}

// collect returns copies of the bookings accepted by keep.
func (r *MemoryRepository) collect(keep func(b *Booking) bool) []*Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Booking
	for _, stored := range r.bookings {
		b := stored
		if keep(&b) {
			result = append(result, &b)
		}
	}
	return result
}

func matches(f Filter, b *Booking) bool {
	if f.BookerID != 0 && b.BookerID != f.BookerID {
		return false
	}
	if f.OwnerID != 0 && b.ItemOwnerID != f.OwnerID {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.EndBefore != nil && !b.End.Before(*f.EndBefore) {
		return false
	}
	if f.StartAfter != nil && !b.Start.After(*f.StartAfter) {
		return false
	}
	if f.ActiveAt != nil && !b.IsActiveAt(*f.ActiveAt) {
		return false
	}
	return true
}

// sortByStart orders by start time, breaking ties on id in the same direction.
func sortByStart(bookings []*Booking, ascending bool) {
	sort.Slice(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.Start.Equal(b.Start) {
			if ascending {
				return a.Start.Before(b.Start)
			}
			return a.Start.After(b.Start)
		}
		if ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
