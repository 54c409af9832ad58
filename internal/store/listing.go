package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// ErrListingExists is returned when a listing key is already taken.
var ErrListingExists = errors.New("listing_exists")

// ListingStore is the authoritative set of active listings, keyed by
// (contract, token, sale index), with a per-asset sale-index counter.
// Listings are copied on the way in and out so callers never share
// memory with the store.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[domain.ListingKey]*domain.Listing
	counters map[domain.AssetRef]uint64 // asset → last sale index issued
	bySeller map[domain.Address]map[domain.ListingKey]struct{}
}

// NewListingStore creates an empty ListingStore.
func NewListingStore() *ListingStore {
	return &ListingStore{
		listings: make(map[domain.ListingKey]*domain.Listing),
		counters: make(map[domain.AssetRef]uint64),
		bySeller: make(map[domain.Address]map[domain.ListingKey]struct{}),
	}
}

// NextSaleIndex returns the index the next listing of asset will get.
// It does not reserve it; Create does.
func (s *ListingStore) NextSaleIndex(asset domain.AssetRef) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[asset] + 1
}

// Create stores a new listing and advances the asset's sale counter to its
// index. The index must be the one NextSaleIndex reported.
func (s *ListingStore) Create(l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listings[l.Key]; exists {
		return ErrListingExists
	}
	if l.Key.SaleIndex != s.counters[l.Key.Asset]+1 {
		return ErrListingExists
	}
	s.counters[l.Key.Asset] = l.Key.SaleIndex
	s.listings[l.Key] = l.Clone()
	if s.bySeller[l.Seller] == nil {
		s.bySeller[l.Seller] = make(map[domain.ListingKey]struct{})
	}
	s.bySeller[l.Seller][l.Key] = struct{}{}
	return nil
}

// Get returns a copy of the listing. It returns
// domain.ErrNotValidAuctionSale if no listing has this key.
func (s *ListingStore) Get(key domain.ListingKey) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[key]
	if !ok {
		return nil, domain.ErrNotValidAuctionSale
	}
	return l.Clone(), nil
}

// Put replaces an existing listing with l.
func (s *ListingStore) Put(l *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[l.Key]; !ok {
		return domain.ErrNotValidAuctionSale
	}
	s.listings[l.Key] = l.Clone()
	return nil
}

// Delete removes a listing. The sale counter is left untouched so the
// index is never reused.
func (s *ListingStore) Delete(key domain.ListingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[key]
	if !ok {
		return domain.ErrNotValidAuctionSale
	}
	delete(s.listings, key)
	if keys, ok := s.bySeller[l.Seller]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.bySeller, l.Seller)
		}
	}
	return nil
}

// Len returns the number of active listings.
func (s *ListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// List returns active listings ordered by end time ascending, then key.
// If seller is non-nil only that seller's listings are included.
// Pagination is 1-based. Returns the page and the total matching count.
func (s *ListingStore) List(seller *domain.Address, page, limit int) ([]*domain.Listing, int) {
	s.mu.RLock()
	all := make([]*domain.Listing, 0, len(s.listings))
	if seller != nil {
		for key := range s.bySeller[*seller] {
			all = append(all, s.listings[key].Clone())
		}
	} else {
		for _, l := range s.listings {
			all = append(all, l.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].EndTime.Equal(all[j].EndTime) {
			return all[i].EndTime.Before(all[j].EndTime)
		}
		return all[i].Key.Less(all[j].Key)
	})

	total := len(all)
	start := (page - 1) * limit
	if start >= total || start < 0 {
		return []*domain.Listing{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total
}

// QuantityHeld returns the total listed quantity of asset across its
// active listings.
func (s *ListingStore) QuantityHeld(asset domain.AssetRef) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var q int64
	for key, l := range s.listings {
		if key.Asset == asset {
			q += l.Quantity
		}
	}
	return q
}
