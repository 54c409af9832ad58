package engine

import (
	"sync"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// assetLocks is a thread-safe map of asset → mutex. Every operation on a
// listing holds its asset's lock for the whole call, so operations on the
// same asset are totally ordered while different assets proceed in
// parallel.
type assetLocks struct {
	mu    sync.RWMutex
	locks map[domain.AssetRef]*sync.Mutex
}

func newAssetLocks() *assetLocks {
	return &assetLocks{
		locks: make(map[domain.AssetRef]*sync.Mutex),
	}
}

// get returns the mutex for asset, creating one if it doesn't already exist.
func (al *assetLocks) get(asset domain.AssetRef) *sync.Mutex {
	al.mu.RLock()
	m, ok := al.locks[asset]
	al.mu.RUnlock()
	if ok {
		return m
	}

	al.mu.Lock()
	defer al.mu.Unlock()
	// Double-check after acquiring write lock.
	if m, ok = al.locks[asset]; ok {
		return m
	}
	m = &sync.Mutex{}
	al.locks[asset] = m
	return m
}

// lock acquires asset's mutex and returns its unlock function.
func (al *assetLocks) lock(asset domain.AssetRef) func() {
	m := al.get(asset)
	m.Lock()
	return m.Unlock
}
