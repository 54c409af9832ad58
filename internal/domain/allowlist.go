package domain

import (
	"sort"
	"sync"
)

// AllowlistEntry describes an approved asset contract.
type AllowlistEntry struct {
	Contract Address
	Model    OwnershipModel
	// RoyaltyBps is the creator royalty taken from settled proceeds, in
	// basis points. Zero disables it.
	RoyaltyBps       int64
	RoyaltyRecipient Address
}

// Allowlist tracks which asset contracts may be listed and with which
// ownership model. It is populated administratively and read by the
// engine on every list and update. Safe for concurrent use.
type Allowlist struct {
	mu      sync.RWMutex
	entries map[Address]AllowlistEntry
}

// NewAllowlist creates an empty Allowlist.
func NewAllowlist() *Allowlist {
	return &Allowlist{
		entries: make(map[Address]AllowlistEntry),
	}
}

// Approve adds or replaces an entry.
func (a *Allowlist) Approve(e AllowlistEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[e.Contract] = e
}

// Revoke removes a contract. Existing listings are unaffected until their
// next update.
func (a *Allowlist) Revoke(contract Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.entries[contract]
	delete(a.entries, contract)
	return ok
}

// IsApproved reports whether contract may be listed and which ownership
// model applies.
func (a *Allowlist) IsApproved(contract Address) (bool, OwnershipModel) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[contract]
	if !ok {
		return false, ""
	}
	return true, e.Model
}

// Entry returns the full entry for contract.
func (a *Allowlist) Entry(contract Address) (AllowlistEntry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[contract]
	return e, ok
}

// Entries returns every entry ordered by contract.
func (a *Allowlist) Entries() []AllowlistEntry {
	a.mu.RLock()
	out := make([]AllowlistEntry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Contract < out[j].Contract })
	return out
}
