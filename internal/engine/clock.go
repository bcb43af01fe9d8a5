package engine

import (
	"fmt"
	"sync"

	"futarchy/internal/amm"
)

// Clock supplies the current ledger slot.
type Clock interface {
	Slot() uint64
}

// ManualClock is a Clock advanced explicitly by its owner.
type ManualClock struct {
	mu   sync.Mutex
	slot uint64
}

func NewManualClock(slot uint64) *ManualClock {
	return &ManualClock{slot: slot}
}

func (c *ManualClock) Slot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// Set moves the clock to slot. Slots never go backwards.
func (c *ManualClock) Set(slot uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < c.slot {
		return fmt.Errorf("slot %d before %d: %w", slot, c.slot, amm.ErrClockMovedBackwards)
	}
	c.slot = slot
	return nil
}
