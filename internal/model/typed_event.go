package model

// TypedEvent is a committed ledger event enriched with metadata.
type TypedEvent struct {
	Seq       uint64      `json:"seq"`
	Slot      uint64      `json:"slot"`
	Address   string      `json:"address"`
	EventName string      `json:"event_name"`
	Decoded   interface{} `json:"decoded"`
	PoolMeta  *PoolMeta   `json:"pool_meta,omitempty"`
}
