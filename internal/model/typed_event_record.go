package model

import "encoding/json"

// TypedEventRecord is the JSON representation used for export.
type TypedEventRecord struct {
	Seq       uint64          `json:"seq"`
	Slot      uint64          `json:"slot"`
	Address   string          `json:"address"`
	EventName string          `json:"event_name"`
	Decoded   json.RawMessage `json:"decoded"`
	PoolMeta  *PoolMeta       `json:"pool_meta,omitempty"`
}
