package model

// PoolSummary is a pool as seen by the exporter.
type PoolSummary struct {
	Address       string   `json:"address"`
	Meta          PoolMeta `json:"meta"`
	FirstSeenSlot uint64   `json:"first_seen_slot"`
}

// ProposalSummary is the latest known lifecycle state of a proposal.
type ProposalSummary struct {
	Address  string `json:"address"`
	LastSlot uint64 `json:"last_slot"`
	ProposalEventData
}
