package model

// PoolWindowMetrics stores aggregated metrics for a pool slot window.
type PoolWindowMetrics struct {
	PoolAddress     string  `json:"pool_address"`
	WindowSizeSlots int64   `json:"window_size_slots"`
	WindowStart     uint64  `json:"window_start"`
	WindowEnd       uint64  `json:"window_end"`
	SwapCount       uint64  `json:"swap_count"`
	VolumeBase      string  `json:"volume_base"`
	VolumeQuote     string  `json:"volume_quote"`
	FeeBase         string  `json:"fee_base"`
	FeeQuote        string  `json:"fee_quote"`
	CloseBaseRes    string  `json:"close_base_reserve"`
	CloseQuoteRes   string  `json:"close_quote_reserve"`
	ClosePrice      *string `json:"close_price,omitempty"`
	LtwapClose      *string `json:"ltwap_close,omitempty"`
	FeeRate         *string `json:"fee_rate,omitempty"`
}
