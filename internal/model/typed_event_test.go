package model

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTypedEventDecodedPayload(t *testing.T) {
	event := TypedEvent{
		Seq:       3,
		Slot:      42,
		Address:   "0x1111111111111111111111111111111111111111",
		EventName: EventSwap,
		Decoded: SwapEventData{
			Trader:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
			QuoteToBase:  true,
			InputAmount:  100_000,
			OutputAmount: 46_257,
			FeeAmount:    3_000,
		},
		PoolMeta: &PoolMeta{SwapFeeBps: 300},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record TypedEventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.EventName != EventSwap || record.Slot != 42 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.PoolMeta == nil || record.PoolMeta.SwapFeeBps != 300 {
		t.Fatalf("pool meta not preserved: %+v", record.PoolMeta)
	}

	var swap SwapEventData
	if err := json.Unmarshal(record.Decoded, &swap); err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if swap.OutputAmount != 46_257 || !swap.QuoteToBase {
		t.Fatalf("unexpected swap payload: %+v", swap)
	}
}

func TestProposalStateJSON(t *testing.T) {
	data, err := json.Marshal(ProposalPassed)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"passed"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var state ProposalState
	if err := json.Unmarshal([]byte(`"pending"`), &state); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if state != ProposalPending {
		t.Fatalf("unexpected state: %v", state)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &state); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestProposalStateTerminal(t *testing.T) {
	if ProposalInitialize.Terminal() || ProposalPending.Terminal() {
		t.Fatalf("non-terminal states reported terminal")
	}
	if !ProposalPassed.Terminal() || !ProposalFailed.Terminal() {
		t.Fatalf("terminal states reported non-terminal")
	}
}
