package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"futarchy/internal/storage/snapshot"
)

func runInspect(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("snapshot-dir")
	poolHex, _ := cmd.Flags().GetString("pool")
	number, _ := cmd.Flags().GetInt64("proposal")

	store, err := snapshot.Open(dir, snapshotCacheSize)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	var out interface{}
	switch {
	case poolHex != "":
		if !common.IsHexAddress(poolHex) {
			return fmt.Errorf("invalid pool address %q", poolHex)
		}
		out, err = store.Pool(common.HexToAddress(poolHex))
	case number >= 0:
		out, err = store.Proposal(uint64(number))
	default:
		snap, loadErr := store.Load()
		if loadErr != nil {
			return loadErr
		}
		out = struct {
			Slot      uint64      `json:"slot"`
			Seq       uint64      `json:"seq"`
			DAO       interface{} `json:"dao"`
			Pools     int         `json:"pools"`
			Proposals int         `json:"proposals"`
		}{snap.Slot, snap.Seq, snap.DAO, len(snap.Pools), len(snap.Proposals)}
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
