package domain

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// SnapshotHash fingerprints a state for change-correlation logging. It is an
// order-dependent, non-cryptographic content hash over the JSON encoding;
// two snapshots with the same hash held the same cards in the same order.
func SnapshotHash(st *GameState) string {
	data, err := json.Marshal(st)
	if err != nil {
		return "unhashable"
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}
