package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDealID computes a deterministic deal_id using SHA256.
// Formula: SHA256(run_id|strategy_id)
// Returns hex-encoded hash (64 characters).
func ComputeDealID(runID string, strategyID string) string {
	data := fmt.Sprintf("%s|%s", runID, strategyID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
