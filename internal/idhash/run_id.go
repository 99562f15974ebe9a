package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(lending_ticker|target_ticker|start|end)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	lendingTicker string,
	targetTicker string,
	start int64,
	end int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		lendingTicker,
		targetTicker,
		start,
		end,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
