package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ComputeAlertID computes a deterministic alert id using SHA256.
// Formula: SHA256(detector|location_id|product_id|day)
// Re-running a detector on the same data yields the same ids, which lets the
// publisher tell new alerts from ones it already pushed.
// Returns hex-encoded hash (64 characters).
func ComputeAlertID(detector string, locationID, productID int, day time.Time) string {
	data := fmt.Sprintf("%s|%d|%d|%s",
		detector,
		locationID,
		productID,
		day.UTC().Format("2006-01-02"),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
