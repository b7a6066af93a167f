package cache

import "fmt"

// HistoryKey holds the serialized generation history blob.
const HistoryKey = "reelgen:history"

// RateLimitKey is the per-client submission counter for the local API.
func RateLimitKey(client string) string {
	return fmt.Sprintf("reelgen:ratelimit:%s", client)
}
