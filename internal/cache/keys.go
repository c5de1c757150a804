package cache

import "fmt"

// StatsKey is where the aggregated job statistics payload lives. A finished
// sync deletes it so the next read recomputes.
func StatsKey() string {
	return "jobs:stats"
}

func JobListKey(filterHash string) string {
	return fmt.Sprintf("jobs:list:%s", filterHash)
}

func SyncStatusKey(runID int64) string {
	return fmt.Sprintf("sync:%d", runID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
