package store

import "time"

// HistoryEntry records one binding change.
type HistoryEntry struct {
	ID        int64
	Binding   string
	Kind      string
	ChangedAt time.Time
	Reason    string
}
