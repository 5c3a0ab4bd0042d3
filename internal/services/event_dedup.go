package services

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultDedupWindow is how long a processed event_id is remembered
const DefaultDedupWindow = 10 * time.Minute

// EventDeduplicator remembers recently dispatched Slack event IDs so a
// redelivery that arrives without X-Slack-Retry-Num is not answered twice.
type EventDeduplicator struct {
	seen *cache.Cache
}

func NewEventDeduplicator(window time.Duration) *EventDeduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &EventDeduplicator{seen: cache.New(window, 2*window)}
}

// FirstSeen reports whether eventID has not been seen within the window and
// marks it as seen. Empty IDs are always treated as new.
func (d *EventDeduplicator) FirstSeen(eventID string) bool {
	if d == nil || eventID == "" {
		return true
	}
	// Add fails when the key is already present and unexpired
	return d.seen.Add(eventID, struct{}{}, cache.DefaultExpiration) == nil
}

// Len returns the number of remembered event IDs
func (d *EventDeduplicator) Len() int {
	if d == nil {
		return 0
	}
	return d.seen.ItemCount()
}
