package playback

// EventType represents a controller event type.
type EventType int

const (
	EventQueueLoaded  EventType = iota // Queue was (re)loaded
	EventStateChanged                  // Play/pause toggled or segment started
	EventSegmentEnded                  // Cutoff reached, playback paused
	EventTrackChanged                  // Next/previous track selected
	EventRevealed                      // Identity (partly) revealed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQueueLoaded:
		return "queue_loaded"
	case EventStateChanged:
		return "state_changed"
	case EventSegmentEnded:
		return "segment_ended"
	case EventTrackChanged:
		return "track_changed"
	case EventRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// Event represents a controller event.
type Event struct {
	Type  EventType
	State State // State after the transition
}
