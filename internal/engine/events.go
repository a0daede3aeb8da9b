package engine

// EventKind identifies a haptic/feedback notification.
type EventKind int

const (
	EventPlay EventKind = iota
	EventStop
	EventLoopRestart
	EventCountdownTick
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventPlay:
		return "play"
	case EventStop:
		return "stop"
	case EventLoopRestart:
		return "loop-restart"
	case EventCountdownTick:
		return "countdown-tick"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a fire-and-forget notification for feedback layers.
type Event struct {
	Kind EventKind
	// Value is the countdown value for EventCountdownTick.
	Value int
	// Final marks the last countdown tick.
	Final bool
}

const eventBuffer = 16

// emit never blocks; events are dropped when nobody is reading.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.WithField("event", ev.Kind).Debug("event dropped")
	}
}
