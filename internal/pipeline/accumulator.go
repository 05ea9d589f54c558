package pipeline

import "strings"

type EventKind int

const (
	FragmentReceived EventKind = iota
	FinalReceived
	BoundaryReceived
)

func (k EventKind) String() string {
	switch k {
	case FragmentReceived:
		return "fragment"
	case FinalReceived:
		return "final"
	case BoundaryReceived:
		return "boundary"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Text string
}

// Accumulator assembles transcript fragments into utterances. It is not
// safe for concurrent use; the transcription stage confines it to the single
// goroutine that drains engine events.
type Accumulator struct {
	parts []string
}

// Apply feeds one event. On a final or boundary event with buffered
// fragments it returns the completed utterance and resets the buffer.
func (a *Accumulator) Apply(ev Event) (string, bool) {
	switch ev.Kind {
	case FragmentReceived:
		if ev.Text != "" {
			a.parts = append(a.parts, ev.Text)
		}
		return "", false
	case FinalReceived, BoundaryReceived:
		return a.flush()
	default:
		return "", false
	}
}

// Pending reports how many fragments are buffered.
func (a *Accumulator) Pending() int { return len(a.parts) }

func (a *Accumulator) flush() (string, bool) {
	if len(a.parts) == 0 {
		return "", false
	}
	utterance := strings.TrimSpace(strings.Join(a.parts, " "))
	a.parts = a.parts[:0]
	if utterance == "" {
		return "", false
	}
	return utterance, true
}
