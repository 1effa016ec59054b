package engine

import "fmt"

// ReportKind classifies a non-fatal condition raised while handling notes.
type ReportKind int

const (
	// PolyphonyExhausted means a note-on arrived with every voice busy.
	PolyphonyExhausted ReportKind = iota
	// NoteOffUnmatched means a note-off found no sounding voice at its pitch.
	NoteOffUnmatched
	// QueueFull means a note event was dropped before reaching the audio thread.
	QueueFull
)

func (k ReportKind) String() string {
	switch k {
	case PolyphonyExhausted:
		return "polyphony exhausted"
	case NoteOffUnmatched:
		return "note-off unmatched"
	case QueueFull:
		return "event queue full"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// Report describes one dropped or unmatched note event.
type Report struct {
	Kind  ReportKind
	Pitch int
}

func (r Report) String() string {
	return fmt.Sprintf("%s (pitch %d)", r.Kind, r.Pitch)
}

// report delivers r without blocking. If nobody is draining the channel the
// report is counted and discarded.
func (e *Engine) report(kind ReportKind, pitch int) {
	select {
	case e.reports <- Report{Kind: kind, Pitch: pitch}:
	default:
		e.droppedReports.Add(1)
	}
}
