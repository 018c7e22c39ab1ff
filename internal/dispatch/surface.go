package dispatch

import "time"

// SlotID identifies a live region on a Surface. Zero means no slot.
type SlotID uint64

// Line is the content of a bar slot.
type Line struct {
	// Spinner prefixes the line with an animated spinner.
	Spinner bool
	// Text is the message part, truncated to the space left by Bar.
	Text string
	// Bar is drawn after Text, already rendered to its final width.
	Bar string
	// Since, when set, adds an elapsed time column on wide terminals.
	Since time.Time
}

// Surface is the live terminal display the handlers draw on.
//
// Implementations may be asynchronous but must apply calls in order.
// Operations on a released or unknown slot are no-ops.
type Surface interface {
	// Println prints a line above the live region.
	Println(text string)
	// AddBar appends a bar slot to the live region.
	AddBar(line Line) SlotID
	// SetBar replaces the content of a bar slot.
	SetBar(id SlotID, line Line)
	// AddWindow creates a log window drawn under anchor keeping the last
	// capacity lines pushed to it.
	AddWindow(anchor SlotID, capacity int) SlotID
	// PushLine appends a line to a log window, evicting the oldest one.
	PushLine(id SlotID, text string)
	// Release removes a slot from the live region.
	Release(id SlotID)
}

// Discard is a Surface that draws nothing.
var Discard Surface = discard{}

type discard struct{}

func (discard) Println(string)               {}
func (discard) AddBar(Line) SlotID           { return 0 }
func (discard) SetBar(SlotID, Line)          {}
func (discard) AddWindow(SlotID, int) SlotID { return 0 }
func (discard) PushLine(SlotID, string)      {}
func (discard) Release(SlotID)               {}
