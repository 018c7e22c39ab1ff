package style

import (
	"math/bits"
	"strings"
)

// Bar characters.
const (
	BarDone    = "#"
	BarRunning = "-"
	BarPending = " "
)

// Segments splits a bar of size cells into done, running and pending parts.
// done and upto are cumulative positions out of expected; upto is where the
// running part ends. An expected of zero means the total is unknown and
// yields an empty bar with everything pending.
func Segments(size, done, upto, expected uint64) [3]uint64 {
	if expected == 0 {
		return [3]uint64{0, 0, size}
	}

	adv1 := scale(size, done, expected)
	adv2 := max(scale(size, upto, expected), adv1)

	return [3]uint64{adv1, adv2 - adv1, size - adv2}
}

// scale returns round(size*n/expected) for n clamped to expected, using a
// 128-bit product so large counters cannot overflow.
func scale(size, n, expected uint64) uint64 {
	n = min(n, expected)
	hi, lo := bits.Mul64(size, n)
	lo, carry := bits.Add64(lo, expected/2, 0)
	q, _ := bits.Div64(hi+carry, lo, expected)
	return q
}

// MultiBar draws the three segments returned by Segments.
func MultiBar(seg [3]uint64) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(BarDone, int(seg[0])))
	b.WriteString(RunningStyle.Render(strings.Repeat(BarRunning, int(seg[1]))))
	b.WriteString(strings.Repeat(BarPending, int(seg[2])))
	return b.String()
}

// Layout is the split of a terminal line between message, bar and elapsed
// time for a given width.
type Layout struct {
	Width   int
	Main    int
	Bar     int
	Elapsed bool
}

// LayoutFor computes the line layout for a terminal of the given width. The
// bar takes a third of the line; wide terminals also show elapsed time.
func LayoutFor(width int) Layout {
	if width < 0 {
		width = 0
	}
	l := Layout{Width: width, Bar: width / 3}
	if width > 90 {
		l.Main = width - l.Bar - 6
		l.Elapsed = true
	} else {
		l.Main = width - l.Bar
	}
	return l
}

// ShowRate reports whether there is room for a transfer rate column.
func (l Layout) ShowRate() bool { return l.Width > 50 }

// ShowBytes reports whether there is room for a byte counter column.
func (l Layout) ShowBytes() bool { return l.Width > 60 }
