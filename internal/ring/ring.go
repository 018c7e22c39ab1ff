// Package ring provides a line buffer that keeps the most recent lines.
package ring

// Buffer stores lines in insertion order. A bounded Buffer discards the
// oldest line when full; an unbounded Buffer grows as needed.
type Buffer struct {
	data  []string
	size  int // 0 means unbounded
	head  int // next write position
	tail  int // oldest element
	count int
}

// New creates a Buffer holding at most capacity lines. A capacity of zero or
// less makes the buffer unbounded.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		return &Buffer{}
	}
	return &Buffer{
		data: make([]string, capacity),
		size: capacity,
	}
}

// Append adds a line, overwriting the oldest one if the buffer is full.
func (b *Buffer) Append(line string) {
	if b.size == 0 {
		b.data = append(b.data, line)
		b.count++
		return
	}

	b.data[b.head] = line
	b.head = (b.head + 1) % b.size

	if b.count < b.size {
		b.count++
	} else {
		b.tail = (b.tail + 1) % b.size
	}
}

// Lines returns the stored lines from oldest to newest.
func (b *Buffer) Lines() []string {
	if b.count == 0 {
		return nil
	}

	result := make([]string, b.count)
	if b.size == 0 {
		copy(result, b.data)
		return result
	}
	for i := 0; i < b.count; i++ {
		result[i] = b.data[(b.tail+i)%b.size]
	}
	return result
}

// Last returns the newest n lines, oldest first.
func (b *Buffer) Last(n int) []string {
	lines := b.Lines()
	if n >= 0 && n < len(lines) {
		return lines[len(lines)-n:]
	}
	return lines
}

// Len returns the number of stored lines.
func (b *Buffer) Len() int {
	return b.count
}

// Capacity returns the maximum number of lines kept, or 0 when unbounded.
func (b *Buffer) Capacity() int {
	return b.size
}

// Resize changes the capacity, keeping the newest lines that still fit.
func (b *Buffer) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	if capacity == b.size {
		return
	}

	lines := b.Lines()
	*b = *New(capacity)
	for _, line := range lines {
		b.Append(line)
	}
}

// Clear removes all lines.
func (b *Buffer) Clear() {
	if b.size == 0 {
		b.data = nil
	}
	b.head = 0
	b.tail = 0
	b.count = 0
}
