package handlers

import (
	"strings"

	"github.com/ShayCichocki/pix/internal/protocol"
)

// labels is an insertion-ordered map from step id to a display label.
type labels struct {
	order []protocol.StepID
	text  map[protocol.StepID]string
}

func newLabels() *labels {
	return &labels{text: make(map[protocol.StepID]string)}
}

func (l *labels) set(id protocol.StepID, label string) {
	if _, ok := l.text[id]; !ok {
		l.order = append(l.order, id)
	}
	l.text[id] = label
}

// remove deletes id and reports whether it was present.
func (l *labels) remove(id protocol.StepID) bool {
	if _, ok := l.text[id]; !ok {
		return false
	}
	delete(l.text, id)
	for i, other := range l.order {
		if other == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

func (l *labels) len() int {
	return len(l.order)
}

func (l *labels) join(sep string) string {
	parts := make([]string, 0, len(l.order))
	for _, id := range l.order {
		parts = append(parts, l.text[id])
	}
	return strings.Join(parts, sep)
}
