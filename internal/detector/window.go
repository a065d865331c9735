package detector

import "NetSentry/internal/model"

// window is a fixed-capacity ring of detection results. Appending beyond
// capacity evicts the oldest entry.
type window struct {
	buf  []*model.DetectionResult
	next int
	full bool
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = 1000
	}
	return &window{buf: make([]*model.DetectionResult, capacity)}
}

func (w *window) append(r *model.DetectionResult) {
	w.buf[w.next] = r
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

func (w *window) len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// items returns the buffered results in insertion order, oldest first.
func (w *window) items() []*model.DetectionResult {
	if !w.full {
		out := make([]*model.DetectionResult, w.next)
		copy(out, w.buf[:w.next])
		return out
	}
	out := make([]*model.DetectionResult, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	out = append(out, w.buf[:w.next]...)
	return out
}

// last returns up to n of the most recent results, oldest first.
func (w *window) last(n int) []*model.DetectionResult {
	items := w.items()
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}
