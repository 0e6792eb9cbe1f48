package audit

import "context"

// MultiRecorder fans one event out to several recorders. The first error is
// returned after all recorders have been attempted; one failing destination
// never stops the others.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder creates a fan-out recorder
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

// Record writes the event to every destination
func (m *MultiRecorder) Record(ctx context.Context, event *Event) error {
	var firstErr error
	for _, r := range m.recorders {
		if err := r.Record(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
