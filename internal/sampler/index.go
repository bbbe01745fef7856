package sampler

import "sync"

// Index maps a sampler subject (disk device name, cpu id as string) to
// its History, creating histories lazily so a subject that appears after
// startup (a hot-plugged device) still gets bounded history instead of
// an error.
type Index struct {
	mu        sync.Mutex
	maxShift  int
	histories map[string]*History
}

// NewIndex creates an empty Index whose histories each hold maxShift+1
// entries.
func NewIndex(maxShift int) *Index {
	return &Index{
		maxShift:  maxShift,
		histories: make(map[string]*History),
	}
}

func (idx *Index) history(subject string) *History {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	h, ok := idx.histories[subject]
	if !ok {
		h = NewHistory(idx.maxShift)
		idx.histories[subject] = h
	}
	return h
}

// Push records a new snapshot for subject.
func (idx *Index) Push(subject string, payload interface{}, timestamp float64) {
	idx.history(subject).Push(payload, timestamp)
}

// GetShifted delegates to the named subject's History.GetShifted. ok is
// false if the subject has never been pushed to.
func (idx *Index) GetShifted(subject string, shift, now float64) (Snapshot, bool) {
	idx.mu.Lock()
	h, ok := idx.histories[subject]
	idx.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return h.GetShifted(shift, now)
}

// GetAtOffset delegates to the named subject's History.GetAtOffset. ok is
// false if the subject has never been pushed to.
func (idx *Index) GetAtOffset(subject string, shift int) (Snapshot, bool) {
	idx.mu.Lock()
	h, ok := idx.histories[subject]
	idx.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return h.GetAtOffset(shift)
}

// Subjects returns the names of every subject with at least one pushed
// snapshot.
func (idx *Index) Subjects() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	names := make([]string, 0, len(idx.histories))
	for name := range idx.histories {
		names = append(names, name)
	}
	return names
}
