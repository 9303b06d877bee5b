package history

import (
	"slices"
	"time"
)

// Watch is a sync folder known to the daemon.
type Watch struct {
	Root string
	Name string
}

// Model tracks the watched roots, the selected root and the version header
// dates of that root. The first root and the latest date are selected when
// their lists arrive.
type Model struct {
	watches      []Watch
	selectedRoot string
	headers      []time.Time
	selectedDate time.Time
}

func NewModel() *Model {
	return &Model{}
}

// SetWatches replaces the watch list and selects the first root, keeping the
// current selection if it is still listed. It returns the selected root.
func (m *Model) SetWatches(watches []Watch) string {
	m.watches = slices.Clone(watches)

	if m.selectedRoot != "" && m.hasRoot(m.selectedRoot) {
		return m.selectedRoot
	}

	m.headers = nil
	m.selectedDate = time.Time{}
	if len(m.watches) == 0 {
		m.selectedRoot = ""
		return ""
	}
	m.selectedRoot = m.watches[0].Root
	return m.selectedRoot
}

func (m *Model) SelectRoot(root string) error {
	if !m.hasRoot(root) {
		return ErrUnknownRoot
	}
	if root != m.selectedRoot {
		m.selectedRoot = root
		m.headers = nil
		m.selectedDate = time.Time{}
	}
	return nil
}

// SetHeaders stores the header dates of root in ascending order and selects
// the latest one. Headers for a root that is not selected are ignored.
func (m *Model) SetHeaders(root string, dates []time.Time) (time.Time, bool) {
	if root != m.selectedRoot {
		return time.Time{}, false
	}

	m.headers = slices.Clone(dates)
	slices.SortFunc(m.headers, func(a, b time.Time) int { return a.Compare(b) })

	if len(m.headers) == 0 {
		m.selectedDate = time.Time{}
		return time.Time{}, false
	}
	m.selectedDate = m.headers[len(m.headers)-1]
	return m.selectedDate, true
}

// SelectDateAt selects the i-th header date, oldest first.
func (m *Model) SelectDateAt(i int) (time.Time, bool) {
	if i < 0 || i >= len(m.headers) {
		return time.Time{}, false
	}
	m.selectedDate = m.headers[i]
	return m.selectedDate, true
}

func (m *Model) Watches() []Watch        { return slices.Clone(m.watches) }
func (m *Model) SelectedRoot() string    { return m.selectedRoot }
func (m *Model) Headers() []time.Time    { return slices.Clone(m.headers) }
func (m *Model) SelectedDate() time.Time { return m.selectedDate }

func (m *Model) hasRoot(root string) bool {
	return slices.ContainsFunc(m.watches, func(w Watch) bool { return w.Root == root })
}
