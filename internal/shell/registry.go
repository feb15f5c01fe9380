package shell

import "fmt"

// FocusPolicy decides which tab becomes active after a close.
type FocusPolicy int

const (
	// FocusShift keeps the active tab when another tab closes and, when the
	// active tab itself closes, activates the tab that shifted into its
	// position (or the new last tab). It is the default and does not follow
	// the plain active = max(0, active-1) rule, which moves focus even when
	// a tab after the active one closes. Use FocusPrevious for that rule.
	FocusShift FocusPolicy = iota
	// FocusPrevious always applies active = max(0, active-1).
	FocusPrevious
)

// ParseFocusPolicy maps "shift" and "previous" to a policy.
func ParseFocusPolicy(s string) (FocusPolicy, error) {
	switch s {
	case "", "shift":
		return FocusShift, nil
	case "previous":
		return FocusPrevious, nil
	default:
		return FocusShift, fmt.Errorf("unknown focus policy %q", s)
	}
}

func (p FocusPolicy) String() string {
	if p == FocusPrevious {
		return "previous"
	}
	return "shift"
}

// Registry is the ordered tab sequence plus the active index. It is not safe
// for concurrent use; the controller loop owns it.
type Registry struct {
	tabs   []*Tab
	active int
	policy FocusPolicy
}

func NewRegistry(policy FocusPolicy) *Registry {
	return &Registry{policy: policy}
}

func (r *Registry) Len() int { return len(r.tabs) }

// Append adds t at the end and makes it active. It returns t's index.
func (r *Registry) Append(t *Tab) int {
	r.tabs = append(r.tabs, t)
	r.active = len(r.tabs) - 1
	return r.active
}

// Active returns the active tab and its index, or false when empty.
func (r *Registry) Active() (*Tab, int, bool) {
	if len(r.tabs) == 0 {
		return nil, -1, false
	}
	return r.tabs[r.active], r.active, true
}

func (r *Registry) At(index int) (*Tab, bool) {
	if index < 0 || index >= len(r.tabs) {
		return nil, false
	}
	return r.tabs[index], true
}

// IndexOf returns the current position of id, or -1.
func (r *Registry) IndexOf(id TabID) int {
	for i, t := range r.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SetActive activates index. Out of range indexes leave the registry unchanged
// and return false.
func (r *Registry) SetActive(index int) bool {
	if index < 0 || index >= len(r.tabs) {
		return false
	}
	r.active = index
	return true
}

// Remove deletes the tab at index and recomputes the active index according
// to the focus policy. Out of range indexes return false.
func (r *Registry) Remove(index int) (*Tab, bool) {
	if index < 0 || index >= len(r.tabs) {
		return nil, false
	}
	t := r.tabs[index]
	r.tabs = append(r.tabs[:index], r.tabs[index+1:]...)

	switch r.policy {
	case FocusPrevious:
		r.active = max(0, r.active-1)
	default:
		if index < r.active {
			r.active--
		}
	}
	if r.active >= len(r.tabs) {
		r.active = max(0, len(r.tabs)-1)
	}
	return t, true
}

// Tabs returns the tabs in presentation order. The slice must not be
// modified.
func (r *Registry) Tabs() []*Tab { return r.tabs }

// Snapshot returns {id, tab_id, url, active} for every tab in order.
func (r *Registry) Snapshot() []TabInfo {
	out := make([]TabInfo, 0, len(r.tabs))
	for i, t := range r.tabs {
		out = append(out, TabInfo{
			ID:     i,
			TabID:  t.ID,
			URL:    t.View.URL(),
			Active: i == r.active,
		})
	}
	return out
}
