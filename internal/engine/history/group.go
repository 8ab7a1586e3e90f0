package history

// BeginGroup makes every transaction recorded until EndGroup part of one
// undo entry. Nested calls join the open group.
func (h *History) BeginGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.grouping {
		h.grouping, h.group = true, nil
	}
}

// EndGroup closes the open group and pushes its entry, if it recorded
// anything. The next transaction starts a new entry.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.grouping {
		return
	}
	if h.group != nil {
		h.pushLocked(h.group)
	}
	h.grouping, h.group, h.broken = false, nil, true
}

// IsGrouping reports whether a group is open.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// GroupScope opens a group for the life of a function:
//
//	defer h.GroupScope().End()
type GroupScope struct {
	h    *History
	done bool
}

// GroupScope begins a group and returns its scope.
func (h *History) GroupScope() *GroupScope {
	h.BeginGroup()
	return &GroupScope{h: h}
}

// End closes the group. Calls after the first do nothing.
func (g *GroupScope) End() {
	if !g.done {
		g.done = true
		g.h.EndGroup()
	}
}
