package cursor

import "testing"

// shift maps every position at or after at by delta.
type shift struct{ at, delta int }

func (s shift) Map(pos, assoc int) int {
	if pos > s.at || (pos == s.at && assoc > 0) {
		return pos + s.delta
	}
	return pos
}

func TestSelectionBounds(t *testing.T) {
	tests := []struct {
		sel      Selection
		from, to int
		empty    bool
		forward  bool
	}{
		{At(4), 4, 4, true, true},
		{Range(2, 9), 2, 9, false, true},
		{Range(9, 2), 2, 9, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.sel.String(), func(t *testing.T) {
			if tt.sel.From() != tt.from || tt.sel.To() != tt.to {
				t.Errorf("bounds = %d..%d", tt.sel.From(), tt.sel.To())
			}
			if tt.sel.IsEmpty() != tt.empty {
				t.Errorf("IsEmpty = %v", tt.sel.IsEmpty())
			}
			if tt.sel.IsForward() != tt.forward {
				t.Errorf("IsForward = %v", tt.sel.IsForward())
			}
		})
	}
}

func TestSelectionMap(t *testing.T) {
	m := shift{at: 5, delta: 3}

	if got := At(5).Map(m); got != At(8) {
		t.Errorf("cursor at insertion point = %v, want after insert", got)
	}
	if got := Range(5, 10).Map(m); got != Range(8, 13) {
		t.Errorf("forward range = %v", got)
	}
	if got := Range(10, 5).Map(m); got != Range(13, 8) {
		t.Errorf("backward range = %v", got)
	}
	if got := At(2).Map(m); got != At(2) {
		t.Errorf("cursor before change moved: %v", got)
	}
}

func TestSelectionClampAndCollapse(t *testing.T) {
	s := Range(-3, 40).Clamp(10)
	if s != Range(0, 10) {
		t.Errorf("Clamp = %v", s)
	}
	if s.CollapseToStart() != At(0) || s.CollapseToEnd() != At(10) || s.Collapse() != At(10) {
		t.Error("collapse helpers broken")
	}
	if !Range(3, 6).Contains(3) || Range(3, 6).Contains(6) {
		t.Error("Contains is half-open")
	}
}
