package transform

// StepMap maps positions across one step. It is a list of replaced ranges
// stored as (start, oldSize, newSize) triples in ascending order.
type StepMap struct {
	ranges   []int
	inverted bool
}

// EmptyMap maps every position to itself.
var EmptyMap = StepMap{}

// NewStepMap creates a map from (start, oldSize, newSize) triples.
func NewStepMap(ranges ...int) StepMap {
	return StepMap{ranges: ranges}
}

// Map maps pos. assoc picks the side when content was inserted at pos.
func (m StepMap) Map(pos, assoc int) int {
	p, _ := m.MapResult(pos, assoc)
	return p
}

// MapResult maps pos and reports whether the content around it was deleted.
func (m StepMap) MapResult(pos, assoc int) (int, bool) {
	diff := 0
	oldIndex, newIndex := 1, 2
	if m.inverted {
		oldIndex, newIndex = 2, 1
	}
	for i := 0; i+2 < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			side := assoc
			switch {
			case oldSize == 0:
			case pos == start:
				side = -1
			case pos == end:
				side = 1
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			deleted := oldSize > 0 && pos > start && pos < end
			return result, deleted
		}
		diff += newSize - oldSize
	}
	return pos + diff, false
}

// Invert returns the map of the inverse step.
func (m StepMap) Invert() StepMap {
	return StepMap{ranges: m.ranges, inverted: !m.inverted}
}

// ForEach calls fn for every changed range in old and new coordinates.
func (m StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := 1, 2
	if m.inverted {
		oldIndex, newIndex = 2, 1
	}
	diff := 0
	for i := 0; i+2 < len(m.ranges); i += 3 {
		start := m.ranges[i]
		oldStart := start
		if m.inverted {
			oldStart = start - diff
		}
		newStart := start
		if !m.inverted {
			newStart = start + diff
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Mapping is a sequence of step maps applied in order.
type Mapping struct {
	maps []StepMap
}

// Append adds a map.
func (m *Mapping) Append(sm StepMap) {
	m.maps = append(m.maps, sm)
}

// Maps returns the step maps.
func (m *Mapping) Maps() []StepMap { return m.maps }

// Map maps pos through every step.
func (m *Mapping) Map(pos, assoc int) int {
	for _, sm := range m.maps {
		pos = sm.Map(pos, assoc)
	}
	return pos
}

// Slice returns the mapping of the steps from index from onwards.
func (m *Mapping) Slice(from int) *Mapping {
	return &Mapping{maps: append([]StepMap(nil), m.maps[from:]...)}
}
