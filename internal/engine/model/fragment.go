package model

// FragmentSize sums the sizes of nodes.
func FragmentSize(nodes []*Node) int {
	size := 0
	for _, n := range nodes {
		size += n.size
	}
	return size
}

// CutFragment returns the part of a child list between content positions
// from and to, cutting partially covered children. An empty range yields
// no nodes.
func CutFragment(nodes []*Node, from, to int) []*Node {
	if from >= to {
		return nil
	}
	var out []*Node
	pos := 0
	for _, child := range nodes {
		if pos >= to {
			break
		}
		end := pos + child.size
		if end > from {
			switch {
			case pos >= from && end <= to:
				out = append(out, child)
			case child.IsText():
				s, e := max(0, from-pos), min(child.size, to-pos)
				if s < e {
					out = append(out, child.Cut(s, e))
				}
			default:
				out = append(out, child.Cut(max(0, from-pos-1), min(child.ContentSize(), to-pos-1)))
			}
		}
		pos = end
	}
	return out
}

// AppendNode appends n to nodes, merging it into a preceding text node
// with the same marks.
func AppendNode(nodes []*Node, n *Node) []*Node {
	if len(nodes) > 0 && n.IsText() {
		last := nodes[len(nodes)-1]
		if last.IsText() && SameMarkSet(last.marks, n.marks) {
			out := append([]*Node(nil), nodes[:len(nodes)-1]...)
			return append(out, last.WithText(last.text+n.text))
		}
	}
	return append(nodes[:len(nodes):len(nodes)], n)
}

// JoinFragments concatenates child lists, merging text at each seam.
func JoinFragments(parts ...[]*Node) []*Node {
	var out []*Node
	for _, part := range parts {
		for _, n := range part {
			out = AppendNode(out, n)
		}
	}
	return out
}

// FragmentEq compares two child lists.
func FragmentEq(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}
