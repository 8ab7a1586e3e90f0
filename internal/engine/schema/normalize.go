package schema

import (
	"github.com/slekup/big-brain/internal/engine/model"
)

// Normalize returns doc in canonical form: marks sorted by rank and
// adjacent text runs with equal marks merged. Unchanged subtrees are shared.
func Normalize(doc *model.Node) *model.Node {
	if doc.IsText() {
		sorted := model.SortMarks(doc.Marks())
		if model.SameMarkSet(sorted, doc.Marks()) {
			return doc
		}
		return doc.WithMarks(sorted)
	}
	changed := false
	var content []*model.Node
	for _, c := range doc.Content() {
		nc := Normalize(c)
		if nc != c {
			changed = true
		}
		before := len(content)
		content = model.AppendNode(content, nc)
		if len(content) == before {
			changed = true
		}
	}
	if !changed {
		return doc
	}
	return doc.Copy(content)
}
