package command

import (
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/transform"
)

const alignAttr = "textAlign"

func registerAlign(r *Registry) {
	r.Register("setTextAlign", setTextAlign)
	r.Register("unsetTextAlign", unsetTextAlign)
}

// alignBlocks sets the alignment of every textblock in the selection whose
// type declares one. A nil value clears it.
func alignBlocks(tx *transform.Transaction, value any) error {
	from, to := selectionRange(tx)
	found := false
	tx.SetKind(transform.KindFormat)
	err := tx.Textblocks(from, to, func(n *model.Node, pos int) error {
		t := n.Type()
		if _, ok := t.Attr(alignAttr); !ok {
			return nil
		}
		found = true
		if err := t.CheckAttr(alignAttr, value); err != nil {
			return &Refusal{Reason: "invalid alignment", Err: err}
		}
		if n.Attr(alignAttr) == value {
			return nil
		}
		attrs := make(map[string]any, len(n.Attrs())+1)
		for k, v := range n.Attrs() {
			attrs[k] = v
		}
		attrs[alignAttr] = value
		return tx.SetNodeMarkup(pos, t, attrs)
	})
	if err != nil {
		return err
	}
	if !found {
		return refuse("no alignable block in the selection")
	}
	return nil
}

func setTextAlign(tx *transform.Transaction, p Params) error {
	align := p.String("alignment")
	if align == "" {
		return refuse("alignment is required")
	}
	return alignBlocks(tx, align)
}

func unsetTextAlign(tx *transform.Transaction, _ Params) error {
	return alignBlocks(tx, nil)
}
