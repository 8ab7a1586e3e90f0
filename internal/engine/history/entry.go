package history

import (
	"time"

	"github.com/slekup/big-brain/internal/engine/cursor"
	"github.com/slekup/big-brain/internal/engine/transform"
)

// entry is one undo or redo unit. Applying steps in order and then setting
// sel reverts the recorded change; after is the selection the change left.
type entry struct {
	steps []transform.Step
	sel   cursor.Selection
	after cursor.Selection
	kind  transform.Kind
	time  time.Time
	count int
}

func newEntry(tx *transform.Transaction) *entry {
	return &entry{
		steps: tx.Inverse(),
		sel:   tx.StartSelection(),
		after: tx.Selection(),
		kind:  tx.Kind(),
		time:  tx.Time(),
		count: 1,
	}
}

// merge folds tx, which was committed after e, into e.
func (e *entry) merge(tx *transform.Transaction) {
	e.steps = append(tx.Inverse(), e.steps...)
	e.after = tx.Selection()
	e.time = tx.Time()
	e.count++
}

// Info describes an entry without exposing its steps.
type Info struct {
	Kind      transform.Kind
	Timestamp time.Time
	Steps     int
	Merged    int
}

func (e *entry) info() Info {
	return Info{Kind: e.kind, Timestamp: e.time, Steps: len(e.steps), Merged: e.count}
}
