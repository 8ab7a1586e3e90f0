package schema

import (
	"fmt"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/wire"
)

// Policy decides what happens to invalid content on load.
type Policy int

const (
	// PolicyReject fails the whole load on the first problem.
	PolicyReject Policy = iota
	// PolicyDrop removes offending content and reports warnings.
	PolicyDrop
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyDrop {
		return "drop"
	}
	return "reject"
}

// ParsePolicy maps "reject" or "drop" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reject":
		return PolicyReject, nil
	case "drop":
		return PolicyDrop, nil
	}
	return PolicyReject, fmt.Errorf("unknown load policy %q", s)
}

// Loader turns serialized values into validated documents.
type Loader struct {
	validator *Validator
	policy    Policy
}

// NewLoader returns a loader for cat.
func NewLoader(cat *catalog.Catalog, policy Policy) *Loader {
	return &Loader{validator: NewValidator(cat), policy: policy}
}

// Policy returns the load policy.
func (l *Loader) Policy() Policy { return l.policy }

// Validator returns the loader's validator.
func (l *Loader) Validator() *Validator { return l.validator }

// Load decodes and validates data. Malformed JSON fails under either policy.
func (l *Loader) Load(data []byte) (*model.Node, []Warning, error) {
	w, err := wire.Decode(data)
	if err != nil {
		return nil, nil, asSchemaError(err)
	}
	return l.LoadWire(w)
}

// LoadWire validates an already decoded document.
func (l *Loader) LoadWire(w *wire.Document) (*model.Node, []Warning, error) {
	cat := l.validator.Catalog()
	if l.policy == PolicyDrop {
		doc, warnings := Sanitize(cat, w)
		if err := l.validator.Validate(doc); err != nil {
			return nil, warnings, err
		}
		return doc, warnings, nil
	}
	doc, err := model.DocFromWire(cat, w)
	if err != nil {
		return nil, nil, asSchemaError(err)
	}
	doc = Normalize(doc)
	if err := l.validator.Validate(doc); err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

// Empty returns the smallest valid document for cat.
func Empty(cat *catalog.Catalog) *model.Node {
	if doc := model.CreateAndFill(cat.Doc(), nil, nil); doc != nil {
		return doc
	}
	return model.NewNode(cat.Doc(), nil, nil)
}
