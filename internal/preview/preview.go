package preview

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/model"
	"github.com/slekup/big-brain/internal/engine/schema"
	"github.com/slekup/big-brain/internal/engine/wire"
	"github.com/slekup/big-brain/internal/logging"
)

// Preview holds one read-only document.
type Preview struct {
	cat    *catalog.Catalog
	loader *schema.Loader
	policy *bluemonday.Policy
	count  guard.Guard
	logger *logging.Logger

	mu       sync.RWMutex
	doc      *model.Node
	warnings []schema.Warning
	html     string
	rendered bool
}

// Option configures a Preview.
type Option func(*Preview)

// WithLogger sets the logger that receives load warnings.
func WithLogger(l *logging.Logger) Option {
	return func(p *Preview) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPolicy replaces the HTML sanitizing policy.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(p *Preview) {
		if policy != nil {
			p.policy = policy
		}
	}
}

// WithLoadPolicy sets what happens to content the catalog rejects. The
// default drops it with a warning.
func WithLoadPolicy(policy schema.Policy) Option {
	return func(p *Preview) {
		p.loader = schema.NewLoader(p.cat, policy)
	}
}

// WithCharCounting sets how CharacterCount counts.
func WithCharCounting(c guard.Counting) Option {
	return func(p *Preview) {
		p.count.Counting = c
	}
}

// New creates an empty preview for cat.
func New(cat *catalog.Catalog, opts ...Option) *Preview {
	p := &Preview{
		cat:    cat,
		loader: schema.NewLoader(cat, schema.PolicyDrop),
		policy: DefaultPolicy(),
		count:  guard.New(guard.Unset, guard.Runes),
		logger: logging.Nop(),
		doc:    schema.Empty(cat),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("preview")
	return p
}

// SetContent loads a serialized document. Content the catalog rejects is
// dropped with a warning. Only malformed JSON fails, and then the previous
// content stays.
func (p *Preview) SetContent(data []byte) error {
	doc, warnings, err := p.loader.Load(data)
	return p.set(doc, warnings, err)
}

// SetValue loads an already decoded document.
func (p *Preview) SetValue(doc *wire.Document) error {
	node, warnings, err := p.loader.LoadWire(doc)
	return p.set(node, warnings, err)
}

func (p *Preview) set(doc *model.Node, warnings []schema.Warning, err error) error {
	for _, w := range warnings {
		p.logger.Warn("content dropped", "path", w.Path, "reason", w.Message)
	}
	if err != nil {
		p.logger.Warn("content rejected", "error", err)
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.warnings = warnings
	p.html, p.rendered = "", false
	return nil
}

// Doc returns the loaded document.
func (p *Preview) Doc() *model.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

// Warnings returns what the last load dropped.
func (p *Preview) Warnings() []schema.Warning {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]schema.Warning(nil), p.warnings...)
}

// HTML returns the sanitized HTML rendering of the document.
func (p *Preview) HTML() (string, error) {
	p.mu.RLock()
	if p.rendered {
		defer p.mu.RUnlock()
		return p.html, nil
	}
	doc := p.doc
	p.mu.RUnlock()

	raw, err := Render(doc)
	if err != nil {
		return "", err
	}
	out := p.policy.Sanitize(raw)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == doc {
		p.html, p.rendered = out, true
	}
	return out, nil
}

// Text returns the plain text, one line per block.
func (p *Preview) Text() string {
	doc := p.Doc()
	return doc.TextBetween(0, doc.ContentSize(), "\n", "")
}

// CharacterCount counts the document's text.
func (p *Preview) CharacterCount() int {
	return p.count.Count(p.Doc())
}
