package preview

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/model"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// DefaultPolicy returns the sanitizing policy used by previews: user
// generated content plus the attributes the default catalog renders.
func DefaultPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyles("color").OnElements("span", "li")
	p.AllowStyles("text-align").Matching(regexp.MustCompile(`^(left|center|right|justify)$`)).OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowStyles("background-color").OnElements("mark")
	p.AllowAttrs("data-color").OnElements("mark")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_(blank|self|parent|top)$`)).OnElements("a")
	return p
}

// Render returns doc as unsanitized HTML.
func Render(doc *model.Node) (string, error) {
	root := &html.Node{Type: html.DocumentNode}
	appendContent(root, doc.Content())

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render: %w", err)
		}
	}
	return buf.String(), nil
}

// appendContent renders children into parent. Marks shared by adjacent
// inline nodes share one element.
func appendContent(parent *html.Node, children []*model.Node) {
	type open struct {
		mark *model.Mark
		el   *html.Node
	}
	var stack []open
	target := func() *html.Node {
		if len(stack) == 0 {
			return parent
		}
		return stack[len(stack)-1].el
	}

	for _, child := range children {
		marks := child.Marks()
		keep := 0
		for keep < len(stack) && keep < len(marks) && stack[keep].mark.Eq(marks[keep]) {
			keep++
		}
		stack = stack[:keep]
		for _, m := range marks[keep:] {
			outer, inner := element(m.Type().Render, m.Attrs())
			if outer == nil {
				continue
			}
			target().AppendChild(outer)
			stack = append(stack, open{mark: m, el: inner})
		}
		appendNode(target(), child)
	}
}

func appendNode(parent *html.Node, n *model.Node) {
	if n.IsText() {
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text()})
		return
	}
	outer, inner := element(n.Type().Render, n.Attrs())
	if outer == nil {
		appendContent(parent, n.Content())
		return
	}
	parent.AppendChild(outer)
	appendContent(inner, n.Content())
}

// element builds the elements named by rule. Attributes go on the
// innermost one.
func element(rule catalog.RenderRule, attrs map[string]any) (outer, inner *html.Node) {
	tag, _ := expand(rule.Tag, attrs)
	for _, name := range strings.Fields(tag) {
		el := &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
		if outer == nil {
			outer = el
		} else {
			inner.AppendChild(el)
		}
		inner = el
	}
	if inner == nil {
		return nil, nil
	}

	keys := make([]string, 0, len(rule.Attrs))
	for k := range rule.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := expand(rule.Attrs[k], attrs); ok {
			inner.Attr = append(inner.Attr, html.Attribute{Key: k, Val: v})
		}
	}
	return outer, inner
}

// expand fills {name} placeholders from attrs. It reports false when a
// placeholder has no value.
func expand(tmpl string, attrs map[string]any) (string, bool) {
	ok := true
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		v := attrs[m[1:len(m)-1]]
		if v == nil || v == "" {
			ok = false
			return ""
		}
		return fmt.Sprint(v)
	})
	return out, ok
}
