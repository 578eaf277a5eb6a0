// Package classify maps arbitrary form controls to semantic field kinds.
// Classification is layered: explicit input type first, then the ordered
// catalog keyword table, then control-semantics fallbacks. It is a pure
// function over the control variant; identical attributes always yield
// the identical kind.
package classify

import (
	"strings"

	"formrunner/internal/catalog"
	"formrunner/internal/form"
)

type entry struct {
	kind     form.Kind
	keywords []string
}

// Classifier holds the compiled keyword table.
type Classifier struct {
	entries []entry
}

// New compiles the catalog's ordered field table. Entries with
// unrecognized kinds are dropped rather than misclassifying.
func New(cat *catalog.Catalog) *Classifier {
	c := &Classifier{}
	for _, f := range cat.Fields {
		kind := form.ParseKind(f.Kind)
		if kind == form.KindUnknown {
			continue
		}
		kws := make([]string, 0, len(f.Keywords))
		for _, kw := range f.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.entries = append(c.entries, entry{kind: kind, keywords: kws})
	}
	return c
}

// Classify maps one control to a kind without page context. The lone
// text-input fallback needs the whole control set; use ClassifyAll for
// that rule.
func (c *Classifier) Classify(ctrl form.Control) form.Kind {
	// Explicit input semantics beat any vocabulary.
	switch ctrl.Type {
	case form.ControlEmail:
		return form.KindEmail
	case form.ControlTel:
		return form.KindPhone
	}

	haystack := ctrl.Haystack()
	for _, e := range c.entries {
		for _, kw := range e.keywords {
			if strings.Contains(haystack, kw) {
				return e.kind
			}
		}
	}

	// A textarea with no vocabulary match is almost always the message
	// body.
	if ctrl.Type == form.ControlTextarea {
		return form.KindMessage
	}
	return form.KindUnknown
}

// ClassifyAll classifies every control on a page, applying the
// page-context rule: a single unmatched text input, when no other text
// input classified, is treated as the full-name field.
func (c *Classifier) ClassifyAll(ctrls []form.Control) []form.Kind {
	kinds := make([]form.Kind, len(ctrls))
	classifiedText := 0
	unknownText := []int{}
	for i, ctrl := range ctrls {
		kinds[i] = c.Classify(ctrl)
		if ctrl.Type == form.ControlText {
			if kinds[i] == form.KindUnknown {
				unknownText = append(unknownText, i)
			} else {
				classifiedText++
			}
		}
	}
	if classifiedText == 0 && len(unknownText) == 1 {
		kinds[unknownText[0]] = form.KindFullName
	}
	return kinds
}
