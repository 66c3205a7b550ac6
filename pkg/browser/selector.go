package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

const textPrefix = "text="

type selector struct {
	raw   string
	xpath string // set for text= selectors
}

func parseSelector(s string) selector {
	if label, ok := strings.CutPrefix(s, textPrefix); ok {
		label = strings.Trim(strings.TrimSpace(label), `"'`)
		return selector{
			raw:   s,
			xpath: fmt.Sprintf("//*[text()[contains(normalize-space(.), %s)]]", xpathLiteral(label)),
		}
	}
	return selector{raw: s}
}

func (s selector) isText() bool { return s.xpath != "" }

// query is what chromedp receives: XPath for text selectors, CSS otherwise
func (s selector) query() string {
	if s.isText() {
		return s.xpath
	}
	return s.raw
}

// jsFirst is a JS expression evaluating to the first matching element or null
func (s selector) jsFirst() string {
	if s.isText() {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", jsString(s.xpath))
	}
	return fmt.Sprintf("document.querySelector(%s)", jsString(s.raw))
}

// jsCount is a JS expression evaluating to the number of matching elements
func (s selector) jsCount() string {
	if s.isText() {
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.NUMBER_TYPE, null).numberValue", jsString("count("+s.xpath+")"))
	}
	return fmt.Sprintf("document.querySelectorAll(%s).length", jsString(s.raw))
}

// jsClear empties an input or a contenteditable element
func (s selector) jsClear() string {
	return fmt.Sprintf(`(function(el) {
	if (!el) { return false; }
	if ('value' in el) { el.value = ''; } else { el.textContent = ''; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
})(%s)`, s.jsFirst())
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
