// Package xmldoc wraps etree documents with namespace-aware lookups
// and the text helpers shared by every record parser.
package xmldoc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed XML document
type Document struct {
	tree *etree.Document
}

// Parse parses well-formed XML
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return &Document{tree: tree}, nil
}

// MustParse parses XML and panics on error. Intended for tests.
func MustParse(data string) *Document {
	doc, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return doc
}

// Root returns the document element
func (d *Document) Root() *etree.Element {
	return d.tree.Root()
}

// Find returns the first element matching path relative to the root
func (d *Document) Find(path string) *etree.Element {
	return Find(d.Root(), path)
}

// FindAll returns all elements matching path relative to the root
func (d *Document) FindAll(path string) []*etree.Element {
	return FindAll(d.Root(), path)
}

// FindText returns the direct text of the first match relative to the root
func (d *Document) FindText(path string) string {
	return FindText(d.Root(), path)
}

// Find returns the first element matching path, or nil
func Find(el *etree.Element, path string) *etree.Element {
	matches := FindAll(el, path)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// FindAll returns all elements matching path in document order.
// Paths must only use prefixes from Namespaces; an invalid path panics
// since paths are compile-time constants.
func FindAll(el *etree.Element, path string) []*etree.Element {
	if el == nil {
		return nil
	}
	compiled, err := compile(path)
	if err != nil {
		panic(err)
	}

	found := el.FindElementsPath(compiled)
	if strings.Contains(path, "//") {
		documentOrder(el, found)
	}
	return found
}

// documentOrder sorts descendants of root in place. etree walks
// descendant steps breadth first.
func documentOrder(root *etree.Element, found []*etree.Element) {
	if len(found) < 2 {
		return
	}
	pos := make(map[*etree.Element]int)
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		pos[e] = len(pos)
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	sort.SliceStable(found, func(i, j int) bool {
		return pos[found[i]] < pos[found[j]]
	})
}

// FindText returns the direct text of the first element matching path,
// or "" when nothing matches
func FindText(el *etree.Element, path string) string {
	if found := Find(el, path); found != nil {
		return found.Text()
	}
	return ""
}

// Attr returns an attribute value by key. The key may carry a
// prefix ("xml:id") which is matched literally.
func Attr(el *etree.Element, key string) (string, bool) {
	if el == nil {
		return "", false
	}
	space, local, ok := strings.Cut(key, ":")
	if !ok {
		space, local = "", key
	}
	for _, a := range el.Attr {
		if a.Key == local && a.Space == space {
			return a.Value, true
		}
	}
	return "", false
}

// XMLID returns the xml:id attribute regardless of the prefix it was written with
func XMLID(el *etree.Element) (string, bool) {
	for _, a := range el.Attr {
		if a.Key == "id" && (a.Space == "xml" || a.NamespaceURI() == XMLNamespace) {
			return a.Value, true
		}
	}
	return "", false
}

// AllText concatenates all descendant character data in document order
func AllText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return b.String()
}

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}\x{0085}\x{2028}\x{2029}]+`)

// NormalizeSpace collapses whitespace runs to a single space and trims the ends
func NormalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
