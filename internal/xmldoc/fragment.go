package xmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// Serialize writes el as a standalone XML fragment. Namespace declarations
// inherited from ancestors are copied onto the fragment root.
func Serialize(el *etree.Element) string {
	if el == nil {
		return ""
	}
	fragment := el.Copy()

	declared := make(map[string]bool)
	for _, a := range fragment.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		} else if a.Space == "" && a.Key == "xmlns" {
			declared[""] = true
		}
	}
	for e := el.Parent(); e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			switch {
			case a.Space == "xmlns" && !declared[a.Key]:
				declared[a.Key] = true
				fragment.CreateAttr("xmlns:"+a.Key, a.Value)
			case a.Space == "" && a.Key == "xmlns" && !declared[""]:
				declared[""] = true
				fragment.CreateAttr("xmlns", a.Value)
			}
		}
	}

	doc := etree.NewDocument()
	doc.SetRoot(fragment)
	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

// RecoverFragment returns a well-formed rendition of an XML fragment.
// Strict parsing is tried first, then permissive parsing, then a
// text-only recovery. ok is false when nothing with content survives,
// in which case the field should be treated as absent.
func RecoverFragment(fragment string) (string, bool) {
	if strings.TrimSpace(fragment) == "" {
		return "", false
	}

	// Strict
	strict := etree.NewDocument()
	if err := strict.ReadFromString(fragment); err == nil && strict.Root() != nil {
		if hasContent(strict.Root()) {
			return fragment, true
		}
		return "", false
	}

	// Permissive
	lenient := etree.NewDocument()
	lenient.ReadSettings.Permissive = true
	if err := lenient.ReadFromString(fragment); err == nil && lenient.Root() != nil && hasContent(lenient.Root()) {
		if out, err := lenient.WriteToString(); err == nil {
			if reparsed := etree.NewDocument(); reparsed.ReadFromString(out) == nil {
				return out, true
			}
		}
	}

	// Text only
	html, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", false
	}
	text := NormalizeSpace(html.Text())
	if text == "" {
		return "", false
	}
	doc := etree.NewDocument()
	doc.CreateElement("recovered").SetText(text)
	out, err := doc.WriteToString()
	if err != nil {
		return "", false
	}
	return out, true
}

// PlainText extracts normalized text from a serialized fragment
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(fragment); err != nil || doc.Root() == nil {
		return ""
	}
	return NormalizeSpace(AllText(doc.Root()))
}

func hasContent(el *etree.Element) bool {
	return NormalizeSpace(AllText(el)) != "" || len(el.ChildElements()) > 0
}
