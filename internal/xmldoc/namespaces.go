package xmldoc

// Namespace URIs used by the MOM export, keyed by the prefix used in lookup paths.
// The prefixes are fixed here; documents may bind their own prefixes to the
// same URIs.
var Namespaces = map[string]string{
	"app":    "http://www.w3.org/2007/app",
	"atom":   "http://www.w3.org/2005/Atom",
	"cei":    "http://www.monasterium.net/NS/cei",
	"ead":    "urn:isbn:1-931666-22-9",
	"eag":    "http://www.archivgut-online.de/eag",
	"exist":  "http://exist.sourceforge.net/NS/exist",
	"momtei": "http://www.tei-c.org/ns/1.0/",
	"oei":    "http://www.monasterium.net/NS/oei",
	"tei":    "http://www.tei-c.org/ns/1.0",
	"xrx":    "http://www.monasterium.net/NS/xrx",
}

// XMLNamespace is the namespace implicitly bound to the xml prefix
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"
