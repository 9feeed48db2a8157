package testutil

import (
	"fmt"
	"strings"
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func esc(s string) string {
	return escaper.Replace(s)
}

// ContentsXML renders an eXist directory descriptor
func ContentsXML(collections, resources []string) string {
	var b strings.Builder
	b.WriteString(`<exist:collection xmlns:exist="http://exist.sourceforge.net/NS/exist" name="/db" owner="admin" group="dba" mode="0755">` + "\n")
	for _, c := range collections {
		fmt.Fprintf(&b, `  <exist:subcollection name="%s" filename="%s"/>`+"\n", esc(c), esc(c))
	}
	for _, r := range resources {
		fmt.Fprintf(&b, `  <exist:resource type="XMLResource" name="%s" filename="%s" mimetype="application/xml"/>`+"\n", esc(r), esc(r))
	}
	b.WriteString(`</exist:collection>`)
	return b.String()
}

// SavedRecord is a user's save entry for a charter
type SavedRecord struct {
	AtomID    string
	StartTime string
	Released  bool
}

// User describes a user document
type User struct {
	Email     string
	FirstName string
	Name      string
	Moderator string
	Bookmarks []string
	Saved     []SavedRecord
}

// UserXML renders an xrx user document
func UserXML(u User) string {
	var b strings.Builder
	b.WriteString(`<xrx:user xmlns:xrx="http://www.monasterium.net/NS/xrx">` + "\n")
	fmt.Fprintf(&b, "  <xrx:username/>\n  <xrx:firstname>%s</xrx:firstname>\n  <xrx:name>%s</xrx:name>\n", esc(u.FirstName), esc(u.Name))
	fmt.Fprintf(&b, "  <xrx:email>%s</xrx:email>\n  <xrx:moderator>%s</xrx:moderator>\n", esc(u.Email), esc(u.Moderator))
	b.WriteString("  <xrx:bookmarks>\n")
	for _, bm := range u.Bookmarks {
		fmt.Fprintf(&b, "    <xrx:bookmark>%s</xrx:bookmark>\n", esc(bm))
	}
	b.WriteString("  </xrx:bookmarks>\n  <xrx:saved_list>\n")
	for _, s := range u.Saved {
		released := "no"
		if s.Released {
			released = "yes"
		}
		fmt.Fprintf(&b, "    <xrx:saved><xrx:id>%s</xrx:id><xrx:start_time>%s</xrx:start_time><xrx:freigabe>%s</xrx:freigabe></xrx:saved>\n",
			esc(s.AtomID), esc(s.StartTime), released)
	}
	b.WriteString("  </xrx:saved_list>\n</xrx:user>")
	return b.String()
}

// BookmarkNotesXML renders a bookmark-notes side file
func BookmarkNotesXML(notes map[string]string) string {
	var b strings.Builder
	b.WriteString(`<xrx:bookmark_notes xmlns:xrx="http://www.monasterium.net/NS/xrx">` + "\n")
	for _, atomID := range sortedKeysString(notes) {
		fmt.Fprintf(&b, "  <xrx:bookmark_note><xrx:bookmark>%s</xrx:bookmark><xrx:note>%s</xrx:note></xrx:bookmark_note>\n",
			esc(atomID), esc(notes[atomID]))
	}
	b.WriteString(`</xrx:bookmark_notes>`)
	return b.String()
}

// ArchiveEAG renders an archive description
func ArchiveEAG(atomID, repositoryID, countryCode, name string) string {
	return fmt.Sprintf(`<atom:entry xmlns:atom="http://www.w3.org/2005/Atom">
  <atom:id>%s</atom:id>
  <atom:content type="application/xml">
    <eag:eag xmlns:eag="http://www.archivgut-online.de/eag">
      <eag:archguide>
        <eag:identity>
          <eag:repositorid countrycode="%s">%s</eag:repositorid>
          <eag:autform>%s</eag:autform>
        </eag:identity>
      </eag:archguide>
    </eag:eag>
  </atom:content>
</atom:entry>`, esc(atomID), esc(countryCode), esc(repositoryID), esc(name))
}

// OaiXML renders an archive's OAI sharing document
func OaiXML(fonds []string, harvesters []string) string {
	var b strings.Builder
	b.WriteString(`<oei:oai xmlns:oei="http://www.monasterium.net/NS/oei">` + "\n")
	for _, f := range fonds {
		fmt.Fprintf(&b, "  <oei:fond>%s</oei:fond>\n", esc(f))
	}
	for _, h := range harvesters {
		fmt.Fprintf(&b, "  <oei:harvester>%s</oei:harvester>\n", esc(h))
	}
	b.WriteString(`</oei:oai>`)
	return b.String()
}

// FondEAD renders a fond finding aid
func FondEAD(atomID, unitID, title string) string {
	return fmt.Sprintf(`<atom:entry xmlns:atom="http://www.w3.org/2005/Atom">
  <atom:id>%s</atom:id>
  <atom:content type="application/xml">
    <ead:ead xmlns:ead="urn:isbn:1-931666-22-9">
      <ead:archdesc level="otherlevel">
        <ead:did>
          <ead:unitid identifier="%s">%s</ead:unitid>
          <ead:unittitle>%s</ead:unittitle>
        </ead:did>
      </ead:archdesc>
    </ead:ead>
  </atom:content>
</atom:entry>`, esc(atomID), esc(unitID), esc(unitID), esc(title))
}

// FondPreferences renders a fond preferences document
func FondPreferences(imageAccess, imageBaseURL string) string {
	return fmt.Sprintf(`<xrx:preferences xmlns:xrx="http://www.monasterium.net/NS/xrx">
  <xrx:param name="image-access">%s</xrx:param>
  <xrx:param name="image-server-base-url">%s</xrx:param>
</xrx:preferences>`, esc(imageAccess), esc(imageBaseURL))
}

// Collection describes a collection or mycollection document
type Collection struct {
	AtomID       string
	Provenance   string
	Title        string
	ImageAddress string
	ImageFolder  string
	LinkedFonds  []string
	AuthorEmail  string
}

// CollectionCEI renders a collection document
func CollectionCEI(c Collection) string {
	var b strings.Builder
	b.WriteString(`<atom:entry xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	fmt.Fprintf(&b, "  <atom:id>%s</atom:id>\n", esc(c.AtomID))
	if c.AuthorEmail != "" {
		fmt.Fprintf(&b, "  <atom:author><atom:email>%s</atom:email></atom:author>\n", esc(c.AuthorEmail))
	}
	b.WriteString(`  <atom:content type="application/xml">` + "\n")
	b.WriteString(`    <cei:cei xmlns:cei="http://www.monasterium.net/NS/cei">` + "\n")
	b.WriteString("      <cei:teiHeader><cei:fileDesc>\n")
	fmt.Fprintf(&b, "        <cei:title>%s</cei:title>\n", esc(c.Title))
	b.WriteString("        <cei:sourceDesc><cei:sourceDescRegest><cei:bibl/></cei:sourceDescRegest></cei:sourceDesc>\n")
	b.WriteString("      </cei:fileDesc></cei:teiHeader>\n")
	b.WriteString("      <cei:text><cei:front>\n")
	fmt.Fprintf(&b, "        <cei:provenance>%s<cei:country/></cei:provenance>\n", esc(c.Provenance))
	if c.ImageAddress != "" {
		fmt.Fprintf(&b, "        <cei:image_server_address>%s</cei:image_server_address>\n", esc(c.ImageAddress))
	}
	if c.ImageFolder != "" {
		fmt.Fprintf(&b, "        <cei:image_server_folder>%s</cei:image_server_folder>\n", esc(c.ImageFolder))
	}
	b.WriteString("      </cei:front>\n      <cei:group>\n")
	for _, f := range c.LinkedFonds {
		fmt.Fprintf(&b, `        <cei:text id="%s" type="fond"/>`+"\n", esc(f))
	}
	b.WriteString("      </cei:group></cei:text>\n    </cei:cei>\n  </atom:content>\n</atom:entry>")
	return b.String()
}

// Charter describes a charter document. Abstract, Tenor and Back are
// inner XML and may contain cei:persName elements.
type Charter struct {
	AtomID      string
	IdnoID      string
	IdnoText    string
	NoIdno      bool
	Date        string
	DateText    string
	DateFrom    string
	DateTo      string
	RangeText   string
	Abstract    string
	Tenor       string
	Back        string
	Graphics    []string
	AuthorEmail string
	LinkRef     string
}

// CharterCEI renders a charter document
func CharterCEI(c Charter) string {
	var b strings.Builder
	b.WriteString(`<atom:entry xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	fmt.Fprintf(&b, "  <atom:id>%s</atom:id>\n", esc(c.AtomID))
	if c.AuthorEmail != "" {
		fmt.Fprintf(&b, "  <atom:author><atom:email>%s</atom:email></atom:author>\n", esc(c.AuthorEmail))
	}
	if c.LinkRef != "" {
		fmt.Fprintf(&b, `  <atom:link rel="versionOf" ref="%s"/>`+"\n", esc(c.LinkRef))
	}
	b.WriteString(`  <atom:content type="application/xml">` + "\n")
	b.WriteString(`    <cei:text xmlns:cei="http://www.monasterium.net/NS/cei" type="charter">` + "\n")
	b.WriteString("      <cei:body>\n")
	if !c.NoIdno {
		idAttr := ""
		if c.IdnoID != "" {
			idAttr = fmt.Sprintf(` id="%s"`, esc(c.IdnoID))
		}
		fmt.Fprintf(&b, "        <cei:idno%s>%s</cei:idno>\n", idAttr, esc(c.IdnoText))
	}
	b.WriteString("        <cei:chDesc>\n")
	if c.Abstract != "" {
		fmt.Fprintf(&b, "          <cei:abstract>%s</cei:abstract>\n", c.Abstract)
	}
	b.WriteString("          <cei:issued>\n")
	if c.Date != "" {
		fmt.Fprintf(&b, `            <cei:date value="%s">%s</cei:date>`+"\n", esc(c.Date), esc(c.DateText))
	}
	if c.DateFrom != "" || c.DateTo != "" {
		fmt.Fprintf(&b, `            <cei:dateRange from="%s" to="%s">%s</cei:dateRange>`+"\n", esc(c.DateFrom), esc(c.DateTo), esc(c.RangeText))
	}
	b.WriteString("          </cei:issued>\n")
	b.WriteString("          <cei:witnessOrig><cei:figure>\n")
	for _, g := range c.Graphics {
		fmt.Fprintf(&b, `            <cei:graphic url="%s"/>`+"\n", esc(g))
	}
	b.WriteString("          </cei:figure></cei:witnessOrig>\n")
	b.WriteString("        </cei:chDesc>\n")
	if c.Tenor != "" {
		fmt.Fprintf(&b, "        <cei:tenor>%s</cei:tenor>\n", c.Tenor)
	}
	b.WriteString("      </cei:body>\n")
	if c.Back != "" {
		fmt.Fprintf(&b, "      <cei:back>%s</cei:back>\n", c.Back)
	}
	b.WriteString("    </cei:text>\n  </atom:content>\n</atom:entry>")
	return b.String()
}

// IndexPerson describes a person entry of a TEI person index
type IndexPerson struct {
	XMLID    string
	Wikidata string
	Names    []string
}

// PersonIndexTEI renders a TEI person index
func PersonIndexTEI(atomID string, persons ...IndexPerson) string {
	var b strings.Builder
	b.WriteString(`<atom:entry xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	fmt.Fprintf(&b, "  <atom:id>%s</atom:id>\n", esc(atomID))
	b.WriteString(`  <atom:content type="application/xml">` + "\n")
	b.WriteString(`    <TEI xmlns="http://www.tei-c.org/ns/1.0/"><text><body><listPerson>` + "\n")
	for _, p := range persons {
		if p.XMLID != "" {
			fmt.Fprintf(&b, `      <person xml:id="%s">`+"\n", esc(p.XMLID))
		} else {
			b.WriteString("      <person>\n")
		}
		for _, n := range p.Names {
			fmt.Fprintf(&b, "        <persName>%s</persName>\n", esc(n))
		}
		if p.Wikidata != "" {
			fmt.Fprintf(&b, `        <idno type="URI">%s</idno>`+"\n", esc(p.Wikidata))
		}
		b.WriteString("      </person>\n")
	}
	b.WriteString("    </listPerson></body></text></TEI>\n  </atom:content>\n</atom:entry>")
	return b.String()
}

func sortedKeysString(m map[string]string) []string {
	keys := make(map[string]bool, len(m))
	for k := range m {
		keys[k] = true
	}
	return sortedKeys(keys)
}
