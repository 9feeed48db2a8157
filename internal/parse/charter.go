package parse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/dateutil"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/persons"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// charterSource is what the variant parsers know before the shared fields are read
type charterSource struct {
	file      string
	doc       *xmldoc.Document
	kind      id.Kind
	tier      domain.Tier
	url       string
	imageBase *string
	users     *Index
}

// CharterName strips the document suffix from a charter file name
func CharterName(file string) string {
	name := paths.StripSuffix(file, ".cei.xml")
	return paths.StripSuffix(name, ".charter.xml")
}

// FondCharter parses a public charter of a fond
func FondCharter(ctx *Context, file string, fond *domain.Fond, cei *xmldoc.Document, users *Index) (*domain.FondCharter, error) {
	base, err := charter(ctx, charterSource{
		file:      file,
		doc:       cei,
		kind:      id.KindCharter,
		tier:      domain.TierPublic,
		url:       paths.JoinURL(paths.MomBaseURL, fond.ArchiveFile, fond.File, CharterName(file), "charter"),
		imageBase: fond.ImageBase,
		users:     users,
	})
	if err != nil {
		return nil, err
	}

	return &domain.FondCharter{
		Charter:     *base,
		ArchiveID:   fond.ArchiveID,
		ArchiveFile: fond.ArchiveFile,
		FondID:      fond.ID,
		FondFile:    fond.File,
	}, nil
}

// CollectionCharter parses a public charter of a collection
func CollectionCharter(ctx *Context, file string, collection *domain.Collection, cei *xmldoc.Document, users *Index) (*domain.CollectionCharter, error) {
	base, err := charter(ctx, charterSource{
		file:      file,
		doc:       cei,
		kind:      id.KindCharter,
		tier:      domain.TierPublic,
		url:       paths.JoinURL(paths.MomBaseURL, collection.File, CharterName(file), "charter"),
		imageBase: collection.ImageBase,
		users:     users,
	})
	if err != nil {
		return nil, err
	}

	return &domain.CollectionCharter{
		Charter:        *base,
		CollectionID:   collection.ID,
		CollectionFile: collection.File,
	}, nil
}

// PublicCharter parses a charter of a public copy of a private collection.
// The owner and collection atom id are kept for matching the private original.
func PublicCharter(ctx *Context, file string, collection *domain.Collection, cei *xmldoc.Document, users *Index) (*domain.CollectionCharter, error) {
	c, err := CollectionCharter(ctx, file, collection, cei, users)
	if err != nil {
		return nil, err
	}
	atomID := collection.AtomID
	c.CollectionAtomID = &atomID
	c.OwnerEmail = collection.OwnerEmail
	return c, nil
}

// SavedCharter parses a user's saved working copy. The file name encodes
// the original's location:
// <prefix>#charter#<collection>#<charter>.xml or
// <prefix>#charter#<archive>#<fond>#<charter>.xml
func SavedCharter(ctx *Context, file string, cei *xmldoc.Document, index *Index) (*domain.SavedCharter, error) {
	parts := strings.Split(paths.StripSuffix(file, ".xml"), "#")
	if len(parts) < 4 || len(parts) > 5 {
		return nil, skipf(file, "cannot derive url from saved charter file name")
	}
	parts = parts[2:]

	var imageBase *string
	switch len(parts) {
	case 2:
		collection := index.Collection(parts[0])
		if collection == nil {
			return nil, skipf(file, "unknown collection %s", parts[0])
		}
		imageBase = collection.ImageBase
	case 3:
		fond := index.Fond(parts[0], parts[1])
		if fond == nil {
			return nil, skipf(file, "unknown fond %s/%s", parts[0], parts[1])
		}
		imageBase = fond.ImageBase
	}

	base, err := charter(ctx, charterSource{
		file:      file,
		doc:       cei,
		kind:      id.KindSavedCharter,
		tier:      domain.TierSaved,
		url:       paths.JoinURL(append([]string{paths.SavedCharterBaseURL}, parts...)...),
		imageBase: imageBase,
		users:     index,
	})
	if err != nil {
		return nil, err
	}

	return &domain.SavedCharter{Charter: *base}, nil
}

// PrivateCharter parses a charter of a user's private collection.
// An atom:link ref names the public charter it was copied from.
func PrivateCharter(ctx *Context, file string, collection *domain.Collection, cei *xmldoc.Document) (*domain.PrivateCharter, error) {
	if collection.OwnerID == nil || collection.OwnerEmail == nil {
		return nil, skipf(file, "private collection %s has no owner", collection.AtomID)
	}

	name := CharterName(file)
	base, err := charter(ctx, charterSource{
		file:      file,
		doc:       cei,
		kind:      id.KindPrivateCharter,
		tier:      domain.TierPrivate,
		url:       paths.JoinURL(paths.MomBaseURL, collection.File, collection.File, name, "my-charter"),
		imageBase: nil,
	})
	if err != nil {
		return nil, err
	}

	c := &domain.PrivateCharter{
		Charter:          *base,
		OwnerID:          *collection.OwnerID,
		OwnerEmail:       *collection.OwnerEmail,
		CollectionID:     collection.ID,
		CollectionAtomID: collection.AtomID,
		CollectionFile:   collection.File,
	}
	if link := cei.Find(".//atom:link"); link != nil {
		if ref, ok := xmldoc.Attr(link, "ref"); ok && xmldoc.NormalizeSpace(ref) != "" {
			c.SourceAtomID = optional(xmldoc.NormalizeSpace(ref))
		}
	}
	return c, nil
}

// charter reads the fields shared by all variants
func charter(ctx *Context, src charterSource) (*domain.Charter, error) {
	c := &domain.Charter{
		ID:   ctx.Alloc.Next(src.kind),
		File: src.file,
		URL:  src.url,
	}
	doc := src.doc

	c.AtomID = text(doc, "./atom:id")
	if c.AtomID == "" {
		return nil, skipf(src.file, "no atom:id")
	}
	log := ctx.log(src.file).WithField("atom_id", c.AtomID)

	// idno
	idno := doc.Find(".//cei:idno")
	if idno == nil {
		return nil, skipf(src.file, "no idno for %s", c.AtomID)
	}
	idnoAttr, _ := xmldoc.Attr(idno, "id")
	c.IdnoID, c.IdnoText = idnoPair(xmldoc.NormalizeSpace(idnoAttr), xmldoc.NormalizeSpace(idno.Text()))
	if c.IdnoID == "" {
		return nil, skipf(src.file, "no idno parts for %s", c.AtomID)
	}

	// abstract and tenor blobs
	abstract := doc.Find(".//cei:abstract")
	tenor := doc.Find(".//cei:tenor")
	c.Abstract = fragment(abstract)
	c.Tenor = fragment(tenor)

	// issued date
	issued(c, doc.Find(".//cei:issued"), log)
	c.SortDate = dateutil.SortDate(issuedRange(c), ctx.now())

	// images
	c.Images = graphics(doc, src.imageBase, log)

	// last editor
	if email := text(doc, "./atom:author/atom:email"); email != "" {
		c.AuthorEmail = &email
		if uid, ok := src.users.UserID(email); ok {
			c.LastEditorID = &uid
		}
	}

	// person names
	sections := []struct {
		el  *etree.Element
		loc domain.Location
	}{
		{abstract, domain.LocationAbstract},
		{doc.Find(".//cei:back"), domain.LocationBack},
		{tenor, domain.LocationTenor},
	}
	for _, s := range sections {
		for _, el := range xmldoc.FindAll(s.el, ".//cei:persName") {
			c.PersonNames = append(c.PersonNames, PersonName(c.ID, src.tier, el, s.loc))
		}
	}

	if err := domain.Validate(c); err != nil {
		return nil, skipErr(src.file, "invalid charter", err)
	}
	return c, nil
}

// idnoPair applies the fallback rules for the idno attribute and text:
// the attribute wins for the id, the text is kept for display, and a
// missing half is filled from the other one.
func idnoPair(attr, text string) (idnoID, idnoText string) {
	switch {
	case attr != "" && text != "":
		return attr, text
	case attr != "":
		return attr, attr
	case text != "":
		return text, text
	default:
		return "", ""
	}
}

func fragment(el *etree.Element) *string {
	if el == nil {
		return nil
	}
	out, ok := xmldoc.RecoverFragment(xmldoc.Serialize(el))
	if !ok {
		return nil
	}
	return &out
}

// issued fills the issued date fields from cei:date and cei:dateRange elements
func issued(c *domain.Charter, el *etree.Element, log logrus.FieldLogger) {
	if el == nil {
		return
	}

	var days []time.Time
	decode := func(value, what string) *dateutil.Range {
		if value == "" {
			return nil
		}
		r, err := dateutil.Decode(value)
		if err != nil {
			log.WithField("reason", err.Error()).Warnf("ignoring %s", what)
			return nil
		}
		return r
	}

	var pointText, rangeText string
	for _, date := range xmldoc.FindAll(el, "./cei:date") {
		value, _ := xmldoc.Attr(date, "value")
		if r := decode(value, "date value"); r != nil {
			days = append(days, r.Start, r.End)
		}
		if pointText == "" {
			pointText = xmldoc.NormalizeSpace(xmldoc.AllText(date))
		}
	}
	for _, dr := range xmldoc.FindAll(el, "./cei:dateRange") {
		from, _ := xmldoc.Attr(dr, "from")
		to, _ := xmldoc.Attr(dr, "to")
		if r := decode(from, "range start"); r != nil {
			days = append(days, r.Start)
		}
		if r := decode(to, "range end"); r != nil {
			days = append(days, r.End)
		}
		if rangeText == "" {
			rangeText = xmldoc.NormalizeSpace(xmldoc.AllText(dr))
		}
	}

	if res := dateutil.Union(days...); res.Range != nil {
		if res.TooMany() {
			log.WithField("dates", res.Contributing).Warn("more issued dates than expected")
		}
		start, end := res.Range.Start, res.Range.End
		c.IssuedStart = &start
		c.IssuedEnd = &end
	}

	switch {
	case pointText != "" && rangeText != "" && pointText != rangeText:
		log.WithFields(logrus.Fields{
			"date_text":  pointText,
			"range_text": rangeText,
		}).Warn("conflicting issued date texts, keeping the date text")
		c.IssuedText = &pointText
	case pointText != "":
		c.IssuedText = &pointText
	case rangeText != "":
		c.IssuedText = &rangeText
	}
}

func issuedRange(c *domain.Charter) *dateutil.Range {
	if c.IssuedStart == nil || c.IssuedEnd == nil {
		return nil
	}
	return &dateutil.Range{Start: *c.IssuedStart, End: *c.IssuedEnd}
}

// graphics returns the absolute, valid image URLs of a charter
func graphics(doc *xmldoc.Document, imageBase *string, log logrus.FieldLogger) []string {
	var out []string
	seen := make(map[string]bool)
	for _, g := range doc.FindAll(".//cei:graphic") {
		ref, _ := xmldoc.Attr(g, "url")
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		url := ref
		if !paths.IsAbsoluteURL(ref) {
			if imageBase == nil {
				log.WithField("image", ref).Debug("relative image without image base")
				continue
			}
			url = paths.JoinURL(*imageBase, ref)
		}
		if !paths.IsValidURL(url) {
			log.WithField("image", url).Warn("dropping invalid image url")
			continue
		}
		if seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, url)
	}
	return out
}

// PersonName parses one cei:persName mention. The ID is assigned when
// mentions are aggregated after cross-linking.
func PersonName(charterID int, tier domain.Tier, el *etree.Element, loc domain.Location) *domain.PersonName {
	pn := &domain.PersonName{
		CharterID: charterID,
		Tier:      tier,
		Location:  loc,
		Text:      xmldoc.NormalizeSpace(xmldoc.AllText(el)),
	}
	if reg, ok := xmldoc.Attr(el, "reg"); ok {
		pn.Reg = optional(xmldoc.NormalizeSpace(reg))
	}
	if key, ok := xmldoc.Attr(el, "key"); ok {
		pn.Key = optional(xmldoc.NormalizeSpace(key))
	}
	if pn.Key != nil {
		if iri, ok := persons.NormalizeWikidataKey(*pn.Key); ok {
			pn.WikidataIRI = &iri
		}
	}
	return pn
}

// ErrNoIndexID is returned for index persons without xml:id
var ErrNoIndexID = errors.New("index person has no xml:id")

// PersonIndex parses a TEI person index. Persons without xml:id are
// logged and left out.
func PersonIndex(ctx *Context, file string, tei *xmldoc.Document) (*domain.PersonIndex, error) {
	idx := &domain.PersonIndex{AtomID: text(tei, "./atom:id")}
	if idx.AtomID == "" {
		return nil, skipf(file, "no atom:id")
	}
	idx.Identifier = paths.LastSegment(idx.AtomID)

	for _, el := range tei.FindAll(".//momtei:person") {
		p, err := indexPerson(ctx, el, idx.Identifier)
		if err != nil {
			ctx.log(file).WithField("reason", err.Error()).Warn("skipping index person")
			continue
		}
		idx.Persons = append(idx.Persons, *p)
	}
	return idx, nil
}

func indexPerson(ctx *Context, el *etree.Element, indexIdentifier string) (*domain.IndexPerson, error) {
	xmlID, ok := xmldoc.XMLID(el)
	if !ok || strings.TrimSpace(xmlID) == "" {
		return nil, fmt.Errorf("%w in index %s", ErrNoIndexID, indexIdentifier)
	}

	p := &domain.IndexPerson{
		ID:              ctx.Alloc.Next(id.KindIndexPerson),
		IndexIdentifier: indexIdentifier,
		XMLID:           xmlID,
		MomIRI:          fmt.Sprintf("http://www.monasterium.net/mom/index/%s/%s", indexIdentifier, xmlID),
	}

	if uri := xmldoc.NormalizeSpace(xmldoc.FindText(el, ".//momtei:idno[@type='URI']")); uri != "" {
		uri = strings.Replace(uri, "http://wikidata.org/", "http://www.wikidata.org/", 1)
		p.WikidataIRI = &uri
	}

	for _, name := range xmldoc.FindAll(el, ".//momtei:persName") {
		t := xmldoc.NormalizeSpace(name.Text())
		if t == "" {
			continue
		}
		n := domain.IndexName{Text: t}
		if ref, ok := xmldoc.Attr(name, "ref"); ok {
			n.Ref = optional(ref)
		}
		p.Names = append(p.Names, n)
	}
	return p, nil
}
