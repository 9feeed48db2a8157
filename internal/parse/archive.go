package parse

import (
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// Archive parses an EAG archive description and its optional OAI document
func Archive(ctx *Context, file string, eag, oai *xmldoc.Document) (*domain.Archive, error) {
	a := &domain.Archive{
		ID:   ctx.Alloc.Next(id.KindArchive),
		File: file,
	}

	a.AtomID = text(eag, "./atom:id")
	if a.AtomID == "" {
		return nil, skipf(file, "no atom:id")
	}

	repo := eag.Find(".//eag:repositorid")
	if repo == nil {
		return nil, skipf(file, "no eag:repositorid")
	}
	a.RepositoryID = xmldoc.NormalizeSpace(repo.Text())
	if a.RepositoryID == "" {
		return nil, skipf(file, "empty eag:repositorid")
	}
	cc, _ := xmldoc.Attr(repo, "countrycode")
	a.CountryCode = xmldoc.NormalizeSpace(cc)
	if a.CountryCode == "" {
		return nil, skipf(file, "no countrycode")
	}

	a.Name = text(eag, ".//eag:autform")
	if a.Name == "" {
		return nil, skipf(file, "no eag:autform")
	}

	if oai != nil {
		a.Oai = &domain.Oai{
			Fonds:      texts(oai, ".//oei:fond"),
			Harvesters: texts(oai, ".//oei:harvester"),
		}
	}

	if err := domain.Validate(a); err != nil {
		return nil, skipErr(file, "invalid archive", err)
	}
	return a, nil
}

// Fond parses an EAD fond description and its optional preferences document
func Fond(ctx *Context, file string, archive *domain.Archive, ead, prefs *xmldoc.Document) (*domain.Fond, error) {
	f := &domain.Fond{
		ID:          ctx.Alloc.Next(id.KindFond),
		File:        file,
		ArchiveID:   archive.ID,
		ArchiveFile: archive.File,
	}

	f.AtomID = text(ead, "./atom:id")
	if f.AtomID == "" {
		return nil, skipf(file, "no atom:id")
	}

	unitid := ead.Find(".//ead:unitid")
	if unitid == nil {
		return nil, skipf(file, "no ead:unitid")
	}
	f.Identifier = xmldoc.NormalizeSpace(unitid.Text())
	if f.Identifier == "" {
		attr, _ := xmldoc.Attr(unitid, "identifier")
		f.Identifier = xmldoc.NormalizeSpace(attr)
	}
	if f.Identifier == "" {
		return nil, skipf(file, "no fond identifier")
	}

	unittitle := ead.Find(".//ead:unittitle")
	if unittitle == nil {
		return nil, skipf(file, "no ead:unittitle")
	}
	f.Title = xmldoc.NormalizeSpace(unittitle.Text())
	if f.Title == "" {
		f.Title = f.Identifier
	}

	if archive.Oai != nil {
		for _, shared := range archive.Oai.Fonds {
			if shared == f.Identifier {
				f.OaiShared = true
				break
			}
		}
	}

	if prefs != nil {
		f.FreeImageAccess = text(prefs, "./xrx:param[@name='image-access']") == "free"
		f.ImageBase = validURL(text(prefs, "./xrx:param[@name='image-server-base-url']"))
	}

	if err := domain.Validate(f); err != nil {
		return nil, skipErr(file, "invalid fond", err)
	}
	return f, nil
}

func texts(doc *xmldoc.Document, path string) []string {
	var out []string
	for _, el := range doc.FindAll(path) {
		if t := xmldoc.NormalizeSpace(el.Text()); t != "" {
			out = append(out, t)
		}
	}
	return out
}
