package parse

import (
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// Collection parses a public collection document. Linked fonds are
// resolved against fonds already in the index.
func Collection(ctx *Context, file string, cei *xmldoc.Document, fonds *Index) (*domain.Collection, error) {
	c, err := collection(ctx, file, cei, id.KindCollection)
	if err != nil {
		return nil, err
	}

	c.ImageBase = imageServer(cei)

	for _, el := range cei.FindAll(".//cei:group/cei:text") {
		atomID, ok := xmldoc.Attr(el, "id")
		if !ok {
			continue
		}
		if fondID, ok := fonds.FondID(atomID); ok {
			c.LinkedFondIDs = append(c.LinkedFondIDs, fondID)
		}
	}

	return c, nil
}

// MyCollection parses a user collection. Private collections belong to
// owner; public copies name their owner in the atom author and take IDs
// from the public collection sequence.
func MyCollection(ctx *Context, file string, cei *xmldoc.Document, owner *domain.User, public bool) (*domain.Collection, error) {
	kind := id.KindPrivateCollection
	if public {
		kind = id.KindCollection
	}

	c, err := collection(ctx, file, cei, kind)
	if err != nil {
		return nil, err
	}
	c.Private = !public
	c.ImageBase = imageServer(cei)

	if owner != nil {
		ownerID, email := owner.ID, owner.Email
		c.OwnerID = &ownerID
		c.OwnerEmail = &email
	} else {
		c.OwnerEmail = optional(text(cei, "./atom:author/atom:email"))
	}

	if !public && c.OwnerID == nil {
		return nil, skipf(file, "private collection without owner")
	}
	return c, nil
}

func collection(ctx *Context, file string, cei *xmldoc.Document, kind id.Kind) (*domain.Collection, error) {
	c := &domain.Collection{
		ID:   ctx.Alloc.Next(kind),
		File: file,
	}

	c.AtomID = text(cei, "./atom:id")
	if c.AtomID == "" {
		return nil, skipf(file, "no atom:id")
	}
	c.Identifier = paths.LastSegment(c.AtomID)

	provenance := cei.Find(".//cei:provenance")
	if provenance == nil {
		return nil, skipf(file, "no cei:provenance")
	}
	c.Title = xmldoc.NormalizeSpace(provenance.Text())
	if c.Title == "" {
		c.Title = text(cei, ".//cei:title")
	}
	if c.Title == "" {
		c.Title = c.Identifier
	}

	if err := domain.Validate(c); err != nil {
		return nil, skipErr(file, "invalid collection", err)
	}
	return c, nil
}

// imageServer builds the collection's image base from the configured
// server address and folder
func imageServer(cei *xmldoc.Document) *string {
	address := text(cei, ".//cei:image_server_address")
	if address == "" {
		return nil
	}
	if address == paths.ImageHost {
		address = paths.ImageBaseURL
	}

	url := address
	if folder := text(cei, ".//cei:image_server_folder"); folder != "" {
		url = paths.JoinURL(address, folder)
	}
	return validURL(url)
}
