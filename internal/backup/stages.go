package backup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/archive"
	"github.com/lherron/momcheck/internal/crosslink"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/parse"
	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/persons"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// Backup sections below the data root
const (
	sectionUsers             = "xrx.user"
	sectionArchives          = "metadata.archive.public"
	sectionFonds             = "metadata.fond.public"
	sectionCharters          = "metadata.charter.public"
	sectionCollections       = "metadata.collection.public"
	sectionSaved             = "metadata.charter.saved"
	sectionPublicCollections = "metadata.mycollection.public"
	sectionPublicCharters    = "metadata.mycharter.public"
	sectionPersons           = "metadata.person.public"
	userCollections          = "metadata.mycollection"
	userCharters             = "metadata.charter"
	userBookmarkNotes        = "metadata.bookmark-notes"
)

// ignoredUsers are system accounts without a real user
var ignoredUsers = map[string]bool{"admin.xml": true, "guest.xml": true}

// list reads a required section descriptor
func (o *Orchestrator) list(dir string) (*archive.Listing, error) {
	listing, err := o.src.ListDirectory(dir)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return listing, nil
}

// listOptional reads a descriptor that may be absent. A missing
// descriptor is logged with what is skipped because of it.
func (o *Orchestrator) listOptional(dir, skipped string) (*archive.Listing, error) {
	listing, err := o.src.ListDirectory(dir)
	if errors.Is(err, archive.ErrNotFound) {
		if skipped != "" {
			o.log.WithField("path", dir).Warnf("no listing, skipping %s", skipped)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return listing, nil
}

// read loads a record document; a missing or broken document skips the record
func (o *Orchestrator) read(path string) (*xmldoc.Document, error) {
	doc, err := o.src.ReadXML(path)
	if err != nil {
		return nil, recordError(path, err)
	}
	return doc, nil
}

// readOptional loads a supplementary document that may be absent
func (o *Orchestrator) readOptional(path string) (*xmldoc.Document, error) {
	doc, err := o.src.ReadXMLOptional(path)
	if err != nil {
		return nil, recordError(path, err)
	}
	return doc, nil
}

func recordError(path string, err error) error {
	var perr *archive.ParseError
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return &parse.Skip{Path: path, Reason: "document not found", Err: err}
	case errors.As(err, &perr):
		return &parse.Skip{Path: path, Reason: "malformed document", Err: err}
	default:
		return err
	}
}

func userFolder(u *domain.User) string {
	return paths.StripSuffix(u.File, ".xml")
}

func (o *Orchestrator) users() ([]*domain.User, error) {
	dir := paths.Data(sectionUsers)
	listing, err := o.list(dir)
	if err != nil {
		return nil, err
	}

	var items []string
	seen := make(map[string]string)
	for _, e := range listing.Resources() {
		if ignoredUsers[e.File] {
			continue
		}
		lower := strings.ToLower(e.File)
		if other, ok := seen[lower]; ok {
			o.log.WithFields(logrus.Fields{
				"path":     e.File,
				"conflict": other,
			}).Warn("user file differs only in case, skipping")
			continue
		}
		seen[lower] = e.File
		items = append(items, e.File)
	}

	users, err := collect(o, "users", items, func(file string) (*domain.User, error) {
		doc, err := o.read(paths.Join(dir, file))
		if err != nil {
			return nil, err
		}
		return parse.User(o.pctx, file, doc)
	})
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if err := o.bookmarkNotes(u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (o *Orchestrator) bookmarkNotes(u *domain.User) error {
	dir := paths.Data(sectionUsers, userFolder(u), userBookmarkNotes)
	if !o.src.Exists(paths.Join(dir, paths.ContentsFile)) {
		return nil
	}
	files, err := o.src.ListResourcesRecursive(dir)
	if err != nil {
		return fmt.Errorf("failed to list bookmark notes of %s: %w", u.Email, err)
	}
	for _, path := range files {
		doc, err := o.read(path)
		if err != nil {
			o.log.WithField("path", path).WithError(err).Warn("skipping bookmark notes")
			continue
		}
		parse.ApplyBookmarkNotes(u, parse.BookmarkNotes(doc))
	}
	return nil
}

func (o *Orchestrator) seedPersons() error {
	dir := paths.Data(sectionPersons)
	if !o.src.Exists(paths.Join(dir, paths.ContentsFile)) {
		o.log.WithField("path", dir).Info("no person index")
		return nil
	}
	files, err := o.src.ListResourcesRecursive(dir)
	if err != nil {
		return fmt.Errorf("failed to list person indexes: %w", err)
	}

	indexes, err := collect(o, "person index", files, func(path string) (*domain.PersonIndex, error) {
		doc, err := o.read(path)
		if err != nil {
			return nil, err
		}
		return parse.PersonIndex(o.pctx, path, doc)
	})
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		_, err := o.resolver.RegisterIndex(idx.Persons)
		for _, conflict := range persons.Conflicts(err) {
			o.result.IdentityConflicts++
			o.log.WithFields(logrus.Fields{
				"atom_id": idx.AtomID,
				"reason":  conflict.Error(),
			}).Error("conflicting persons in index")
		}
	}
	return nil
}

func (o *Orchestrator) archives() ([]*domain.Archive, error) {
	dir := paths.Data(sectionArchives)
	listing, err := o.list(dir)
	if err != nil {
		return nil, err
	}

	return collect(o, "archives", files(listing.Collections()), func(file string) (*domain.Archive, error) {
		eag, err := o.read(paths.Join(dir, file, file+".eag.xml"))
		if err != nil {
			return nil, err
		}
		oai, err := o.readOptional(paths.Join(dir, file, "oai.xml"))
		if err != nil {
			return nil, err
		}
		return parse.Archive(o.pctx, file, eag, oai)
	})
}

func (o *Orchestrator) fonds(archives []*domain.Archive) ([]*domain.Fond, error) {
	owners := make(map[string]*domain.Archive)
	var items []string
	for _, a := range archives {
		listing, err := o.listOptional(paths.Data(sectionFonds, a.File), "fonds of "+a.File)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Collections()) {
			item := paths.Join(a.File, file)
			owners[item] = a
			items = append(items, item)
		}
	}

	return collect(o, "fonds", items, func(item string) (*domain.Fond, error) {
		a := owners[item]
		file := paths.LastSegment(item)
		dir := paths.Data(sectionFonds, a.File, file)
		ead, err := o.read(paths.Join(dir, file+".ead.xml"))
		if err != nil {
			return nil, err
		}
		prefs, err := o.readOptional(paths.Join(dir, file+".preferences.xml"))
		if err != nil {
			return nil, err
		}
		return parse.Fond(o.pctx, file, a, ead, prefs)
	})
}

func (o *Orchestrator) fondCharters(fonds []*domain.Fond) ([]*domain.FondCharter, error) {
	owners := make(map[string]*domain.Fond)
	var items []string
	for _, f := range fonds {
		dir := paths.Data(sectionCharters, f.ArchiveFile, f.File)
		listing, err := o.listOptional(dir, "charters of fond "+f.ArchiveFile+"/"+f.Identifier)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Resources()) {
			path := paths.Join(dir, file)
			owners[path] = f
			items = append(items, path)
		}
	}

	parsed, err := collect(o, "fond charters", items, func(path string) (*domain.FondCharter, error) {
		cei, err := o.read(path)
		if err != nil {
			return nil, err
		}
		return parse.FondCharter(o.pctx, paths.LastSegment(path), owners[path], cei, o.index)
	})
	if err != nil {
		return nil, err
	}

	kept := crosslink.Dedupe(o.linker, "fond charters", parsed)
	crosslink.IndexCanonical(o.linker, kept)
	return kept, nil
}

func (o *Orchestrator) collections() ([]*domain.Collection, error) {
	dir := paths.Data(sectionCollections)
	listing, err := o.list(dir)
	if err != nil {
		return nil, err
	}

	parsed, err := collect(o, "collections", files(listing.Collections()), func(file string) (*domain.Collection, error) {
		cei, err := o.read(paths.Join(dir, file, file+".cei.xml"))
		if err != nil {
			return nil, err
		}
		return parse.Collection(o.pctx, file, cei, o.index)
	})
	if err != nil {
		return nil, err
	}
	return o.linker.DedupeCollections("collections", parsed), nil
}

func (o *Orchestrator) collectionCharters(collections []*domain.Collection) ([]*domain.CollectionCharter, error) {
	owners := make(map[string]*domain.Collection)
	var items []string
	for _, c := range collections {
		dir := paths.Data(sectionCharters, c.File)
		listing, err := o.listOptional(dir, "charters of collection "+c.Identifier)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Resources()) {
			path := paths.Join(dir, file)
			owners[path] = c
			items = append(items, path)
		}
	}

	parsed, err := collect(o, "collection charters", items, func(path string) (*domain.CollectionCharter, error) {
		cei, err := o.read(path)
		if err != nil {
			return nil, err
		}
		return parse.CollectionCharter(o.pctx, paths.LastSegment(path), owners[path], cei, o.index)
	})
	if err != nil {
		return nil, err
	}

	kept := crosslink.Dedupe(o.linker, "collection charters", parsed)
	crosslink.IndexCanonical(o.linker, kept)
	return kept, nil
}

func (o *Orchestrator) savedCharters(users []*domain.User) ([]*domain.SavedCharter, error) {
	dir := paths.Data(sectionSaved)
	listing, err := o.list(dir)
	if err != nil {
		return nil, err
	}

	parsed, err := collect(o, "saved charters", files(listing.Resources()), func(file string) (*domain.SavedCharter, error) {
		cei, err := o.read(paths.Join(dir, file))
		if err != nil {
			return nil, err
		}
		return parse.SavedCharter(o.pctx, file, cei, o.index)
	})
	if err != nil {
		return nil, err
	}
	return o.linker.LinkSaved(parsed, users), nil
}

func (o *Orchestrator) privateCollections(users []*domain.User) ([]*domain.Collection, error) {
	type job struct {
		owner *domain.User
		file  string
	}
	jobs := make(map[string]job)
	var items []string
	for _, u := range users {
		dir := paths.Data(sectionUsers, userFolder(u), userCollections)
		listing, err := o.listOptional(dir, "")
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Collections()) {
			path := paths.Join(dir, file, file+".mycollection.xml")
			jobs[path] = job{owner: u, file: file}
			items = append(items, path)
		}
	}

	parsed, err := collect(o, "private collections", items, func(path string) (*domain.Collection, error) {
		cei, err := o.read(path)
		if err != nil {
			return nil, err
		}
		j := jobs[path]
		return parse.MyCollection(o.pctx, j.file, cei, j.owner, false)
	})
	if err != nil {
		return nil, err
	}
	return o.linker.DedupeCollections("private collections", parsed), nil
}

func (o *Orchestrator) privateCharters(collections []*domain.Collection, users []*domain.User) ([]*domain.PrivateCharter, error) {
	folders := make(map[int]string, len(users))
	for _, u := range users {
		folders[u.ID] = userFolder(u)
	}

	owners := make(map[string]*domain.Collection)
	var items []string
	for _, c := range collections {
		folder, ok := folders[*c.OwnerID]
		if !ok {
			continue
		}
		dir := paths.Data(sectionUsers, folder, userCharters, c.File)
		listing, err := o.listOptional(dir, "")
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Resources()) {
			path := paths.Join(dir, file)
			owners[path] = c
			items = append(items, path)
		}
	}

	parsed, err := collect(o, "private charters", items, func(path string) (*domain.PrivateCharter, error) {
		cei, err := o.read(path)
		if err != nil {
			return nil, err
		}
		return parse.PrivateCharter(o.pctx, paths.LastSegment(path), owners[path], cei)
	})
	if err != nil {
		return nil, err
	}
	return o.linker.LinkPrivate(parsed), nil
}

func (o *Orchestrator) publicCollections(private []*domain.Collection) ([]*domain.Collection, error) {
	dir := paths.Data(sectionPublicCollections)
	listing, err := o.listOptional(dir, "public collections")
	if err != nil || listing == nil {
		return nil, err
	}

	public, err := collect(o, "public collections", files(listing.Collections()), func(file string) (*domain.Collection, error) {
		cei, err := o.read(paths.Join(dir, file, file+".mycollection.xml"))
		if err != nil {
			return nil, err
		}
		return parse.MyCollection(o.pctx, file, cei, nil, true)
	})
	if err != nil {
		return nil, err
	}
	public = o.linker.DedupeCollections("public collections", public)
	o.linker.LinkPublicCollections(public, private)
	return public, nil
}

func (o *Orchestrator) publicCharters(collections []*domain.Collection, private []*domain.PrivateCharter) ([]*domain.CollectionCharter, error) {
	owners := make(map[string]*domain.Collection)
	var items []string
	for _, c := range collections {
		dir := paths.Data(sectionPublicCharters, c.File)
		listing, err := o.listOptional(dir, "charters of public collection "+c.File)
		if err != nil {
			return nil, err
		}
		if listing == nil {
			continue
		}
		for _, file := range files(listing.Resources()) {
			path := paths.Join(dir, file)
			owners[path] = c
			items = append(items, path)
		}
	}

	parsed, err := collect(o, "public charters", items, func(path string) (*domain.CollectionCharter, error) {
		cei, err := o.read(path)
		if err != nil {
			return nil, err
		}
		return parse.PublicCharter(o.pctx, paths.LastSegment(path), owners[path], cei, o.index)
	})
	if err != nil {
		return nil, err
	}

	linked := o.linker.LinkPublic(parsed, private)
	return crosslink.Dedupe(o.linker, "public charters", linked), nil
}

// personNames resolves every mention of the final charter batches and
// assigns mention IDs in batch order
func (o *Orchestrator) personNames(batches [][]domain.Charters) []*domain.PersonName {
	var out []*domain.PersonName
	for _, batch := range batches {
		for _, c := range batch {
			base := c.Base()
			for _, pn := range base.PersonNames {
				pn.ID = o.alloc.Next(id.KindPersonName)
				pn.PersonID = nil

				p, err := o.resolver.Resolve(pn.Text, pn.WikidataIRI, pn.Key)
				switch {
				case errors.Is(err, persons.ErrIdentityConflict):
					o.result.IdentityConflicts++
					o.log.WithFields(logrus.Fields{
						"path":    base.File,
						"atom_id": base.AtomID,
						"reason":  err.Error(),
					}).Error("person identity conflict")
				case err != nil:
					o.log.WithError(err).Error("failed to resolve person")
				case p != nil:
					pid := p.ID
					pn.PersonID = &pid
				}
				out = append(out, pn)
			}
		}
	}
	return out
}

// files returns the file names of listing entries
func files(entries []archive.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.File
	}
	return out
}
