package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// EntryKind distinguishes sub-folders from documents in a listing
type EntryKind string

const (
	KindCollection EntryKind = "collection"
	KindResource   EntryKind = "resource"
)

// Entry is one line of a directory descriptor
type Entry struct {
	Name string
	File string
	Kind EntryKind
}

// Listing is a parsed __contents__.xml
type Listing struct {
	Path    string
	Entries []Entry
}

// Collections returns the sub-folder entries in listing order
func (l *Listing) Collections() []Entry {
	return l.filter(KindCollection)
}

// Resources returns the document entries in listing order
func (l *Listing) Resources() []Entry {
	return l.filter(KindResource)
}

func (l *Listing) filter(kind EntryKind) []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ListDirectory reads the descriptor of dir
func (r *Reader) ListDirectory(dir string) (*Listing, error) {
	path := dir
	if !strings.HasSuffix(path, paths.ContentsFile) {
		path = paths.Join(dir, paths.ContentsFile)
	}

	doc, err := r.ReadXML(path)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Path: strings.TrimSuffix(path, "/"+paths.ContentsFile)}
	for _, el := range doc.Root().ChildElements() {
		var kind EntryKind
		switch {
		case el.Tag == "subcollection" && el.NamespaceURI() == xmldoc.Namespaces["exist"]:
			kind = KindCollection
		case el.Tag == "resource" && el.NamespaceURI() == xmldoc.Namespaces["exist"]:
			if typ, _ := xmldoc.Attr(el, "type"); typ != "XMLResource" {
				continue
			}
			kind = KindResource
		default:
			continue
		}

		name, ok := xmldoc.Attr(el, "name")
		if !ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s entry without name", kind)}
		}
		file, ok := xmldoc.Attr(el, "filename")
		if !ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s entry %q without filename", kind, name)}
		}
		listing.Entries = append(listing.Entries, Entry{
			Name: name,
			File: paths.CorrectFilename(file),
			Kind: kind,
		})
	}

	return listing, nil
}

// ListResourcesRecursive returns the paths of all documents below base,
// following nested descriptors to any depth. A sub-folder without a
// descriptor is enumerated from the zip index instead.
func (r *Reader) ListResourcesRecursive(base string) ([]string, error) {
	listing, err := r.ListDirectory(base)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, entry := range listing.Entries {
		path := paths.Join(base, entry.File)
		if entry.Kind == KindResource {
			out = append(out, path)
			continue
		}

		nested, err := r.ListResourcesRecursive(path)
		if errors.Is(err, ErrNotFound) {
			out = append(out, r.filesUnder(path)...)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
