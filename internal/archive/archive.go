// Package archive reads the eXist export zip as a tree of XML resources.
package archive

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// ErrNotFound is returned when a path does not exist in the archive
var ErrNotFound = errors.New("not found in archive")

// ParseError reports a document that is not well-formed XML
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader provides read access to the files of a backup zip
type Reader struct {
	zr     *zip.Reader
	closer io.Closer
	files  map[string]*zip.File
	names  []string
}

// Open opens the zip file at path
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup %s: %w", path, err)
	}
	r := newReader(&rc.Reader)
	r.closer = rc
	return r, nil
}

// NewReader wraps zip data that is already in memory or otherwise open
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return newReader(zr), nil
}

func newReader(zr *zip.Reader) *Reader {
	r := &Reader{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, dup := r.files[name]; dup {
			continue
		}
		r.files[name] = f
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Close releases the underlying file, if any
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Exists reports whether a file exists at path
func (r *Reader) Exists(path string) bool {
	_, ok := r.files[strings.TrimPrefix(path, "/")]
	return ok
}

// ReadFile returns the raw bytes stored at path
func (r *Reader) ReadFile(path string) ([]byte, error) {
	f, ok := r.files[strings.TrimPrefix(path, "/")]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ReadXML parses the document at path.
// Returns ErrNotFound when absent and *ParseError when malformed.
func (r *Reader) ReadXML(path string) (*xmldoc.Document, error) {
	data, err := r.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return doc, nil
}

// ReadXMLOptional is ReadXML with absence reported as (nil, nil)
func (r *Reader) ReadXMLOptional(path string) (*xmldoc.Document, error) {
	doc, err := r.ReadXML(path)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// filesUnder returns the XML files below dir in name order, excluding descriptors
func (r *Reader) filesUnder(dir string) []string {
	prefix := strings.TrimSuffix(strings.TrimPrefix(dir, "/"), "/") + "/"
	start := sort.SearchStrings(r.names, prefix)

	var out []string
	for _, name := range r.names[start:] {
		if !strings.HasPrefix(name, prefix) {
			break
		}
		if strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, "/"+paths.ContentsFile) {
			out = append(out, name)
		}
	}
	return out
}
