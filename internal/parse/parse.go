// Package parse turns MOM export documents into domain records.
//
// Every parser allocates the record's ID from the context's allocator and
// returns an independent value. Failures that only concern the current
// document are returned as *Skip.
package parse

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/paths"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// Context carries the collaborators shared by all parsers
type Context struct {
	Alloc  *id.Allocator
	Logger logrus.FieldLogger
	// Now supplies the fallback sort date for undated charters
	Now func() time.Time
}

// NewContext returns a context using the wall clock
func NewContext(alloc *id.Allocator, logger logrus.FieldLogger) *Context {
	return &Context{Alloc: alloc, Logger: logger, Now: time.Now}
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) log(path string) logrus.FieldLogger {
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(discard{})
		return l.WithField("path", path)
	}
	return c.Logger.WithField("path", path)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Skip reports a document that cannot become a record
type Skip struct {
	Path   string
	Reason string
	Err    error
}

func (s *Skip) Error() string {
	if s.Err != nil {
		return fmt.Sprintf("skipping %s: %s: %v", s.Path, s.Reason, s.Err)
	}
	return fmt.Sprintf("skipping %s: %s", s.Path, s.Reason)
}

func (s *Skip) Unwrap() error {
	return s.Err
}

// Recoverable marks Skip as a per-record failure
func (s *Skip) Recoverable() bool {
	return true
}

func skipf(path, format string, args ...any) error {
	return &Skip{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func skipErr(path, reason string, err error) error {
	return &Skip{Path: path, Reason: reason, Err: err}
}

// Index resolves natural keys of records parsed in earlier stages
type Index struct {
	users             map[string]int
	fondsByAtomID     map[string]int
	fondsByFile       map[string]*domain.Fond
	collectionsByFile map[string]*domain.Collection
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{
		users:             make(map[string]int),
		fondsByAtomID:     make(map[string]int),
		fondsByFile:       make(map[string]*domain.Fond),
		collectionsByFile: make(map[string]*domain.Collection),
	}
}

// AddUsers registers users by lower-cased email
func (x *Index) AddUsers(users []*domain.User) {
	for _, u := range users {
		x.users[strings.ToLower(u.Email)] = u.ID
	}
}

// AddFonds registers fonds by atom id and by archive/fond folder
func (x *Index) AddFonds(fonds []*domain.Fond) {
	for _, f := range fonds {
		x.fondsByAtomID[f.AtomID] = f.ID
		x.fondsByFile[f.ArchiveFile+"/"+f.File] = f
	}
}

// AddCollections registers public collections by folder
func (x *Index) AddCollections(collections []*domain.Collection) {
	for _, c := range collections {
		x.collectionsByFile[c.File] = c
	}
}

// UserID looks up a user by email, ignoring case
func (x *Index) UserID(email string) (int, bool) {
	if x == nil || email == "" {
		return 0, false
	}
	uid, ok := x.users[strings.ToLower(email)]
	return uid, ok
}

// FondID looks up a fond by atom id
func (x *Index) FondID(atomID string) (int, bool) {
	if x == nil {
		return 0, false
	}
	fid, ok := x.fondsByAtomID[atomID]
	return fid, ok
}

// Fond looks up a fond by its archive and fond folder names
func (x *Index) Fond(archiveFile, fondFile string) *domain.Fond {
	if x == nil {
		return nil
	}
	return x.fondsByFile[archiveFile+"/"+fondFile]
}

// Collection looks up a public collection by folder name
func (x *Index) Collection(file string) *domain.Collection {
	if x == nil {
		return nil
	}
	return x.collectionsByFile[file]
}

// text returns the normalized direct text of the first match
func text(doc *xmldoc.Document, path string) string {
	return xmldoc.NormalizeSpace(doc.FindText(path))
}

// optional returns nil for an empty string
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// validURL returns u when it is a well-formed URL
func validURL(u string) *string {
	if u == "" || !paths.IsValidURL(u) {
		return nil
	}
	return &u
}
