// Package persons resolves person-name mentions to canonical persons.
//
// A person is addressed by its Wikidata IRI and by its MOM source ID.
// Either key may be missing; a mention carrying both must not bridge two
// different existing persons.
package persons

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
)

// WikidataEntityBase is the canonical prefix of Wikidata entity IRIs
const WikidataEntityBase = "http://www.wikidata.org/entity/"

// ErrIdentityConflict is returned when the keys of a mention name two persons
var ErrIdentityConflict = errors.New("identity conflict")

// ConflictError describes an identity conflict
type ConflictError struct {
	Name             string
	WikidataIRI      string
	SourceID         string
	WikidataPersonID int
	SourcePersonID   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s exists twice for wikidata/mom %s/%s (persons %d and %d)",
		e.Name, e.WikidataIRI, e.SourceID, e.WikidataPersonID, e.SourcePersonID)
}

func (e *ConflictError) Unwrap() error {
	return ErrIdentityConflict
}

var (
	wikidataPrefixed = regexp.MustCompile(`^wikidata:(Q?\d+)$`)
	wikidataLegacy   = regexp.MustCompile(`^P_wikidata_(Q?\d+)$`)
)

// NormalizeWikidataKey maps the legacy key encodings wikidata:Q123,
// P_wikidata_123 and P_wikidata_Q123 to the canonical entity IRI.
func NormalizeWikidataKey(key string) (string, bool) {
	key = strings.TrimSpace(key)
	var m []string
	if m = wikidataPrefixed.FindStringSubmatch(key); m == nil {
		m = wikidataLegacy.FindStringSubmatch(key)
	}
	if m == nil {
		return "", false
	}
	q := m[1]
	if !strings.HasPrefix(q, "Q") {
		q = "Q" + q
	}
	return WikidataEntityBase + q, true
}

// Resolver holds the canonical persons of one run
type Resolver struct {
	alloc      *id.Allocator
	persons    []*domain.Person
	byID       map[int]*domain.Person
	byWikidata map[string]int
	bySource   map[string]int
}

// NewResolver returns an empty resolver allocating person IDs from alloc
func NewResolver(alloc *id.Allocator) *Resolver {
	return &Resolver{
		alloc:      alloc,
		byID:       make(map[int]*domain.Person),
		byWikidata: make(map[string]int),
		bySource:   make(map[string]int),
	}
}

// Find looks up a person without creating one. It returns nil when neither
// key is known.
func (r *Resolver) Find(name string, wikidataIRI, sourceID *string) (*domain.Person, error) {
	wid, wok := lookup(r.byWikidata, wikidataIRI)
	sid, sok := lookup(r.bySource, sourceID)

	if wok && sok && wid != sid {
		return nil, &ConflictError{
			Name:             name,
			WikidataIRI:      *wikidataIRI,
			SourceID:         *sourceID,
			WikidataPersonID: wid,
			SourcePersonID:   sid,
		}
	}
	switch {
	case wok:
		return r.byID[wid], nil
	case sok:
		return r.byID[sid], nil
	default:
		return nil, nil
	}
}

// Resolve returns the person a mention refers to, creating it when no key
// is known yet. Keys the person did not have are registered on it, and an
// unseen name variant is appended. A mention without keys resolves to nil.
func (r *Resolver) Resolve(name string, wikidataIRI, sourceID *string) (*domain.Person, error) {
	if empty(wikidataIRI) && empty(sourceID) {
		return nil, nil
	}

	p, err := r.Find(name, wikidataIRI, sourceID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = r.create(nil, nil)
	}
	r.attach(p, wikidataIRI, sourceID)
	if name != "" && !contains(p.Names, name) {
		p.Names = append(p.Names, name)
	}
	return p, nil
}

// RegisterIndexPerson seeds the resolver with a curated index entry.
// An entry whose keys are already known returns the existing person.
func (r *Resolver) RegisterIndexPerson(ip domain.IndexPerson) (*domain.Person, error) {
	names := make([]string, 0, len(ip.Names))
	for _, n := range ip.Names {
		names = append(names, n.Text)
	}
	label := strings.Join(names, "; ")

	xmlID := ip.XMLID
	p, err := r.Find(label, ip.WikidataIRI, &xmlID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	momIRI := ip.MomIRI
	p = r.create(names, &momIRI)
	r.attach(p, ip.WikidataIRI, &xmlID)
	return p, nil
}

// RegisterIndex seeds every person of an index. Conflicting entries are
// collected and returned together; the remaining entries are registered.
func (r *Resolver) RegisterIndex(persons []domain.IndexPerson) ([]*domain.Person, error) {
	var out []*domain.Person
	var errs []error
	for _, ip := range persons {
		p, err := r.RegisterIndexPerson(ip)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to register %s/%s: %w", ip.IndexIdentifier, ip.XMLID, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

// Conflicts returns every ConflictError in err, looking through joined
// and wrapped errors
func Conflicts(err error) []*ConflictError {
	if err == nil {
		return nil
	}
	var conflict *ConflictError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ConflictError
		for _, e := range joined.Unwrap() {
			out = append(out, Conflicts(e)...)
		}
		return out
	}
	if errors.As(err, &conflict) {
		return []*ConflictError{conflict}
	}
	return nil
}

// Persons lists all persons in creation order
func (r *Resolver) Persons() []*domain.Person {
	return append([]*domain.Person(nil), r.persons...)
}

// Count returns the number of persons
func (r *Resolver) Count() int {
	return len(r.persons)
}

func (r *Resolver) create(names []string, momIRI *string) *domain.Person {
	p := &domain.Person{
		ID:     r.alloc.Next(id.KindPerson),
		Names:  names,
		MomIRI: momIRI,
	}
	r.persons = append(r.persons, p)
	r.byID[p.ID] = p
	return p
}

func (r *Resolver) attach(p *domain.Person, wikidataIRI, sourceID *string) {
	if !empty(wikidataIRI) {
		if _, ok := r.byWikidata[*wikidataIRI]; !ok {
			r.byWikidata[*wikidataIRI] = p.ID
		}
		if p.WikidataIRI == nil {
			v := *wikidataIRI
			p.WikidataIRI = &v
		}
	}
	if !empty(sourceID) {
		if _, ok := r.bySource[*sourceID]; !ok {
			r.bySource[*sourceID] = p.ID
		}
		if p.MomID == nil {
			v := *sourceID
			p.MomID = &v
		}
	}
}

func lookup(m map[string]int, key *string) (int, bool) {
	if empty(key) {
		return 0, false
	}
	v, ok := m[*key]
	return v, ok
}

func empty(s *string) bool {
	return s == nil || *s == ""
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
