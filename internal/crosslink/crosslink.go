// Package crosslink connects saved, private and public-derived charters to
// the records they were made from.
//
// Records that cannot be linked are dropped from their batch and logged;
// linking never fails a run.
package crosslink

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/domain"
)

// Drop reasons
const (
	ReasonDuplicate   = "duplicate atom id"
	ReasonNoAtomID    = "no atom id"
	ReasonNoURL       = "no url"
	ReasonNoOriginal  = "no canonical charter"
	ReasonNoSaveEntry = "no user save record"
	ReasonNoPrivate   = "no private original"
)

// Stats counts linked and dropped records per stage
type Stats struct {
	Linked  map[string]int `json:"linked"`
	Dropped map[string]int `json:"dropped"`
}

func newStats() Stats {
	return Stats{Linked: make(map[string]int), Dropped: make(map[string]int)}
}

// DroppedTotal sums all drops
func (s Stats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// Keys returns the drop keys in sorted order
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s.Dropped))
	for k := range s.Dropped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Linker holds the canonical charters seen so far in a run
type Linker struct {
	log       logrus.FieldLogger
	canonical map[string]int
	seen      map[string]bool
	// collection keys already kept, see collectionKey
	seenCollections map[string]bool
	stats           Stats
}

// NewLinker returns an empty linker
func NewLinker(logger logrus.FieldLogger) *Linker {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &Linker{
		log:             logger,
		canonical:       make(map[string]int),
		seen:            make(map[string]bool),
		seenCollections: make(map[string]bool),
		stats:           newStats(),
	}
}

// Stats returns the counts collected so far
func (l *Linker) Stats() Stats {
	return l.stats
}

func (l *Linker) drop(stage string, c *domain.Charter, reason string) {
	l.stats.Dropped[stage+": "+reason]++
	l.log.WithFields(logrus.Fields{
		"stage":   stage,
		"path":    c.File,
		"atom_id": c.AtomID,
		"reason":  reason,
	}).Warn("dropping charter")
}

// Dedupe removes charters whose atom id was already kept by an earlier
// call or earlier in the batch. The first occurrence wins.
func Dedupe[T domain.Charters](l *Linker, stage string, batch []T) []T {
	out := make([]T, 0, len(batch))
	for _, c := range batch {
		base := c.Base()
		if l.seen[base.AtomID] {
			l.drop(stage, base, ReasonDuplicate)
			continue
		}
		l.seen[base.AtomID] = true
		out = append(out, c)
	}
	return out
}

// DedupeCollections removes collections that collide with one kept
// earlier. Private collections collide per owner, all others by atom id.
func (l *Linker) DedupeCollections(stage string, batch []*domain.Collection) []*domain.Collection {
	out := make([]*domain.Collection, 0, len(batch))
	for _, c := range batch {
		key := collectionKey(c)
		if l.seenCollections[key] {
			l.stats.Dropped[stage+": "+ReasonDuplicate]++
			l.log.WithFields(logrus.Fields{
				"stage":   stage,
				"path":    c.File,
				"atom_id": c.AtomID,
				"reason":  ReasonDuplicate,
			}).Warn("dropping collection")
			continue
		}
		l.seenCollections[key] = true
		out = append(out, c)
	}
	return out
}

func collectionKey(c *domain.Collection) string {
	if c.Private && c.OwnerID != nil {
		return "private:" + strconv.Itoa(*c.OwnerID) + ":" + c.AtomID
	}
	return "public:" + c.AtomID
}

// IndexCanonical records the atom ids of public charters that saved and
// private charters may refer to
func IndexCanonical[T domain.Charters](l *Linker, batch []T) {
	for _, c := range batch {
		base := c.Base()
		if _, ok := l.canonical[base.AtomID]; !ok {
			l.canonical[base.AtomID] = base.ID
		}
	}
}

// CanonicalID looks up a public charter by atom id
func (l *Linker) CanonicalID(atomID string) (int, bool) {
	id, ok := l.canonical[atomID]
	return id, ok
}

// LinkSaved attaches saved charters to their public original and applies
// the owning user's save record. The save record is authoritative for the
// editor, start time and release flag. Saved charters no user saved, or
// without a public original, are dropped.
func (l *Linker) LinkSaved(saved []*domain.SavedCharter, users []*domain.User) []*domain.SavedCharter {
	const stage = "saved charters"

	byAtomID := make(map[string]*domain.SavedCharter, len(saved))
	for _, c := range saved {
		switch {
		case c.AtomID == "":
			l.drop(stage, &c.Charter, ReasonNoAtomID)
		case c.URL == "":
			l.drop(stage, &c.Charter, ReasonNoURL)
		case byAtomID[c.AtomID] != nil:
			l.drop(stage, &c.Charter, ReasonDuplicate)
		default:
			byAtomID[c.AtomID] = c
		}
	}

	used := make(map[string]bool)
	var out []*domain.SavedCharter
	for _, u := range users {
		for _, rec := range u.Saved {
			c := byAtomID[rec.AtomID]
			if c == nil || used[rec.AtomID] {
				continue
			}
			used[rec.AtomID] = true

			original, ok := l.canonical[c.AtomID]
			if !ok {
				l.drop(stage, &c.Charter, ReasonNoOriginal)
				continue
			}
			c.OriginalCharterID = original
			c.EditorID = u.ID
			c.StartTime = rec.StartTime
			c.Released = rec.Released
			out = append(out, c)
		}
	}

	for _, c := range saved {
		if byAtomID[c.AtomID] == c && !used[c.AtomID] {
			l.drop(stage, &c.Charter, ReasonNoSaveEntry)
		}
	}

	l.stats.Linked[stage] += len(out)
	return out
}

type privateKey struct {
	owner      string
	collection string
	atomID     string
}

func keyOf(ownerEmail, collectionAtomID, atomID string) privateKey {
	return privateKey{strings.ToLower(ownerEmail), collectionAtomID, atomID}
}

// LinkPrivate resolves the optional back-reference of private charters to
// a public charter. An unresolved reference is logged and left empty.
// Duplicates within one owner and collection are dropped.
func (l *Linker) LinkPrivate(private []*domain.PrivateCharter) []*domain.PrivateCharter {
	const stage = "private charters"

	seen := make(map[privateKey]bool)
	var out []*domain.PrivateCharter
	for _, c := range private {
		switch {
		case c.AtomID == "":
			l.drop(stage, &c.Charter, ReasonNoAtomID)
			continue
		case c.URL == "":
			l.drop(stage, &c.Charter, ReasonNoURL)
			continue
		}
		key := keyOf(c.OwnerEmail, c.CollectionAtomID, c.AtomID)
		if seen[key] {
			l.drop(stage, &c.Charter, ReasonDuplicate)
			continue
		}
		seen[key] = true

		if c.SourceAtomID != nil {
			if id, ok := l.canonical[*c.SourceAtomID]; ok {
				c.SourceCharterID = &id
				l.stats.Linked[stage]++
			} else {
				l.log.WithFields(logrus.Fields{
					"stage":   stage,
					"path":    c.File,
					"atom_id": c.AtomID,
					"source":  *c.SourceAtomID,
				}).Warn("private charter source not found")
			}
		}
		out = append(out, c)
	}
	return out
}

// LinkPublicCollections points public copies of private collections at
// their source by owner email and atom id. Unmatched copies are kept
// without a source.
func (l *Linker) LinkPublicCollections(public, private []*domain.Collection) {
	const stage = "public collections"

	type key struct{ owner, atomID string }
	sources := make(map[key]int, len(private))
	for _, c := range private {
		if c.OwnerEmail == nil {
			continue
		}
		k := key{strings.ToLower(*c.OwnerEmail), c.AtomID}
		if _, ok := sources[k]; !ok {
			sources[k] = c.ID
		}
	}

	for _, c := range public {
		var owner string
		if c.OwnerEmail != nil {
			owner = strings.ToLower(*c.OwnerEmail)
		}
		if id, ok := sources[key{owner, c.AtomID}]; ok {
			c.SourceCollectionID = &id
			l.stats.Linked[stage]++
			continue
		}
		l.log.WithFields(logrus.Fields{
			"stage":   stage,
			"path":    c.File,
			"atom_id": c.AtomID,
		}).Warn("public collection has no private source")
	}
}

// LinkPublic matches public copies of private charters to the private
// charter they were published from, by owner email, collection atom id
// and charter atom id. The first private charter with a key wins.
// Unmatched copies are dropped.
func (l *Linker) LinkPublic(public []*domain.CollectionCharter, private []*domain.PrivateCharter) []*domain.CollectionCharter {
	const stage = "public charters"

	byKey := make(map[privateKey]*domain.PrivateCharter, len(private))
	for _, c := range private {
		k := keyOf(c.OwnerEmail, c.CollectionAtomID, c.AtomID)
		if _, ok := byKey[k]; !ok {
			byKey[k] = c
		}
	}

	var out []*domain.CollectionCharter
	for _, c := range public {
		if c.OwnerEmail == nil || c.CollectionAtomID == nil {
			l.drop(stage, &c.Charter, ReasonNoPrivate)
			continue
		}
		source := byKey[keyOf(*c.OwnerEmail, *c.CollectionAtomID, c.AtomID)]
		if source == nil {
			l.drop(stage, &c.Charter, ReasonNoPrivate)
			continue
		}
		id, atomID := source.ID, source.AtomID
		c.SourceMycharterID = &id
		c.SourceMycharterAtom = &atomID
		out = append(out, c)
	}
	l.stats.Linked[stage] += len(out)
	return out
}
