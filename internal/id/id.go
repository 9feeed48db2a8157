package id

// Kind represents the entity kind an ID is allocated for
type Kind string

const (
	KindUser              Kind = "user"
	KindArchive           Kind = "archive"
	KindFond              Kind = "fond"
	KindCollection        Kind = "collection"
	KindPrivateCollection Kind = "private_collection"
	KindCharter           Kind = "charter"
	KindSavedCharter      Kind = "saved_charter"
	KindPrivateCharter    Kind = "private_charter"
	KindPerson            Kind = "person"
	KindPersonName        Kind = "person_name"
	KindIndexPerson       Kind = "index_person"
)

// Kinds returns every known kind in a stable order
func Kinds() []Kind {
	return []Kind{
		KindUser,
		KindArchive,
		KindFond,
		KindCollection,
		KindPrivateCollection,
		KindCharter,
		KindSavedCharter,
		KindPrivateCharter,
		KindPerson,
		KindPersonName,
		KindIndexPerson,
	}
}

// Allocator hands out surrogate IDs, one monotonic counter per kind.
// Counters start at 1 and are never reused within a run.
// An Allocator is not safe for concurrent use.
type Allocator struct {
	counters map[Kind]int
}

// NewAllocator creates an allocator with all counters at zero
func NewAllocator() *Allocator {
	return &Allocator{counters: make(map[Kind]int)}
}

// Next returns the next ID for the given kind
func (a *Allocator) Next(kind Kind) int {
	a.counters[kind]++
	return a.counters[kind]
}

// Peek returns the last ID handed out for kind, or 0 if none was
func (a *Allocator) Peek(kind Kind) int {
	return a.counters[kind]
}

// Reset clears every counter. Only call this between independent runs.
func (a *Allocator) Reset() {
	a.counters = make(map[Kind]int)
}

// Snapshot returns the counter of every kind keyed by kind name.
// Kinds that were never allocated are reported as 0.
func (a *Allocator) Snapshot() map[string]int {
	out := make(map[string]int, len(a.counters))
	for _, k := range Kinds() {
		out[string(k)] = a.counters[k]
	}
	return out
}
