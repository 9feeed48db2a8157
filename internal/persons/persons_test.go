package persons

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
)

func strPtr(s string) *string { return &s }

func TestNormalizeWikidataKey(t *testing.T) {
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"wikidata:Q123", "http://www.wikidata.org/entity/Q123", true},
		{"P_wikidata_123", "http://www.wikidata.org/entity/Q123", true},
		{"P_wikidata_Q123", "http://www.wikidata.org/entity/Q123", true},
		{" wikidata:Q7 ", "http://www.wikidata.org/entity/Q7", true},
		{"P_123", "", false},
		{"wikidata:", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := NormalizeWikidataKey(tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeWikidataKey(%q) = %q, %v, want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolve_NoKeys(t *testing.T) {
	r := NewResolver(id.NewAllocator())
	p, err := r.Resolve("Anonymous", nil, strPtr(""))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p != nil {
		t.Errorf("Resolve() = %+v, want nil", p)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestResolve_MergeCommutative(t *testing.T) {
	x := strPtr("http://www.wikidata.org/entity/Q42")
	type mention struct {
		name     string
		wikidata *string
		source   *string
	}
	a := mention{"Albrecht", x, strPtr("mom-a")}
	b := mention{"Albertus", x, strPtr("mom-b")}

	for _, order := range [][]mention{{a, b}, {b, a}} {
		r := NewResolver(id.NewAllocator())
		var ids []int
		for _, m := range order {
			p, err := r.Resolve(m.name, m.wikidata, m.source)
			if err != nil {
				t.Fatalf("Resolve(%s) error = %v", m.name, err)
			}
			ids = append(ids, p.ID)
		}
		if ids[0] != ids[1] {
			t.Errorf("mentions resolved to persons %v, want one", ids)
		}
		if r.Count() != 1 {
			t.Errorf("Count() = %d, want 1", r.Count())
		}

		// both source ids now address the person
		for _, src := range []string{"mom-a", "mom-b"} {
			p, err := r.Find("", nil, strPtr(src))
			if err != nil || p == nil || p.ID != ids[0] {
				t.Errorf("Find(%s) = %v, %v", src, p, err)
			}
		}
	}
}

func TestResolve_AppendsNameVariants(t *testing.T) {
	r := NewResolver(id.NewAllocator())
	x := strPtr("http://www.wikidata.org/entity/Q1")
	for _, name := range []string{"Otto", "Otto", "Otto I."} {
		if _, err := r.Resolve(name, x, nil); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}

	persons := r.Persons()
	if len(persons) != 1 {
		t.Fatalf("Persons() = %d, want 1", len(persons))
	}
	if diff := cmp.Diff([]string{"Otto", "Otto I."}, persons[0].Names); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if got := persons[0].Label(); got != "Otto; Otto I." {
		t.Errorf("Label() = %q", got)
	}
}

func TestResolve_IdentityConflict(t *testing.T) {
	r := NewResolver(id.NewAllocator())
	x := strPtr("http://www.wikidata.org/entity/Q1")
	y := strPtr("http://www.wikidata.org/entity/Q2")

	if _, err := r.Resolve("One", x, strPtr("one")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve("Two", y, strPtr("two")); err != nil {
		t.Fatal(err)
	}

	_, err := r.Resolve("Mixed", x, strPtr("two"))
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("Resolve() error = %v, want ErrIdentityConflict", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error is not *ConflictError: %T", err)
	}
	if conflict.WikidataPersonID == conflict.SourcePersonID {
		t.Errorf("conflict names one person: %+v", conflict)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestRegisterIndex(t *testing.T) {
	alloc := id.NewAllocator()
	r := NewResolver(alloc)

	index := []domain.IndexPerson{
		{
			IndexIdentifier: "persons",
			XMLID:           "P_wikidata_Q5",
			MomIRI:          "http://www.monasterium.net/mom/index/persons/P_wikidata_Q5",
			WikidataIRI:     strPtr("http://www.wikidata.org/entity/Q5"),
			Names:           []domain.IndexName{{Text: "Rudolf"}, {Text: "Rudolphus"}},
		},
		{
			IndexIdentifier: "persons",
			XMLID:           "P_local_1",
			MomIRI:          "http://www.monasterium.net/mom/index/persons/P_local_1",
			Names:           []domain.IndexName{{Text: "Heinrich"}},
		},
		{
			// same wikidata IRI as the first entry
			IndexIdentifier: "persons",
			XMLID:           "P_dup",
			WikidataIRI:     strPtr("http://www.wikidata.org/entity/Q5"),
			Names:           []domain.IndexName{{Text: "Rudolf IV."}},
		},
	}

	got, err := r.RegisterIndex(index)
	if err != nil {
		t.Fatalf("RegisterIndex() error = %v", err)
	}
	if len(got) != 3 || got[0].ID != got[2].ID {
		t.Fatalf("RegisterIndex() returned %d persons, first and last should match", len(got))
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if alloc.Peek(id.KindPerson) != 2 {
		t.Errorf("allocated %d person ids, want 2", alloc.Peek(id.KindPerson))
	}

	first := got[0]
	if first.MomID == nil || *first.MomID != "P_wikidata_Q5" {
		t.Errorf("MomID = %v", first.MomID)
	}
	if first.MomIRI == nil || *first.MomIRI != index[0].MomIRI {
		t.Errorf("MomIRI = %v", first.MomIRI)
	}

	// a charter mention keyed by the index xml:id resolves to the seeded person
	p, err := r.Resolve("Heinricus", nil, strPtr("P_local_1"))
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != got[1].ID {
		t.Errorf("Resolve() = person %d, want %d", p.ID, got[1].ID)
	}
	if diff := cmp.Diff([]string{"Heinrich", "Heinricus"}, p.Names); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterIndex_ReportsEveryConflict(t *testing.T) {
	r := NewResolver(id.NewAllocator())
	q1 := strPtr("http://www.wikidata.org/entity/Q1")
	q2 := strPtr("http://www.wikidata.org/entity/Q2")
	if _, err := r.Resolve("One", q1, strPtr("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve("Two", q2, strPtr("b")); err != nil {
		t.Fatal(err)
	}

	_, err := r.RegisterIndex([]domain.IndexPerson{
		{IndexIdentifier: "persons", XMLID: "b", WikidataIRI: q1, Names: []domain.IndexName{{Text: "X"}}},
		{IndexIdentifier: "persons", XMLID: "c", Names: []domain.IndexName{{Text: "Fine"}}},
		{IndexIdentifier: "persons", XMLID: "a", WikidataIRI: q2, Names: []domain.IndexName{{Text: "Y"}}},
	})
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("RegisterIndex() error = %v, want ErrIdentityConflict", err)
	}

	conflicts := Conflicts(err)
	if len(conflicts) != 2 {
		t.Fatalf("Conflicts() = %d, want 2", len(conflicts))
	}
	if conflicts[0].SourceID != "b" || conflicts[1].SourceID != "a" {
		t.Errorf("conflicts = %+v, %+v", conflicts[0], conflicts[1])
	}
	if Conflicts(nil) != nil || Conflicts(errors.New("other")) != nil {
		t.Error("Conflicts() found conflicts in unrelated errors")
	}
}
