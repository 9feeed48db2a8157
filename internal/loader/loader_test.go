package loader

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lherron/momcheck/internal/archive"
	"github.com/lherron/momcheck/internal/backup"
	"github.com/lherron/momcheck/internal/db"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/testutil"
)

func ptr[T any](v T) *T {
	return &v
}

func newLoader(t *testing.T) (*Loader, *db.DB) {
	t.Helper()
	database, _ := testutil.TempDB(t)
	return New(database, nil), database
}

func count(t *testing.T, database *db.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := database.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("query %q failed: %v", query, err)
	}
	return n
}

// seedFond writes one archive with one fond
func seedFond(t *testing.T, l *Loader) {
	t.Helper()
	ctx := context.Background()
	testutil.AssertNoError(t, l.InsertArchives(ctx, []*domain.Archive{
		{ID: 1, AtomID: "tag:archive/AT-ABC", CountryCode: "AT", Name: "Stiftsarchiv", RepositoryID: "AT-ABC"},
	}))
	testutil.AssertNoError(t, l.InsertFonds(ctx, []*domain.Fond{
		{ID: 1, ArchiveID: 1, AtomID: "tag:fond/AT-ABC/Urkunden", Identifier: "Urkunden", Title: "Urkunden"},
	}))
}

func fondCharter(charterID int, atomID string, images ...string) *domain.FondCharter {
	return &domain.FondCharter{
		Charter: domain.Charter{
			ID:       charterID,
			AtomID:   atomID,
			IdnoID:   atomID,
			IdnoText: atomID,
			URL:      "https://www.monasterium.net/mom/AT-ABC/Urkunden/" + atomID + "/charter",
			SortDate: time.Date(1299, 1, 1, 0, 0, 0, 0, time.UTC),
			Images:   images,
		},
		ArchiveID: 1,
		FondID:    1,
	}
}

func TestImagesAreDeduplicated(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)
	seedFond(t, l)

	hosted := "http://images.monasterium.net/img/AT-ABC/1.jpg"
	external := "https://example.org/scan/1.jpg"

	testutil.AssertNoError(t, l.InsertImages(ctx, []string{hosted, hosted}))
	testutil.AssertNoError(t, l.InsertFondCharters(ctx, []*domain.FondCharter{
		fondCharter(1, "c1", hosted, external),
		fondCharter(2, "c2", external, external),
	}))

	testutil.AssertEqual(t, 2, count(t, database, "SELECT COUNT(*) FROM images"))
	testutil.AssertEqual(t, 3, count(t, database, "SELECT COUNT(*) FROM charters_images"))
	testutil.AssertEqual(t, 0, count(t, database, "SELECT is_external FROM images WHERE url = ?", hosted))
	testutil.AssertEqual(t, 1, count(t, database, "SELECT is_external FROM images WHERE url = ?", external))
}

func TestInsertUsers_Moderators(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)

	testutil.AssertNoError(t, l.InsertUsers(ctx, []*domain.User{
		{ID: 1, Email: "Boss@example.org"},
		{ID: 2, Email: "editor@example.org", ModeratorEmail: ptr("boss@example.org")},
		{ID: 3, Email: "self@example.org", ModeratorEmail: ptr("self@example.org")},
		{ID: 4, Email: "lost@example.org", ModeratorEmail: ptr("nobody@example.org")},
	}))

	testutil.AssertEqual(t, 1, count(t, database, "SELECT moderator_id FROM users WHERE id = 2"))
	testutil.AssertEqual(t, 3, count(t, database, "SELECT COUNT(*) FROM users WHERE moderator_id IS NULL"))
	testutil.AssertEqual(t, 4, l.Counts()["users"])
}

func TestInsertBookmarks_OnlyExistingCharters(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)
	seedFond(t, l)

	testutil.AssertNoError(t, l.InsertFondCharters(ctx, []*domain.FondCharter{fondCharter(1, "c1")}))
	users := []*domain.User{{
		ID:    1,
		Email: "editor@example.org",
		Bookmarks: []domain.Bookmark{
			{AtomID: "c1", Note: ptr("check seal")},
			{AtomID: "c1"},
			{AtomID: "gone"},
		},
	}}
	testutil.AssertNoError(t, l.InsertUsers(ctx, users))
	testutil.AssertNoError(t, l.InsertBookmarks(ctx, users))

	testutil.AssertEqual(t, 1, count(t, database, "SELECT COUNT(*) FROM user_charter_bookmarks"))

	var note string
	if err := database.QueryRow("SELECT note FROM user_charter_bookmarks").Scan(&note); err != nil {
		t.Fatalf("failed to read note: %v", err)
	}
	testutil.AssertEqual(t, "check seal", note)
}

func TestCharterTextColumns(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)
	seedFond(t, l)

	c := fondCharter(1, "c1")
	c.Abstract = ptr(`<cei:abstract xmlns:cei="http://www.monasterium.net/NS/cei">Herzog <cei:persName>Albrecht</cei:persName> urkundet</cei:abstract>`)
	c.IssuedStart = ptr(time.Date(1299, 1, 1, 0, 0, 0, 0, time.UTC))
	c.IssuedEnd = ptr(time.Date(1299, 1, 31, 0, 0, 0, 0, time.UTC))
	testutil.AssertNoError(t, l.InsertFondCharters(ctx, []*domain.FondCharter{c}))

	var text, start, end, sortDate string
	err := database.QueryRow("SELECT abstract_text, issued_start, issued_end, sort_date FROM charters WHERE id = 1").
		Scan(&text, &start, &end, &sortDate)
	if err != nil {
		t.Fatalf("failed to read charter: %v", err)
	}

	got := []string{text, start, end, sortDate}
	want := []string{"Herzog Albrecht urkundet", "1299-01-01", "1299-01-31", "1299-01-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("charter columns mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertPersons_OwnerColumnFollowsTier(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)
	seedFond(t, l)

	testutil.AssertNoError(t, l.InsertUsers(ctx, []*domain.User{{ID: 1, Email: "editor@example.org"}}))
	testutil.AssertNoError(t, l.InsertFondCharters(ctx, []*domain.FondCharter{fondCharter(1, "c1")}))
	saved := &domain.SavedCharter{
		Charter:           fondCharter(1, "saved-c1").Charter,
		EditorID:          1,
		StartTime:         time.Date(2020, 2, 2, 10, 0, 0, 0, time.UTC),
		OriginalCharterID: 1,
	}
	testutil.AssertNoError(t, l.InsertSavedCharters(ctx, []*domain.SavedCharter{saved}))

	persons := []*domain.Person{{ID: 1, Names: []string{"Albrecht", "Albertus"}, WikidataIRI: ptr("http://www.wikidata.org/entity/Q42")}}
	names := []*domain.PersonName{
		{ID: 1, CharterID: 1, Tier: domain.TierPublic, Location: domain.LocationAbstract, Text: "Albrecht", PersonID: ptr(1)},
		{ID: 2, CharterID: 1, Tier: domain.TierSaved, Location: domain.LocationTenor, Text: "Albertus", PersonID: ptr(1)},
		{ID: 3, CharterID: 1, Tier: domain.TierPublic, Location: domain.LocationBack, Text: "Heinrich"},
	}
	testutil.AssertNoError(t, l.InsertPersons(ctx, persons, names))

	testutil.AssertEqual(t, 2, count(t, database, "SELECT COUNT(*) FROM person_names WHERE charter_id = 1"))
	testutil.AssertEqual(t, 1, count(t, database, "SELECT COUNT(*) FROM person_names WHERE saved_charter_id = 1"))
	testutil.AssertEqual(t, 1, count(t, database, "SELECT COUNT(*) FROM person_names WHERE person_id IS NULL"))

	var label string
	if err := database.QueryRow("SELECT label FROM persons WHERE id = 1").Scan(&label); err != nil {
		t.Fatalf("failed to read person: %v", err)
	}
	testutil.AssertEqual(t, "Albrecht; Albertus", label)
}

func TestInsertPersons_RejectsUnknownTierAndLocation(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)
	seedFond(t, l)
	testutil.AssertNoError(t, l.InsertFondCharters(ctx, []*domain.FondCharter{fondCharter(1, "c1")}))

	tests := []struct {
		name string
		pn   *domain.PersonName
	}{
		{"missing tier", &domain.PersonName{ID: 1, CharterID: 1, Location: domain.LocationAbstract, Text: "A"}},
		{"unknown location", &domain.PersonName{ID: 1, CharterID: 1, Tier: domain.TierPublic, Location: "front", Text: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.InsertPersons(ctx, nil, []*domain.PersonName{tt.pn}); err == nil {
				t.Fatal("expected error")
			}
			testutil.AssertEqual(t, 0, count(t, database, "SELECT COUNT(*) FROM person_names"))
		})
	}
}

func TestLoadBackupEndToEnd(t *testing.T) {
	ctx := context.Background()
	l, database := newLoader(t)

	const charterBase = "tag:www.monasterium.net,2011:/charter/AT-ABC/Urkunden/"
	z := testutil.NewZip().
		AddData("xrx.user/editor@example.org.xml", testutil.UserXML(testutil.User{
			Email:     "editor@example.org",
			Bookmarks: []string{charterBase + "1"},
		})).
		AddData("metadata.archive.public/AT-ABC/AT-ABC.eag.xml", testutil.ArchiveEAG("tag:www.monasterium.net,2011:/archive/AT-ABC", "AT-ABC", "AT", "Stiftsarchiv")).
		AddData("metadata.fond.public/AT-ABC/Urkunden/Urkunden.ead.xml", testutil.FondEAD("tag:www.monasterium.net,2011:/fond/AT-ABC/Urkunden", "Urkunden", "Urkunden")).
		AddData("metadata.charter.public/AT-ABC/Urkunden/1.cei.xml", testutil.CharterCEI(testutil.Charter{
			AtomID:   charterBase + "1",
			IdnoText: "1",
			Date:     "12990101",
			Abstract: `Herzog <cei:persName key="wikidata:Q42">Albrecht</cei:persName> urkundet`,
			Graphics: []string{"http://images.monasterium.net/img/AT-ABC/1.jpg"},
		})).
		EmptyDir("metadata.collection.public").
		EmptyDir("metadata.charter.saved")

	data := z.Bytes(t)
	src, err := archive.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open zip: %v", err)
	}

	o := backup.New(src, backup.Options{
		ImageURLs: []string{"http://images.monasterium.net/img/AT-ABC/1.jpg"},
		Alloc:     id.NewAllocator(),
		Now:       func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if _, err := o.Run(ctx, l); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tables := map[string]int{
		"users":                  1,
		"archives":               1,
		"fonds":                  1,
		"charters":               1,
		"fonds_charters":         1,
		"images":                 1,
		"charters_images":        1,
		"user_charter_bookmarks": 1,
		"persons":                1,
		"person_names":           1,
	}
	got := make(map[string]int, len(tables))
	for table := range tables {
		got[table] = count(t, database, "SELECT COUNT(*) FROM "+table)
	}
	if diff := cmp.Diff(tables, got); diff != "" {
		t.Errorf("row counts mismatch (-want +got):\n%s", diff)
	}

	if _, err := database.ResetSequences(ctx); err != nil {
		t.Fatalf("ResetSequences() error = %v", err)
	}
}
