package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/db"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/paths"
)

var charterColumns = []string{
	"id", "atom_id", "idno_id", "idno_text", "url",
	"abstract", "tenor",
	"issued_start", "issued_end", "issued_text", "sort_date",
	"last_editor_id",
}

// InsertUsers writes users, then links each one to its moderator
func (l *Loader) InsertUsers(ctx context.Context, users []*domain.User) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(users))
		byEmail := make(map[string]int, len(users))
		for _, u := range users {
			rows = append(rows, []any{u.ID, u.Email, u.FirstName, u.Name})
			byEmail[strings.ToLower(u.Email)] = u.ID
		}
		if err := l.copy(ctx, w, "users", []string{"id", "email", "first_name", "name"}, rows); err != nil {
			return err
		}

		var updates [][]any
		for _, u := range users {
			if u.ModeratorEmail == nil {
				continue
			}
			log := l.log.WithFields(logrus.Fields{"email": u.Email, "moderator": *u.ModeratorEmail})
			moderatorID, ok := byEmail[strings.ToLower(*u.ModeratorEmail)]
			if !ok {
				log.Warn("unknown moderator")
				continue
			}
			if moderatorID == u.ID {
				log.Warn("user is their own moderator")
				continue
			}
			updates = append(updates, []any{moderatorID, u.ID})
		}
		return w.ExecEach(ctx, l.db.Rebind("UPDATE users SET moderator_id = ? WHERE id = ?"), updates)
	})
}

// InsertImages writes the hosted image list
func (l *Loader) InsertImages(ctx context.Context, urls []string) error {
	return l.within(ctx, func(w writer) error {
		_, err := l.upsertImages(ctx, w, urls)
		return err
	})
}

// upsertImages inserts urls not yet present and returns the ID of every url
func (l *Loader) upsertImages(ctx context.Context, w writer, urls []string) (map[string]int, error) {
	seen := make(map[string]bool, len(urls))
	var unique []string
	var rows [][]any
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
		rows = append(rows, []any{u, !paths.IsHostedImage(u)})
	}

	query := l.db.Rebind("INSERT INTO images (url, is_external) VALUES (?, ?) ON CONFLICT (url) DO NOTHING")
	if err := w.ExecEach(ctx, query, rows); err != nil {
		return nil, err
	}
	return w.IDs(ctx, "images", "url", unique)
}

// linkImages writes the image join rows of a charter batch
func (l *Loader) linkImages(ctx context.Context, w writer, table, ownerColumn string, charters []*domain.Charter) error {
	var urls []string
	for _, c := range charters {
		urls = append(urls, c.Images...)
	}
	if len(urls) == 0 {
		return nil
	}

	ids, err := l.upsertImages(ctx, w, urls)
	if err != nil {
		return err
	}

	var rows [][]any
	for _, c := range charters {
		seen := make(map[int]bool, len(c.Images))
		for _, u := range c.Images {
			imageID, ok := ids[u]
			if !ok || seen[imageID] {
				continue
			}
			seen[imageID] = true
			rows = append(rows, []any{c.ID, imageID})
		}
	}
	return l.copy(ctx, w, table, []string{ownerColumn, "image_id"}, rows)
}

// InsertArchives writes archives
func (l *Loader) InsertArchives(ctx context.Context, archives []*domain.Archive) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(archives))
		for _, a := range archives {
			rows = append(rows, []any{a.ID, a.AtomID, a.CountryCode, a.Name, a.OaiShared(), a.RepositoryID})
		}
		return l.copy(ctx, w, "archives",
			[]string{"id", "atom_id", "country_code", "name", "oai_shared", "repository_id"}, rows)
	})
}

// InsertFonds writes fonds
func (l *Loader) InsertFonds(ctx context.Context, fonds []*domain.Fond) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(fonds))
		for _, f := range fonds {
			rows = append(rows, []any{f.ID, f.ArchiveID, f.AtomID, f.FreeImageAccess, f.Identifier, f.ImageBase, f.OaiShared, f.Title})
		}
		return l.copy(ctx, w, "fonds",
			[]string{"id", "archive_id", "atom_id", "free_image_access", "identifier", "image_base", "oai_shared", "title"}, rows)
	})
}

func (l *Loader) insertCollections(ctx context.Context, w writer, collections []*domain.Collection) error {
	rows := make([][]any, 0, len(collections))
	var links [][]any
	for _, c := range collections {
		rows = append(rows, []any{c.ID, c.AtomID, c.Identifier, c.ImageBase, c.OaiShared, c.Title})
		for _, fondID := range c.LinkedFondIDs {
			links = append(links, []any{c.ID, fondID})
		}
	}
	if err := l.copy(ctx, w, "collections",
		[]string{"id", "atom_id", "identifier", "image_base", "oai_shared", "title"}, rows); err != nil {
		return err
	}
	return l.copy(ctx, w, "collection_fonds", []string{"collection_id", "fond_id"}, links)
}

// InsertCollections writes public collections and their linked fonds
func (l *Loader) InsertCollections(ctx context.Context, collections []*domain.Collection) error {
	return l.within(ctx, func(w writer) error {
		return l.insertCollections(ctx, w, collections)
	})
}

// InsertPublicCollections writes published copies of private collections
// and links each to its private source
func (l *Loader) InsertPublicCollections(ctx context.Context, collections []*domain.Collection) error {
	return l.within(ctx, func(w writer) error {
		if err := l.insertCollections(ctx, w, collections); err != nil {
			return err
		}
		var sources [][]any
		for _, c := range collections {
			if c.SourceCollectionID != nil {
				sources = append(sources, []any{c.ID, *c.SourceCollectionID})
			}
		}
		return l.copy(ctx, w, "collection_source", []string{"collection_id", "source_collection_id"}, sources)
	})
}

// InsertPrivateCollections writes users' private collections
func (l *Loader) InsertPrivateCollections(ctx context.Context, collections []*domain.Collection) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(collections))
		for _, c := range collections {
			rows = append(rows, []any{c.ID, c.AtomID, c.Identifier, c.ImageBase, c.Title, c.OwnerID})
		}
		return l.copy(ctx, w, "private_collections",
			[]string{"id", "atom_id", "identifier", "image_base", "title", "owner_id"}, rows)
	})
}

func (l *Loader) charterColumns(extra ...string) []string {
	cols := append(append([]string{}, charterColumns...), extra...)
	if l.db.Dialect() == db.SQLite {
		cols = append(cols, "abstract_text", "tenor_text")
	}
	return cols
}

func (l *Loader) charterRow(c *domain.Charter, extra ...any) []any {
	row := []any{
		c.ID, c.AtomID, c.IdnoID, c.IdnoText, c.URL,
		c.Abstract, c.Tenor,
		l.date(c.IssuedStart), l.date(c.IssuedEnd), c.IssuedText, l.date(&c.SortDate),
		c.LastEditorID,
	}
	row = append(row, extra...)
	if l.db.Dialect() == db.SQLite {
		row = append(row, plainText(c.Abstract), plainText(c.Tenor))
	}
	return row
}

func bases[T domain.Charters](batch []T) []*domain.Charter {
	out := make([]*domain.Charter, len(batch))
	for i, c := range batch {
		out[i] = c.Base()
	}
	return out
}

// InsertFondCharters writes charters owned by fonds
func (l *Loader) InsertFondCharters(ctx context.Context, charters []*domain.FondCharter) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(charters))
		links := make([][]any, 0, len(charters))
		for _, c := range charters {
			rows = append(rows, l.charterRow(&c.Charter))
			links = append(links, []any{c.FondID, c.ID})
		}
		if err := l.copy(ctx, w, "charters", l.charterColumns(), rows); err != nil {
			return err
		}
		if err := l.copy(ctx, w, "fonds_charters", []string{"fond_id", "charter_id"}, links); err != nil {
			return err
		}
		return l.linkImages(ctx, w, "charters_images", "charter_id", bases(charters))
	})
}

func (l *Loader) insertCollectionCharters(ctx context.Context, w writer, charters []*domain.CollectionCharter) error {
	rows := make([][]any, 0, len(charters))
	links := make([][]any, 0, len(charters))
	for _, c := range charters {
		rows = append(rows, l.charterRow(&c.Charter, c.SourceMycharterID))
		links = append(links, []any{c.CollectionID, c.ID})
	}
	if err := l.copy(ctx, w, "charters", l.charterColumns("source_private_charter_id"), rows); err != nil {
		return err
	}
	if err := l.copy(ctx, w, "collections_charters", []string{"collection_id", "charter_id"}, links); err != nil {
		return err
	}
	return l.linkImages(ctx, w, "charters_images", "charter_id", bases(charters))
}

// InsertCollectionCharters writes charters owned by public collections
func (l *Loader) InsertCollectionCharters(ctx context.Context, charters []*domain.CollectionCharter) error {
	return l.within(ctx, func(w writer) error {
		return l.insertCollectionCharters(ctx, w, charters)
	})
}

// InsertPublicCharters writes charters of published private collections
func (l *Loader) InsertPublicCharters(ctx context.Context, charters []*domain.CollectionCharter) error {
	return l.within(ctx, func(w writer) error {
		return l.insertCollectionCharters(ctx, w, charters)
	})
}

// InsertBookmarks writes the bookmarks of users whose charter exists
func (l *Loader) InsertBookmarks(ctx context.Context, users []*domain.User) error {
	return l.within(ctx, func(w writer) error {
		var atomIDs []string
		for _, u := range users {
			for _, b := range u.Bookmarks {
				atomIDs = append(atomIDs, b.AtomID)
			}
		}
		if len(atomIDs) == 0 {
			return nil
		}

		charterIDs, err := w.IDs(ctx, "charters", "atom_id", atomIDs)
		if err != nil {
			return err
		}

		var rows [][]any
		missing := 0
		for _, u := range users {
			seen := make(map[int]bool, len(u.Bookmarks))
			for _, b := range u.Bookmarks {
				charterID, ok := charterIDs[b.AtomID]
				if !ok {
					missing++
					continue
				}
				if seen[charterID] {
					continue
				}
				seen[charterID] = true
				rows = append(rows, []any{u.ID, charterID, b.Note})
			}
		}
		if missing > 0 {
			l.log.WithField("count", missing).Info("bookmarks of unknown charters skipped")
		}
		return l.copy(ctx, w, "user_charter_bookmarks", []string{"user_id", "charter_id", "note"}, rows)
	})
}

// InsertSavedCharters writes users' working copies
func (l *Loader) InsertSavedCharters(ctx context.Context, charters []*domain.SavedCharter) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(charters))
		for _, c := range charters {
			rows = append(rows, l.charterRow(&c.Charter, c.EditorID, c.Released, c.OriginalCharterID, l.timestamp(c.StartTime)))
		}
		cols := l.charterColumns("editor_id", "is_released", "original_charter_id", "start_time")
		if err := l.copy(ctx, w, "saved_charters", cols, rows); err != nil {
			return err
		}
		return l.linkImages(ctx, w, "saved_charters_images", "saved_charter_id", bases(charters))
	})
}

// InsertPrivateCharters writes charters of private collections
func (l *Loader) InsertPrivateCharters(ctx context.Context, charters []*domain.PrivateCharter) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(charters))
		for _, c := range charters {
			rows = append(rows, l.charterRow(&c.Charter, c.CollectionID, c.SourceCharterID))
		}
		cols := l.charterColumns("private_collection_id", "source_charter_id")
		if err := l.copy(ctx, w, "private_charters", cols, rows); err != nil {
			return err
		}
		return l.linkImages(ctx, w, "private_charters_images", "private_charter_id", bases(charters))
	})
}

// InsertPersons writes canonical persons and every mention
func (l *Loader) InsertPersons(ctx context.Context, persons []*domain.Person, names []*domain.PersonName) error {
	return l.within(ctx, func(w writer) error {
		rows := make([][]any, 0, len(persons))
		for _, p := range persons {
			rows = append(rows, []any{p.ID, p.Label(), p.MomID, p.MomIRI, p.WikidataIRI})
		}
		if err := l.copy(ctx, w, "persons",
			[]string{"id", "label", "mom_id", "mom_iri", "wikidata_iri"}, rows); err != nil {
			return err
		}

		nameRows := make([][]any, 0, len(names))
		for _, n := range names {
			if err := domain.ValidateTier(n.Tier); err != nil {
				return fmt.Errorf("person name %d: %w", n.ID, err)
			}
			if err := domain.ValidateLocation(n.Location); err != nil {
				return fmt.Errorf("person name %d: %w", n.ID, err)
			}

			var charterID, savedID, privateID any
			switch n.Tier {
			case domain.TierSaved:
				savedID = n.CharterID
			case domain.TierPrivate:
				privateID = n.CharterID
			case domain.TierPublic:
				charterID = n.CharterID
			}
			nameRows = append(nameRows, []any{
				n.ID, charterID, savedID, privateID, string(n.Location), n.Text, n.Reg, n.Key, n.PersonID,
			})
		}
		return l.copy(ctx, w, "person_names",
			[]string{"id", "charter_id", "saved_charter_id", "private_charter_id", "location", "text", "reg", "key", "person_id"},
			nameRows)
	})
}
