package parse

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/lherron/momcheck/internal/dateutil"
	"github.com/lherron/momcheck/internal/domain"
	"github.com/lherron/momcheck/internal/id"
	"github.com/lherron/momcheck/internal/xmldoc"
)

// moderatorFixes rewrites moderator addresses that were stored wrongly
var moderatorFixes = strings.NewReplacer(
	"g.vogeler@lrz.uni-muenchen.at", "g.vogeler@lrz.uni-muenchen.de",
	"g.vogeler@lrz.uni-graz.at", "g.vogeler@lrz.uni-muenchen.de",
)

// User parses an xrx user document
func User(ctx *Context, file string, doc *xmldoc.Document) (*domain.User, error) {
	u := &domain.User{
		ID:   ctx.Alloc.Next(id.KindUser),
		File: file,
	}

	u.Email = text(doc, "./xrx:email")
	if u.Email == "" {
		return nil, skipf(file, "no email")
	}
	u.FirstName = optional(text(doc, "./xrx:firstname"))
	u.Name = optional(text(doc, "./xrx:name"))

	if moderator := text(doc, "./xrx:moderator"); moderator != "" {
		fixed := moderatorFixes.Replace(moderator)
		u.ModeratorEmail = &fixed
	}

	for _, bm := range doc.FindAll(".//xrx:bookmark") {
		if atomID := xmldoc.NormalizeSpace(bm.Text()); atomID != "" {
			u.Bookmarks = append(u.Bookmarks, domain.Bookmark{AtomID: atomID})
		}
	}

	for _, saved := range doc.FindAll(".//xrx:saved") {
		record, err := saveRecord(saved)
		if err != nil {
			ctx.log(file).WithFields(logrus.Fields{
				"email":  u.Email,
				"reason": err.Error(),
			}).Warn("broken save record")
			continue
		}
		u.Saved = append(u.Saved, record)
	}

	if err := domain.Validate(u); err != nil {
		return nil, skipErr(file, "invalid user", err)
	}
	return u, nil
}

func saveRecord(saved *etree.Element) (domain.SaveRecord, error) {
	var r domain.SaveRecord

	r.AtomID = xmldoc.NormalizeSpace(xmldoc.FindText(saved, "./xrx:id"))
	if r.AtomID == "" {
		return r, fmt.Errorf("no atom id")
	}

	start := xmldoc.NormalizeSpace(xmldoc.FindText(saved, "./xrx:start_time"))
	if start == "" {
		return r, fmt.Errorf("no start time for %s", r.AtomID)
	}
	t, err := dateutil.ParseTimestamp(start)
	if err != nil {
		return r, err
	}
	r.StartTime = t

	r.Released = xmldoc.NormalizeSpace(xmldoc.FindText(saved, "./xrx:freigabe")) == "yes"
	return r, nil
}

// BookmarkNotes parses a bookmark-notes side file into notes keyed by charter atom id
func BookmarkNotes(doc *xmldoc.Document) map[string]string {
	notes := make(map[string]string)
	for _, el := range doc.FindAll(".//xrx:bookmark_note") {
		atomID := xmldoc.NormalizeSpace(xmldoc.FindText(el, "./xrx:bookmark"))
		note := xmldoc.NormalizeSpace(xmldoc.AllText(xmldoc.Find(el, "./xrx:note")))
		if atomID == "" || note == "" {
			continue
		}
		notes[atomID] = note
	}
	return notes
}

// ApplyBookmarkNotes attaches notes to the user's bookmarks
func ApplyBookmarkNotes(u *domain.User, notes map[string]string) {
	for i := range u.Bookmarks {
		if note, ok := notes[u.Bookmarks[i].AtomID]; ok {
			n := note
			u.Bookmarks[i].Note = &n
		}
	}
}
