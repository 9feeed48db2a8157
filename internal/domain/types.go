package domain

import (
	"strings"
	"time"
)

// Location is the charter section a person name was found in
type Location string

const (
	LocationAbstract Location = "abstract"
	LocationBack     Location = "back"
	LocationTenor    Location = "tenor"
)

// Tier identifies which charter table owns a record
type Tier string

const (
	TierPublic  Tier = "public"
	TierSaved   Tier = "saved"
	TierPrivate Tier = "private"
)

// User represents a registered MOM user
type User struct {
	ID             int          `json:"id" db:"id"`
	File           string       `json:"file"`
	Email          string       `json:"email" db:"email" validate:"required"`
	FirstName      *string      `json:"first_name,omitempty" db:"first_name"`
	Name           *string      `json:"name,omitempty" db:"name"`
	ModeratorEmail *string      `json:"moderator_email,omitempty"`
	Bookmarks      []Bookmark   `json:"bookmarks,omitempty"`
	Saved          []SaveRecord `json:"saved,omitempty"`
}

// Bookmark is a user's bookmark of a charter, with an optional note
type Bookmark struct {
	AtomID string  `json:"atom_id"`
	Note   *string `json:"note,omitempty" db:"note"`
}

// SaveRecord is a user's record of a charter they are editing
type SaveRecord struct {
	AtomID    string    `json:"atom_id"`
	StartTime time.Time `json:"start_time"`
	Released  bool      `json:"released"`
}

// Oai lists what an archive shares with harvesters
type Oai struct {
	Fonds      []string `json:"fonds"`
	Harvesters []string `json:"harvesters"`
}

// Archive represents an archival institution
type Archive struct {
	ID           int    `json:"id" db:"id"`
	File         string `json:"file"`
	AtomID       string `json:"atom_id" db:"atom_id" validate:"required"`
	CountryCode  string `json:"country_code" db:"country_code" validate:"required,len=2"`
	Name         string `json:"name" db:"name" validate:"required"`
	RepositoryID string `json:"repository_id" db:"repository_id" validate:"required"`
	Oai          *Oai   `json:"oai,omitempty"`
}

// OaiShared reports whether the archive takes part in OAI harvesting
func (a *Archive) OaiShared() bool {
	return a.Oai != nil
}

// Fond represents a record group of one archive
type Fond struct {
	ID              int     `json:"id" db:"id"`
	ArchiveID       int     `json:"archive_id" db:"archive_id"`
	ArchiveFile     string  `json:"archive_file"`
	File            string  `json:"file"`
	AtomID          string  `json:"atom_id" db:"atom_id" validate:"required"`
	Identifier      string  `json:"identifier" db:"identifier" validate:"required"`
	Title           string  `json:"title" db:"title" validate:"required"`
	ImageBase       *string `json:"image_base,omitempty" db:"image_base"`
	FreeImageAccess bool    `json:"free_image_access" db:"free_image_access"`
	OaiShared       bool    `json:"oai_shared" db:"oai_shared"`
}

// Collection represents a public collection, a user's private collection,
// or a public copy of a private collection
type Collection struct {
	ID            int     `json:"id" db:"id"`
	File          string  `json:"file"`
	AtomID        string  `json:"atom_id" db:"atom_id" validate:"required"`
	Identifier    string  `json:"identifier" db:"identifier" validate:"required"`
	Title         string  `json:"title" db:"title" validate:"required"`
	ImageBase     *string `json:"image_base,omitempty" db:"image_base"`
	OaiShared     bool    `json:"oai_shared" db:"oai_shared"`
	LinkedFondIDs []int   `json:"linked_fond_ids,omitempty"`
	Private       bool    `json:"private"`
	OwnerID       *int    `json:"owner_id,omitempty" db:"owner_id"`
	OwnerEmail    *string `json:"owner_email,omitempty"`

	// SourceCollectionID is the private collection a public copy was made from
	SourceCollectionID *int `json:"source_collection_id,omitempty"`
}

// Charter holds the fields shared by every charter variant
type Charter struct {
	ID           int           `json:"id" db:"id"`
	File         string        `json:"file"`
	AtomID       string        `json:"atom_id" db:"atom_id" validate:"required"`
	IdnoID       string        `json:"idno_id" db:"idno_id" validate:"required"`
	IdnoText     string        `json:"idno_text" db:"idno_text" validate:"required"`
	URL          string        `json:"url" db:"url" validate:"required"`
	Abstract     *string       `json:"abstract,omitempty" db:"abstract"`
	Tenor        *string       `json:"tenor,omitempty" db:"tenor"`
	IssuedStart  *time.Time    `json:"issued_start,omitempty" db:"issued_start"`
	IssuedEnd    *time.Time    `json:"issued_end,omitempty" db:"issued_end"`
	IssuedText   *string       `json:"issued_text,omitempty" db:"issued_text"`
	SortDate     time.Time     `json:"sort_date" db:"sort_date"`
	Images       []string      `json:"images,omitempty"`
	AuthorEmail  *string       `json:"author_email,omitempty"`
	LastEditorID *int          `json:"last_editor_id,omitempty" db:"last_editor_id"`
	PersonNames  []*PersonName `json:"person_names,omitempty"`
}

// Base returns the shared charter fields
func (c *Charter) Base() *Charter {
	return c
}

// FondCharter is a public charter owned by a fond
type FondCharter struct {
	Charter
	ArchiveID   int    `json:"archive_id"`
	ArchiveFile string `json:"archive_file"`
	FondID      int    `json:"fond_id" db:"fond_id"`
	FondFile    string `json:"fond_file"`
}

// CollectionCharter is a public charter owned by a collection
type CollectionCharter struct {
	Charter
	CollectionID   int    `json:"collection_id" db:"collection_id"`
	CollectionFile string `json:"collection_file"`

	// Set for charters of a public copy of a private collection
	OwnerEmail          *string `json:"owner_email,omitempty"`
	CollectionAtomID    *string `json:"collection_atom_id,omitempty"`
	SourceMycharterID   *int    `json:"source_mycharter_id,omitempty" db:"source_private_charter_id"`
	SourceMycharterAtom *string `json:"source_mycharter_atom_id,omitempty"`
}

// SavedCharter is a user's working copy of a public charter
type SavedCharter struct {
	Charter
	EditorID          int       `json:"editor_id" db:"editor_id"`
	StartTime         time.Time `json:"start_time" db:"start_time"`
	Released          bool      `json:"is_released" db:"is_released"`
	OriginalCharterID int       `json:"original_charter_id" db:"original_charter_id"`
}

// PrivateCharter is a charter in a user's private collection
type PrivateCharter struct {
	Charter
	OwnerID          int     `json:"owner_id"`
	OwnerEmail       string  `json:"owner_email"`
	CollectionID     int     `json:"private_collection_id" db:"private_collection_id"`
	CollectionAtomID string  `json:"collection_atom_id"`
	CollectionFile   string  `json:"collection_file"`
	SourceAtomID     *string `json:"source_atom_id,omitempty"`
	SourceCharterID  *int    `json:"source_charter_id,omitempty" db:"source_charter_id"`
}

// Charters is implemented by every charter variant
type Charters interface {
	Base() *Charter
}

// Person is a canonical person that mentions resolve to
type Person struct {
	ID          int      `json:"id" db:"id"`
	Names       []string `json:"names"`
	MomID       *string  `json:"mom_id,omitempty" db:"mom_id"`
	MomIRI      *string  `json:"mom_iri,omitempty" db:"mom_iri"`
	WikidataIRI *string  `json:"wikidata_iri,omitempty" db:"wikidata_iri"`
}

// Label joins the name variants for display
func (p *Person) Label() string {
	return strings.Join(p.Names, "; ")
}

// PersonName is one mention of a person in a charter
type PersonName struct {
	ID          int      `json:"id" db:"id"`
	CharterID   int      `json:"charter_id"`
	Tier        Tier     `json:"tier"`
	Location    Location `json:"location" db:"location"`
	Text        string   `json:"text" db:"text"`
	Reg         *string  `json:"reg,omitempty" db:"reg"`
	Key         *string  `json:"key,omitempty" db:"key"`
	WikidataIRI *string  `json:"wikidata_iri,omitempty"`
	PersonID    *int     `json:"person_id,omitempty" db:"person_id"`
}

// IndexName is a name variant listed in a person index
type IndexName struct {
	Text string  `json:"text"`
	Ref  *string `json:"ref,omitempty"`
}

// IndexPerson is a curated person entry of a TEI person index
type IndexPerson struct {
	ID              int         `json:"id"`
	IndexIdentifier string      `json:"index_identifier"`
	XMLID           string      `json:"xml_id" validate:"required"`
	MomIRI          string      `json:"mom_iri"`
	WikidataIRI     *string     `json:"wikidata_iri,omitempty"`
	Names           []IndexName `json:"names"`
}

// PersonIndex is a parsed TEI person index document
type PersonIndex struct {
	AtomID     string        `json:"atom_id" validate:"required"`
	Identifier string        `json:"identifier"`
	Persons    []IndexPerson `json:"persons"`
}
