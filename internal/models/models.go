package models

import (
	"path"
	"strings"
	"time"
)

// Join tables for the document relations. Named here because category and
// orphan queries reference them directly.
const (
	DocumentAuthorsTable    = "document_authors"
	DocumentEditorsTable    = "document_editors"
	DocumentURLsTable       = "document_urls"
	DocumentTagsTable       = "document_tags"
	DocumentCategoriesTable = "document_category_memberships"
)

// Document represents a catalogued source file and its bibliographic metadata
type Document struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name    string `gorm:"size:512;not null;uniqueIndex"`
	Title   string `gorm:"size:512;index"`
	Content string `gorm:"type:text"` // abstract / description of content

	// Source file in the blob store
	SourcePath         string `gorm:"size:512;index"`
	SourceFileCreated  *time.Time
	SourceFileModified *time.Time
	SHA                *string `gorm:"column:sha;size:40"`

	// BibTeX fields
	Year             *int
	Month            *int
	Day              *int
	Volume           string `gorm:"size:256"`
	Issue            string `gorm:"size:256"`
	Pages            string `gorm:"size:256"`
	Series           string `gorm:"size:256"`
	Language         string `gorm:"size:256"`
	Journal          string `gorm:"size:256"`
	BookTitle        string `gorm:"size:512"`
	Chapter          string `gorm:"size:256"`
	PublishingAgency string `gorm:"size:256"`
	PublishingHouse  string `gorm:"size:256"`
	PublisherCity    string `gorm:"size:256"`
	PublisherAddress string `gorm:"size:256"`
	Institution      string `gorm:"size:256"`
	Organization     string `gorm:"size:256"`
	School           string `gorm:"size:256"`
	Edition          string `gorm:"size:256"`
	Eprint           string `gorm:"size:256"`
	HowPublished     string `gorm:"size:256"`
	Crossref         string `gorm:"size:256"`
	Key              string `gorm:"column:bibtex_key;size:256"`

	// CCCS fields
	L1           string `gorm:"column:l1;size:256"`
	L2           string `gorm:"column:l2;size:256"`
	L3           string `gorm:"column:l3;size:256"`
	L4           string `gorm:"column:l4;size:256"`
	L5           string `gorm:"column:l5;size:256"`
	Regions      string `gorm:"size:128"`
	Countries    string `gorm:"size:512"`
	Identifier   string `gorm:"column:doc_identifier;size:128"` // Doc ID#/ISSN/ISBN
	Annotation   string `gorm:"size:128"`
	Notes        string `gorm:"type:text"`
	DateReceived *time.Time
	ReceiverID   *uint
	Receiver     *User `gorm:"foreignKey:ReceiverID"`

	DistributionID    *uint
	Distribution      *NamedEntity `gorm:"foreignKey:DistributionID"`
	BibTexEntryTypeID *uint
	BibTexEntryType   *NamedEntity `gorm:"foreignKey:BibTexEntryTypeID"`
	CCCSEntryTypeID   *uint        `gorm:"column:cccs_entry_type_id"`
	CCCSEntryType     *NamedEntity `gorm:"foreignKey:CCCSEntryTypeID"`

	Authors    []NamedEntity      `gorm:"many2many:document_authors"`
	Editors    []NamedEntity      `gorm:"many2many:document_editors"`
	URLs       []NamedEntity      `gorm:"many2many:document_urls"`
	Tags       []Tag              `gorm:"many2many:document_tags"`
	Categories []DocumentCategory `gorm:"many2many:document_category_memberships"`
	FileNames  []DocumentFileName `gorm:"foreignKey:DocumentID"`
}

// SourceStem returns the source file's base name without its extension
func (d *Document) SourceStem() string {
	return Stem(d.SourcePath)
}

// DocumentFileName records a file name once associated with a document
type DocumentFileName struct {
	ID         uint   `gorm:"primaryKey"`
	DocumentID uint   `gorm:"not null;uniqueIndex:idx_document_file_name"`
	Name       string `gorm:"size:512;not null;uniqueIndex:idx_document_file_name;index"`
}

// Base returns the file name without any directory component
func (f DocumentFileName) Base() string {
	return path.Base(strings.TrimSpace(f.Name))
}

// DocumentCategory is a node in the category tree. Siblings never share a name.
// NULL parent ids never collide in a composite unique index, so root names
// carry their own partial index.
type DocumentCategory struct {
	ID        uint   `gorm:"primaryKey"`
	ParentID  *uint  `gorm:"uniqueIndex:idx_category_parent_name"`
	Name      string `gorm:"size:512;not null;uniqueIndex:idx_category_parent_name;uniqueIndex:idx_category_root_name,where:parent_id IS NULL"`
	Slug      string `gorm:"size:512;not null;index"`
	Active    bool   `gorm:"not null"`
	CreatedAt time.Time
}

// Kind identifies which reference entity a NamedEntity row belongs to
type Kind string

const (
	KindAuthor          Kind = "author"
	KindEditor          Kind = "editor"
	KindURL             Kind = "url"
	KindDistribution    Kind = "distribution"
	KindBibTexEntryType Kind = "bibtex_entry_type"
	KindCCCSEntryType   Kind = "cccs_entry_type"
)

// Kinds lists every reference entity kind
var Kinds = []Kind{KindAuthor, KindEditor, KindURL, KindDistribution, KindBibTexEntryType, KindCCCSEntryType}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// NamedEntity is a small uniquely named reference record (author, editor, URL,
// distribution, entry type). Names are unique per kind.
type NamedEntity struct {
	ID         uint   `gorm:"primaryKey"`
	Kind       Kind   `gorm:"size:32;not null;uniqueIndex:idx_named_entity_kind_name"`
	Name       string `gorm:"size:512;not null;uniqueIndex:idx_named_entity_kind_name"`
	PluralName string `gorm:"size:512"`
	CreatedAt  time.Time
}

// Plural returns the plural name, defaulting to the name with an "s" appended
func (e NamedEntity) Plural() string {
	if e.PluralName == "" {
		return e.Name + "s"
	}
	return e.PluralName
}

// Tag is a free string label attached to documents
type Tag struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

// User is an entry in the team member directory
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:150;not null;uniqueIndex"`
	FirstName string `gorm:"size:150"`
	LastName  string `gorm:"size:150"`
}

// FullName returns "first last", trimmed
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// All returns every model for migration
func All() []any {
	return []any{
		&User{},
		&NamedEntity{},
		&Tag{},
		&DocumentCategory{},
		&Document{},
		&DocumentFileName{},
	}
}

// Stem returns the base name of a slash separated path without its extension
func Stem(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
