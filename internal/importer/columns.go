package importer

import (
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/docmeta/internal/models"
	"gopkg.in/yaml.v3"
)

// Transform names the strategy applied to a column's cell
type Transform string

const (
	TransformNone            Transform = ""
	TransformCopy            Transform = "copy"
	TransformCopyInt         Transform = "copy_int"
	TransformM2M             Transform = "m2m"
	TransformFKNamed         Transform = "fk_named"
	TransformFKReceiver      Transform = "fk_receiver"
	TransformTag             Transform = "tag"
	TransformCountries       Transform = "countries"
	TransformPublicationDate Transform = "publication_date"
	TransformSubcategories   Transform = "subcategories"
	TransformDate            Transform = "date"
	TransformFilename        Transform = "filename"
)

// KeyHeading is the column used to find a row's documents
const KeyHeading = "original file name"

// Column maps one spreadsheet heading to a transform. Field names the
// document field or relation the transform writes; Root is the category
// path ("a/b") subcategories are created under.
type Column struct {
	Heading   string    `yaml:"heading"`
	Transform Transform `yaml:"transform,omitempty"`
	Field     string    `yaml:"field,omitempty"`
	Root      string    `yaml:"root,omitempty"`
	Fuzzy     bool      `yaml:"fuzzy,omitempty"`
}

// DefaultColumns returns the INPEX document register layout
func DefaultColumns() []Column {
	return []Column{
		{Heading: "URL", Transform: TransformM2M, Field: "urls"},
		{Heading: "URL-alt", Transform: TransformM2M, Field: "urls"},
		{Heading: "Date Received by CCCS Team", Transform: TransformDate, Field: "date_received"},
		{Heading: "Received by CCCS Team Member", Transform: TransformFKReceiver, Field: "receiver"},
		{Heading: "Distribution", Transform: TransformFKNamed, Field: "distribution", Fuzzy: true},
		{Heading: "CCCS folder - orig"},
		{Heading: "sub-folder - orig"},
		{Heading: KeyHeading},
		{Heading: "original file name -alt", Transform: TransformFilename},
		{Heading: "revised file name", Transform: TransformFilename},
		{Heading: "BIBTEX entry type", Transform: TransformFKNamed, Field: "bibtex_entry_type", Fuzzy: true},
		{Heading: "CCCS entry type", Transform: TransformFKNamed, Field: "cccs_entry_type", Fuzzy: true},
		{Heading: "attribute tag", Transform: TransformTag},
		{Heading: "Country / Countries", Transform: TransformCountries},
		{Heading: "Region(s)", Transform: TransformCopy, Field: "regions"},
		{Heading: "Year", Transform: TransformCopyInt, Field: "year"},
		{Heading: "Month", Transform: TransformCopyInt, Field: "month"},
		{Heading: "Day", Transform: TransformCopyInt, Field: "day"},
		{Heading: "Date Created / Published", Transform: TransformPublicationDate},
		{Heading: "Author(s)", Transform: TransformM2M, Field: "authors"},
		{Heading: "Editor(s)", Transform: TransformM2M, Field: "editors"},
		{Heading: "Book Title", Transform: TransformCopy, Field: "booktitle"},
		{Heading: "Book Chapter", Transform: TransformCopy, Field: "chapter"},
		{Heading: "Document / Article Title", Transform: TransformCopy, Field: "title"},
		{Heading: "Journal / Publication", Transform: TransformCopy, Field: "journal"},
		{Heading: "Vol", Transform: TransformCopy, Field: "volume"},
		{Heading: "Issue", Transform: TransformCopy, Field: "issue"},
		{Heading: "Pages", Transform: TransformCopy, Field: "pages"},
		{Heading: "Series", Transform: TransformCopy, Field: "series"},
		{Heading: "Language", Transform: TransformCopy, Field: "language"},
		{Heading: "Publishing Agency", Transform: TransformCopy, Field: "publishing_agency"},
		{Heading: "Publishing House", Transform: TransformCopy, Field: "publishing_house"},
		{Heading: "Publisher's City", Transform: TransformCopy, Field: "publisher_city"},
		{Heading: "Publisher's Address", Transform: TransformCopy, Field: "publisher_address"},
		{Heading: "Doc ID#", Transform: TransformCopy, Field: "document_id"},
		{Heading: "ISSN / ISBN", Transform: TransformCopy, Field: "document_id"},
		{Heading: "Abstract", Transform: TransformCopy, Field: "content"},
		{Heading: "Bibliographic Annotation", Transform: TransformCopy, Field: "annotation"},
		{Heading: "Reviewer Notes", Transform: TransformCopy, Field: "notes"},
		{Heading: "Significance to Client Document Development [short tags]", Transform: TransformSubcategories, Root: "significance/short"},
		{Heading: "Significance to Client Document Development [descriptive]", Transform: TransformSubcategories, Root: "significance/descriptive"},
		{Heading: "L1 Geographical Admin. Cat.", Transform: TransformCopy, Field: "l1"},
		{Heading: "L2 Geographical Admin. Cat.", Transform: TransformCopy, Field: "l2"},
		{Heading: "L3 Geographical Admin. Cat.", Transform: TransformCopy, Field: "l3"},
		{Heading: "L4 Geographical Admin. Cat.", Transform: TransformCopy, Field: "l4"},
		{Heading: "L5 Geographical Admin. Cat.", Transform: TransformCopy, Field: "l5"},
	}
}

// Headings returns every column heading in table order
func Headings(columns []Column) []string {
	headings := make([]string, 0, len(columns))
	for _, c := range columns {
		headings = append(headings, c.Heading)
	}
	return headings
}

// Validate checks that every column names a known transform and a field
// that transform can write, and that the key column is present.
func Validate(columns []Column) error {
	hasKey := false
	for _, c := range columns {
		if c.Heading == "" {
			return fmt.Errorf("column with empty heading")
		}
		if c.Heading == KeyHeading {
			hasKey = true
		}
		if err := c.validate(); err != nil {
			return fmt.Errorf("column %q: %w", c.Heading, err)
		}
	}
	if !hasKey {
		return fmt.Errorf("column table has no %q column", KeyHeading)
	}
	return nil
}

func (c Column) validate() error {
	switch c.Transform {
	case TransformNone, TransformTag, TransformCountries, TransformPublicationDate, TransformFilename, TransformFKReceiver:
		return nil
	case TransformCopy:
		if _, ok := stringFields[c.Field]; !ok {
			return fmt.Errorf("unknown text field %q", c.Field)
		}
	case TransformCopyInt:
		if _, ok := intFields[c.Field]; !ok {
			return fmt.Errorf("unknown integer field %q", c.Field)
		}
	case TransformDate:
		if _, ok := timeFields[c.Field]; !ok {
			return fmt.Errorf("unknown date field %q", c.Field)
		}
	case TransformM2M:
		if _, ok := m2mFields[c.Field]; !ok {
			return fmt.Errorf("unknown relation %q", c.Field)
		}
	case TransformFKNamed:
		if _, ok := fkFields[c.Field]; !ok {
			return fmt.Errorf("unknown reference %q", c.Field)
		}
	case TransformSubcategories:
		if len(splitPath(c.Root)) == 0 {
			return fmt.Errorf("subcategories column needs a root path")
		}
	default:
		return fmt.Errorf("unknown transform %q", c.Transform)
	}
	return nil
}

type columnFile struct {
	Columns []Column `yaml:"columns"`
}

// ReadColumns decodes a column table from YAML
func ReadColumns(r io.Reader) ([]Column, error) {
	var f columnFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse column table: %w", err)
	}
	if err := Validate(f.Columns); err != nil {
		return nil, err
	}
	return f.Columns, nil
}

// LoadColumns reads a column table from a YAML file. An empty path yields
// the default table.
func LoadColumns(path string) ([]Column, error) {
	if path == "" {
		return DefaultColumns(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open column table: %w", err)
	}
	defer file.Close()

	return ReadColumns(file)
}

// WriteColumns encodes a column table as YAML
func WriteColumns(w io.Writer, columns []Column) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(columnFile{Columns: columns}); err != nil {
		return fmt.Errorf("failed to marshal column table: %w", err)
	}
	return enc.Close()
}

// reference relations written by fk_named
type fkField struct {
	kind   models.Kind
	id     func(*models.Document) **uint
	entity func(*models.Document) **models.NamedEntity
}

var fkFields = map[string]fkField{
	"distribution": {
		kind:   models.KindDistribution,
		id:     func(d *models.Document) **uint { return &d.DistributionID },
		entity: func(d *models.Document) **models.NamedEntity { return &d.Distribution },
	},
	"bibtex_entry_type": {
		kind:   models.KindBibTexEntryType,
		id:     func(d *models.Document) **uint { return &d.BibTexEntryTypeID },
		entity: func(d *models.Document) **models.NamedEntity { return &d.BibTexEntryType },
	},
	"cccs_entry_type": {
		kind:   models.KindCCCSEntryType,
		id:     func(d *models.Document) **uint { return &d.CCCSEntryTypeID },
		entity: func(d *models.Document) **models.NamedEntity { return &d.CCCSEntryType },
	},
}

// collection relations written by m2m
type m2mField struct {
	kind        models.Kind
	association string
	items       func(*models.Document) []models.NamedEntity
}

var m2mFields = map[string]m2mField{
	"authors": {kind: models.KindAuthor, association: "Authors", items: func(d *models.Document) []models.NamedEntity { return d.Authors }},
	"editors": {kind: models.KindEditor, association: "Editors", items: func(d *models.Document) []models.NamedEntity { return d.Editors }},
	"urls":    {kind: models.KindURL, association: "URLs", items: func(d *models.Document) []models.NamedEntity { return d.URLs }},
}
