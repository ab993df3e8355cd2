package importer

import (
	"time"

	"github.com/lehigh-university-libraries/docmeta/internal/models"
)

type stringField func(*models.Document) *string

var stringFields = map[string]stringField{
	"title":             func(d *models.Document) *string { return &d.Title },
	"content":           func(d *models.Document) *string { return &d.Content },
	"volume":            func(d *models.Document) *string { return &d.Volume },
	"issue":             func(d *models.Document) *string { return &d.Issue },
	"pages":             func(d *models.Document) *string { return &d.Pages },
	"series":            func(d *models.Document) *string { return &d.Series },
	"language":          func(d *models.Document) *string { return &d.Language },
	"journal":           func(d *models.Document) *string { return &d.Journal },
	"booktitle":         func(d *models.Document) *string { return &d.BookTitle },
	"chapter":           func(d *models.Document) *string { return &d.Chapter },
	"publishing_agency": func(d *models.Document) *string { return &d.PublishingAgency },
	"publishing_house":  func(d *models.Document) *string { return &d.PublishingHouse },
	"publisher_city":    func(d *models.Document) *string { return &d.PublisherCity },
	"publisher_address": func(d *models.Document) *string { return &d.PublisherAddress },
	"institution":       func(d *models.Document) *string { return &d.Institution },
	"organization":      func(d *models.Document) *string { return &d.Organization },
	"school":            func(d *models.Document) *string { return &d.School },
	"edition":           func(d *models.Document) *string { return &d.Edition },
	"eprint":            func(d *models.Document) *string { return &d.Eprint },
	"howpublished":      func(d *models.Document) *string { return &d.HowPublished },
	"crossref":          func(d *models.Document) *string { return &d.Crossref },
	"key":               func(d *models.Document) *string { return &d.Key },
	"l1":                func(d *models.Document) *string { return &d.L1 },
	"l2":                func(d *models.Document) *string { return &d.L2 },
	"l3":                func(d *models.Document) *string { return &d.L3 },
	"l4":                func(d *models.Document) *string { return &d.L4 },
	"l5":                func(d *models.Document) *string { return &d.L5 },
	"regions":           func(d *models.Document) *string { return &d.Regions },
	"countries":         func(d *models.Document) *string { return &d.Countries },
	"document_id":       func(d *models.Document) *string { return &d.Identifier },
	"annotation":        func(d *models.Document) *string { return &d.Annotation },
	"notes":             func(d *models.Document) *string { return &d.Notes },
}

type intField func(*models.Document) **int

var intFields = map[string]intField{
	"year":  func(d *models.Document) **int { return &d.Year },
	"month": func(d *models.Document) **int { return &d.Month },
	"day":   func(d *models.Document) **int { return &d.Day },
}

type timeField func(*models.Document) **time.Time

var timeFields = map[string]timeField{
	"date_received":        func(d *models.Document) **time.Time { return &d.DateReceived },
	"source_file_created":  func(d *models.Document) **time.Time { return &d.SourceFileCreated },
	"source_file_modified": func(d *models.Document) **time.Time { return &d.SourceFileModified },
}

// setInt assigns v to the field and reports whether it changed
func setInt(field **int, v int) bool {
	if *field != nil && **field == v {
		return false
	}
	*field = &v
	return true
}

// setTime assigns t to the field and reports whether it changed
func setTime(field **time.Time, t time.Time) bool {
	if *field != nil && (*field).Equal(t) {
		return false
	}
	*field = &t
	return true
}
