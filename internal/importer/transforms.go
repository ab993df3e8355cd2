package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lehigh-university-libraries/docmeta/internal/entity"
	"github.com/lehigh-university-libraries/docmeta/internal/models"
)

// effect describes what a transform did to a document: the document fields
// it changed and whether it wrote to a relation.
type effect struct {
	fields  []string
	related bool
}

func changed(fields ...string) effect { return effect{fields: fields} }

var (
	noEffect = effect{}
	related  = effect{related: true}
)

type transformFunc func(ctx context.Context, im *Importer, doc *models.Document, col Column, value any) (effect, error)

var transforms = map[Transform]transformFunc{
	TransformCopy:            transformCopy,
	TransformCopyInt:         transformCopyInt,
	TransformM2M:             transformM2M,
	TransformFKNamed:         transformFKNamed,
	TransformFKReceiver:      transformFKReceiver,
	TransformTag:             transformTag,
	TransformCountries:       transformCountries,
	TransformPublicationDate: transformPublicationDate,
	TransformSubcategories:   transformSubcategories,
	TransformDate:            transformDate,
	TransformFilename:        transformFilename,
}

func transformCopy(_ context.Context, _ *Importer, doc *models.Document, col Column, value any) (effect, error) {
	field := stringFields[col.Field](doc)
	s := cellString(value)
	if s == *field {
		return noEffect, nil
	}
	*field = s
	return changed(col.Field), nil
}

func transformCopyInt(_ context.Context, _ *Importer, doc *models.Document, col Column, value any) (effect, error) {
	n, ok := cellInt(value)
	if !ok {
		slog.Debug("Skipping non-numeric cell", "column", col.Heading, "value", value)
		return noEffect, nil
	}
	if setInt(intFields[col.Field](doc), n) {
		return changed(col.Field), nil
	}
	return noEffect, nil
}

// transformM2M adds the named entity to a collection relation. The relation
// is written immediately and never counts as a document change.
func transformM2M(ctx context.Context, im *Importer, doc *models.Document, col Column, value any) (effect, error) {
	rel := m2mFields[col.Field]
	e, err := im.resolveEntity(ctx, rel.kind, value, col.Fuzzy)
	if err != nil || e == nil {
		return noEffect, err
	}

	for _, existing := range rel.items(doc) {
		if existing.ID == e.ID {
			return noEffect, nil
		}
	}
	if err := im.db.WithContext(ctx).Model(doc).Association(rel.association).Append(e); err != nil {
		return noEffect, fmt.Errorf("failed to add %s %q: %w", rel.kind, e.Name, err)
	}
	return related, nil
}

func transformFKNamed(ctx context.Context, im *Importer, doc *models.Document, col Column, value any) (effect, error) {
	ref := fkFields[col.Field]
	e, err := im.resolveEntity(ctx, ref.kind, value, col.Fuzzy)
	if err != nil || e == nil {
		return noEffect, err
	}

	id := ref.id(doc)
	if *id != nil && **id == e.ID {
		return noEffect, nil
	}
	entityID := e.ID
	*id = &entityID
	*ref.entity(doc) = e
	return changed(col.Field), nil
}

// transformFKReceiver assigns a team member. Names that match nobody are
// dropped; users are never created.
func transformFKReceiver(_ context.Context, im *Importer, doc *models.Document, col Column, value any) (effect, error) {
	name := cellString(value)
	user, err := im.users.Lookup(name)
	if err != nil {
		slog.Debug("No team member matches receiver", "column", col.Heading, "name", name, "err", err)
		return noEffect, nil
	}

	if doc.ReceiverID != nil && *doc.ReceiverID == user.ID {
		return noEffect, nil
	}
	id := user.ID
	doc.ReceiverID = &id
	doc.Receiver = user
	return changed("receiver"), nil
}

func transformTag(ctx context.Context, im *Importer, doc *models.Document, _ Column, value any) (effect, error) {
	var added []models.Tag
	seen := make(map[string]bool)
	for _, label := range splitList(cellString(value)) {
		if seen[label] || hasTag(doc, label) {
			continue
		}
		seen[label] = true
		tag, err := im.tag(ctx, label)
		if err != nil {
			return noEffect, err
		}
		added = append(added, *tag)
	}
	if len(added) == 0 {
		return noEffect, nil
	}
	if err := im.db.WithContext(ctx).Model(doc).Association("Tags").Append(added); err != nil {
		return noEffect, fmt.Errorf("failed to add tags: %w", err)
	}
	return related, nil
}

func hasTag(doc *models.Document, label string) bool {
	for _, t := range doc.Tags {
		if t.Name == label {
			return true
		}
	}
	return false
}

// transformCountries is a placeholder; country lists are not imported yet.
func transformCountries(context.Context, *Importer, *models.Document, Column, any) (effect, error) {
	return noEffect, nil
}

var bareYear = regexp.MustCompile(`^\d{4}$`)

// transformPublicationDate accepts a bare year (sets year only) or a free
// text date, which sets year, month and day.
func transformPublicationDate(_ context.Context, _ *Importer, doc *models.Document, col Column, value any) (effect, error) {
	if n, ok := value.(float64); ok && n == math.Trunc(n) && n >= 1000 && n <= 9999 {
		value = strconv.Itoa(int(n))
	}

	if s, ok := value.(string); ok && bareYear.MatchString(strings.TrimSpace(s)) {
		year, _ := strconv.Atoi(strings.TrimSpace(s))
		if setInt(&doc.Year, year) {
			return changed("year"), nil
		}
		return noEffect, nil
	}

	t, ok := cellTime(value)
	if !ok {
		slog.Debug("Skipping unparseable publication date", "column", col.Heading, "value", value)
		return noEffect, nil
	}

	var fields []string
	if setInt(&doc.Year, t.Year()) {
		fields = append(fields, "year")
	}
	if setInt(&doc.Month, int(t.Month())) {
		fields = append(fields, "month")
	}
	if setInt(&doc.Day, t.Day()) {
		fields = append(fields, "day")
	}
	return effect{fields: fields}, nil
}

// transformSubcategories files the document under one child of the column's
// root category per ";" separated token.
func transformSubcategories(ctx context.Context, im *Importer, doc *models.Document, col Column, value any) (effect, error) {
	root := splitPath(col.Root)
	result := noEffect
	for _, name := range splitList(cellString(value)) {
		chain, err := im.categories.VerifyPath(ctx, append(root[:len(root):len(root)], name), true)
		if err != nil {
			return result, fmt.Errorf("failed to verify category %s/%s: %w", col.Root, name, err)
		}
		attached, err := im.categories.Attach(ctx, doc, chain[len(chain)-1])
		if err != nil {
			return result, err
		}
		if attached {
			result = related
		}
	}
	return result, nil
}

func transformDate(_ context.Context, _ *Importer, doc *models.Document, col Column, value any) (effect, error) {
	t, ok := cellTime(value)
	if !ok {
		slog.Debug("Skipping unparseable date", "column", col.Heading, "value", value)
		return noEffect, nil
	}
	if setTime(timeFields[col.Field](doc), t) {
		return changed(col.Field), nil
	}
	return noEffect, nil
}

// transformFilename records another file name for the document
func transformFilename(ctx context.Context, im *Importer, doc *models.Document, _ Column, value any) (effect, error) {
	name := strings.TrimSpace(cellString(value))
	if name == "" {
		return noEffect, nil
	}
	for _, f := range doc.FileNames {
		if f.Name == name {
			return noEffect, nil
		}
	}

	fn := models.DocumentFileName{DocumentID: doc.ID, Name: name}
	if err := im.db.WithContext(ctx).Where(fn).FirstOrCreate(&fn).Error; err != nil {
		return noEffect, fmt.Errorf("failed to record file name %q: %w", name, err)
	}
	doc.FileNames = append(doc.FileNames, fn)
	return related, nil
}

func (im *Importer) resolveEntity(ctx context.Context, kind models.Kind, value any, allowFuzzy bool) (*models.NamedEntity, error) {
	e, _, err := im.entities.Resolve(ctx, kind, cellString(value), allowFuzzy)
	if errors.Is(err, entity.ErrEmptyName) {
		return nil, nil
	}
	return e, err
}

func (im *Importer) tag(ctx context.Context, label string) (*models.Tag, error) {
	if t, ok := im.tags[label]; ok {
		return t, nil
	}
	t := &models.Tag{Name: label}
	if err := im.db.WithContext(ctx).Where(models.Tag{Name: label}).FirstOrCreate(t).Error; err != nil {
		return nil, fmt.Errorf("failed to get or create tag %q: %w", label, err)
	}
	im.tags[label] = t
	return t, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitPath(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// cellString renders a raw cell value as text
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func cellInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

// cellTime passes native timestamps through and parses text with a general
// date parser. Dates without a zone are taken as UTC.
func cellTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
