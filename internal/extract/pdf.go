package extract

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// PDF extracts author, title and timestamps from a PDF info dictionary
type PDF struct{}

type pdfField struct {
	key       string
	field     string
	transform func(string) (any, error)
}

var pdfFields = []pdfField{
	{key: "Author", field: FieldAuthor, transform: textValue},
	{key: "Title", field: FieldTitle, transform: textValue},
	{key: "CreationDate", field: FieldCreated, transform: dateValue},
	{key: "ModDate", field: FieldModified, transform: dateValue},
}

func textValue(raw string) (any, error) {
	return DecodeText(raw)
}

func dateValue(raw string) (any, error) {
	s, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}
	return ParseDate(s)
}

// Extract parses the info dictionary. A field whose value cannot be decoded
// is left out; the remaining fields are still returned.
func (PDF) Extract(data []byte) (md Metadata, err error) {
	// the parser panics on some truncated or corrupt files
	defer func() {
		if r := recover(); r != nil {
			md = nil
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	info := reader.Trailer().Key("Info")
	md = Metadata{}
	if info.IsNull() {
		return md, nil
	}

	for _, f := range pdfFields {
		v := info.Key(f.key)
		if v.Kind() != pdf.String {
			continue
		}
		value, err := f.transform(v.RawString())
		if err != nil {
			slog.Debug("Skipping pdf info field", "key", f.key, "err", err)
			continue
		}
		md[f.field] = value
	}

	return md, nil
}
