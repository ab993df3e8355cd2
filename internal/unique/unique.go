// Package unique allocates collision free field values by adding or
// incrementing a bracketed numeric suffix.
package unique

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"gorm.io/gorm"
)

// suffixPattern splits "<prefix>(<N>)" into prefix, N and the closing bracket
var suffixPattern = regexp.MustCompile(`^(.*\()(\d+)(\))$`)

// ExistsFunc reports whether value is already held by another record
type ExistsFunc func(ctx context.Context, value string) (bool, error)

// Next returns the following candidate: "About" becomes "About (1)" and
// "About (1)" becomes "About (2)".
func Next(candidate string) string {
	if m := suffixPattern.FindStringSubmatch(candidate); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return m[1] + strconv.Itoa(n+1) + m[3]
		}
	}
	return candidate + " (1)"
}

// Allocate returns candidate unchanged when it is free. Otherwise it steps
// through Next from the candidate's own suffix until a free value is found;
// gaps in existing numbering are never filled.
func Allocate(ctx context.Context, candidate string, exists ExistsFunc) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = Next(candidate)
	}
}

// Column scopes uniqueness to one column of one model's table, optionally
// ignoring the record being renamed.
type Column struct {
	DB        *gorm.DB
	Model     any
	Name      string
	ExcludeID uint
}

// Exists implements ExistsFunc for the column
func (c Column) Exists(ctx context.Context, value string) (bool, error) {
	q := c.DB.WithContext(ctx).Model(c.Model).Where(c.Name+" = ?", value)
	if c.ExcludeID != 0 {
		q = q.Where("id <> ?", c.ExcludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check %s uniqueness: %w", c.Name, err)
	}
	return n > 0, nil
}

// Allocate returns a value for the column that no other record holds
func (c Column) Allocate(ctx context.Context, candidate string) (string, error) {
	return Allocate(ctx, candidate, c.Exists)
}
