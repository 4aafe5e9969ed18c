package selection

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/ordering"
)

// Dimension names one of the two independent orderings a category holds over
// the same row. Moves and compaction in one dimension never touch the other.
type Dimension string

const (
	DimensionInitial Dimension = "initial"
	DimensionPaint   Dimension = "paint"
)

func ParseDimension(raw string) (Dimension, bool) {
	switch Dimension(strings.ToLower(strings.TrimSpace(raw))) {
	case DimensionInitial:
		return DimensionInitial, true
	case DimensionPaint:
		return DimensionPaint, true
	}
	return "", false
}

type Category struct {
	ID         uuid.UUID
	TemplateID uuid.UUID
	TenantID   uuid.UUID
	Name       string

	// One position per dimension, each holding its own 1..N invariant.
	InitialPosition ordering.Position
	PaintPosition   ordering.Position

	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Category) Position(dim Dimension) ordering.Position {
	if dim == DimensionPaint {
		return c.PaintPosition
	}
	return c.InitialPosition
}

// Reserved category names hold system-written adjustments, mirroring the
// reserved estimate headers. At most one per template, never deletable.
var reservedCategoryNames = map[string]struct{}{
	"changeorders": {},
	"accounting":   {},
}

// NormalizeName lowercases and strips all whitespace, so "Change  Orders"
// and "changeorders" compare equal.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func IsReservedCategoryName(name string) bool {
	_, ok := reservedCategoryNames[NormalizeName(name)]
	return ok
}

func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
